// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package planner

import (
	"fmt"
	"regexp"
	"strings"
)

// RouteAction tags what the run does after the summary stage.
type RouteAction int

const (
	ActionEnd RouteAction = iota
	ActionRegenerate
)

// RouteDecision is the supervisor's reading of the summary verdict.
type RouteDecision struct {
	Action RouteAction
	Target Stage
	Reason string
}

// directiveRE finds the regeneration directive anywhere in the summary.
// The itinerary rides after the verdict line, so the marker is not
// necessarily last.
var directiveRE = regexp.MustCompile(`(?i)\bREGENERATE:\s*([a-z_]+)`)

// regenTargets are the stages a directive may name. The query analyzer is
// not re-enterable.
var regenTargets = map[Stage]bool{
	StageHotel:       true,
	StageWeather:     true,
	StageAttractions: true,
	StageBudget:      true,
	StageItinerary:   true,
	StageSummary:     true,
}

// DecideRoute scans summary text for a regeneration directive. A directive
// naming a pipeline stage regenerates from that stage; an invalid stage
// name, a FINAL marker, or no marker at all ends the run.
func DecideRoute(summary string) RouteDecision {
	m := directiveRE.FindStringSubmatch(summary)
	if m == nil {
		if strings.Contains(strings.ToLower(summary), "final") {
			return RouteDecision{Action: ActionEnd, Reason: "final marker"}
		}
		return RouteDecision{Action: ActionEnd, Reason: "no directive"}
	}

	target := Stage(strings.ToLower(m[1]))
	if !regenTargets[target] {
		return RouteDecision{Action: ActionEnd, Reason: fmt.Sprintf("invalid regeneration target %q", m[1])}
	}
	return RouteDecision{Action: ActionRegenerate, Target: target, Reason: "summary directive"}
}

// stripVerdict removes the editor's verdict lines from the presented reply.
// The stored summary keeps them so the router and any replay see what the
// editor wrote.
func stripVerdict(summary string) string {
	lines := strings.Split(summary, "\n")
	kept := lines[:0]
	for _, line := range lines {
		t := strings.TrimSpace(line)
		if directiveRE.MatchString(t) || strings.EqualFold(t, "FINAL") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
