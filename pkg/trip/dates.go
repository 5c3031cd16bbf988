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
package trip

import (
	"strconv"
	"time"
)

// DateLayout is the wire format for trip dates.
const DateLayout = "2006-01-02"

// ApplyDateRules runs the deterministic date post-processing after an
// extraction merge. The rules are not delegated to generation:
//
//   - end date present, start date absent: start date becomes now's date
//     and "start_date" leaves the missing set. Nothing else is recomputed.
//   - both dates present: days becomes the inclusive count between them,
//     overwriting whatever the user supplied.
//   - only one bound present: days stays as supplied.
//
// Dates that fail to parse as YYYY-MM-DD leave the state untouched.
func ApplyDateRules(s *PlanningState, now time.Time) {
	if s.EndDate != nil && s.StartDate == nil {
		today := now.UTC().Format(DateLayout)
		s.StartDate = &today
		s.RemoveMissingField("start_date")
		return
	}

	if s.StartDate == nil || s.EndDate == nil {
		return
	}

	start, err := time.ParseInLocation(DateLayout, *s.StartDate, time.UTC)
	if err != nil {
		return
	}
	end, err := time.ParseInLocation(DateLayout, *s.EndDate, time.UTC)
	if err != nil {
		return
	}

	days := int(end.Sub(start).Hours()/24) + 1
	text := strconv.Itoa(days)
	s.Days = &text
}
