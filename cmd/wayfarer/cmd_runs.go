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
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/teradata-labs/wayfarer/pkg/storage"
)

var (
	runsLimit     int
	runsOlderThan time.Duration
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect saved planning runs",
	Long: heredoc.Doc(`
		Finished planning runs are recorded in a local SQLite database together
		with a snapshot of the planning state. List them, print a stored
		snapshot, or prune old entries.
	`),
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	Run:   runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Print a stored run and its snapshot as JSON",
	Args:  cobra.ExactArgs(1),
	Run:   runRunsShow,
}

var runsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete runs older than a cutoff",
	Run:   runRunsPrune,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsPruneCmd)

	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum rows to print (0 = all)")
	runsPruneCmd.Flags().DurationVar(&runsOlderThan, "older-than", 30*24*time.Hour, "Delete runs older than this")
}

func openRunStore() *storage.RunStore {
	store, err := storage.NewRunStore(&storage.RunStoreConfig{DBPath: config.Database.Path})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening run database: %v\n", err)
		os.Exit(1)
	}
	return store
}

func runRunsList(cmd *cobra.Command, args []string) {
	store := openRunStore()
	defer func() { _ = store.Close() }()

	runs, err := store.List(cmd.Context(), runsLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing runs: %v\n", err)
		os.Exit(1)
	}

	if len(runs) == 0 {
		fmt.Println("No saved runs.")
		return
	}

	for _, r := range runs {
		fmt.Printf("%s  %-10s  %-20s  regenerations=%d\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.RunID, r.EndReason, r.Regenerations)
	}
}

func runRunsShow(cmd *cobra.Command, args []string) {
	store := openRunStore()
	defer func() { _ = store.Close() }()

	run, err := store.Load(cmd.Context(), args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading run: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding run: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func runRunsPrune(cmd *cobra.Command, args []string) {
	store := openRunStore()
	defer func() { _ = store.Close() }()

	n, err := store.Prune(cmd.Context(), runsOlderThan)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error pruning runs: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Pruned %d run(s) older than %s\n", n, runsOlderThan)
}
