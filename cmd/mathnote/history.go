// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mathnote/internal/note"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past tasks or search saved notes",
	Long: `History lists tasks recorded locally, newest first. With --search it
runs a full-text query over the formulas, summaries, SOS explanations, and
transcripts of every saved note.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().String("search", "", "full-text query over saved slides")
	historyCmd.Flags().Int("limit", 20, "maximum number of rows")
	historyCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query, _ := cmd.Flags().GetString("search")
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	hist, err := openStore()
	if err != nil {
		return err
	}
	defer hist.Close()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if query != "" {
		results, err := hist.Search(ctx, query, limit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return enc.Encode(results)
		}
		if len(results) == 0 {
			fmt.Fprintln(out, "No results found.")
			return nil
		}
		fmt.Fprintf(out, "%-36s  %-30s  %-5s  %s\n", "Task", "Title", "Slide", "Time")
		fmt.Fprintln(out, strings.Repeat("-", 90))
		for _, r := range results {
			fmt.Fprintf(out, "%-36s  %-30s  %-5d  %s\n",
				r.TaskID, truncate(r.Title, 30), r.Slide.Number, note.Timestamp(r.Slide.Start))
		}
		fmt.Fprintf(out, "\n%d results\n", len(results))
		return nil
	}

	tasks, err := hist.ListTasks(ctx, limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return enc.Encode(tasks)
	}
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks recorded yet.")
		return nil
	}
	fmt.Fprintf(out, "%-36s  %-4s  %-10s  %-4s  %s\n", "Task", "Mode", "Status", "Note", "Submitted")
	fmt.Fprintln(out, strings.Repeat("-", 90))
	for _, t := range tasks {
		has := "-"
		if t.HasNote {
			has = "yes"
		}
		fmt.Fprintf(out, "%-36s  %-4s  %-10s  %-4s  %s\n",
			t.ID, t.Mode, t.Status, has, t.SubmittedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
