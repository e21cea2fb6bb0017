// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mathnote/internal/note"
)

var exportCmd = &cobra.Command{
	Use:   "export <task-id>",
	Short: "Export a finished note",
	Long: `Export sends the note to Notion (--notion, the default), prints a
time-limited download link (--download), or writes the local history entry
for the task to a YAML or JSON file (--yaml / --json).`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().Bool("notion", false, "sync the note to Notion")
	exportCmd.Flags().Bool("download", false, "print a download link for the rendered note")
	exportCmd.Flags().String("yaml", "", "write the history entry to this YAML file")
	exportCmd.Flags().String("json", "", "write the history entry to this JSON file")
	exportCmd.MarkFlagsMutuallyExclusive("notion", "download", "yaml", "json")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	taskID := args[0]
	out := cmd.OutOrStdout()

	yamlPath, _ := cmd.Flags().GetString("yaml")
	jsonPath, _ := cmd.Flags().GetString("json")
	if yamlPath != "" || jsonPath != "" {
		hist, err := openStore()
		if err != nil {
			return err
		}
		defer hist.Close()
		if yamlPath != "" {
			if err := hist.ExportYAML(ctx, taskID, yamlPath); err != nil {
				return err
			}
			fmt.Fprintf(out, "Exported to %s\n", yamlPath)
			return nil
		}
		if err := hist.ExportJSON(ctx, taskID, jsonPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "Exported to %s\n", jsonPath)
		return nil
	}

	exporter := note.NewExporter(newClient())
	if download, _ := cmd.Flags().GetBool("download"); download {
		link, err := exporter.DownloadLink(ctx, taskID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n", link.URL)
		if !link.ExpiresAt.IsZero() {
			fmt.Fprintf(out, "File %s, link expires %s\n", link.Filename, link.ExpiresAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	}

	url, err := exporter.Sync(ctx, taskID)
	if err != nil {
		slog.Debug("notion export", "task_id", taskID, "error", err)
		if errors.Is(err, note.ErrExportFailed) {
			return errors.New("export to Notion failed; your note is unaffected, please try again")
		}
		return err
	}
	fmt.Fprintf(out, "Exported to Notion: %s\n", url)
	return nil
}
