package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/csheth/citeview/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect saved question and answer transcripts",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents with saved transcripts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		docs, err := store.Documents(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(docs) == 0 {
			fmt.Fprintln(out, "no saved transcripts")
			return nil
		}
		for _, doc := range docs {
			fmt.Fprintf(out, "%s  %-40s  last opened %s\n",
				shortID(doc.ID), doc.Name, doc.LastOpened.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write transcripts as YAML",
	Long: `Export writes every saved exchange, with its cited passages, as YAML.
Use --document to limit the export to one document (the full ID or the
prefix printed by "history list").`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		docID, _ := cmd.Flags().GetString("document")
		if docID != "" {
			if docID, err = resolveDocumentID(cmd.Context(), store, docID); err != nil {
				return err
			}
		}

		var w io.Writer = cmd.OutOrStdout()
		if path, _ := cmd.Flags().GetString("output"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("creating %s: %w", path, err)
			}
			defer f.Close()
			w = f
		}
		return store.ExportYAML(cmd.Context(), w, docID)
	},
}

func init() {
	historyExportCmd.Flags().String("document", "", "export only this document")
	historyExportCmd.Flags().StringP("output", "o", "", "write to a file instead of stdout")

	historyCmd.AddCommand(historyListCmd, historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory() (*history.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return history.Open(cfg.History.Path)
}

// resolveDocumentID expands an ID prefix to the single document it names.
func resolveDocumentID(ctx context.Context, store *history.Store, prefix string) (string, error) {
	docs, err := store.Documents(ctx)
	if err != nil {
		return "", err
	}
	var match string
	for _, doc := range docs {
		if strings.HasPrefix(doc.ID, prefix) {
			if match != "" {
				return "", fmt.Errorf("document prefix %q is ambiguous", prefix)
			}
			match = doc.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no saved transcript for document %q", prefix)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
