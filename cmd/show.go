package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spigell/resume-agent/internal/storage"
)

var showCmd = &cobra.Command{
	Use:   "show <category> <key>",
	Short: "Print a stored artifact",
	Long: "Print a stored artifact. Categories: " + strings.Join(storage.Categories, ", ") +
		". Analysis, tailored and interview-prep artifacts are keyed by <candidateId>-<requirementId>.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return show(cmd, args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func show(cmd *cobra.Command, category, key string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if !storage.IsCategory(category) {
		return fmt.Errorf("unknown category %q, expected one of %s", category, strings.Join(storage.Categories, ", "))
	}

	app, err := bootstrap(ctx, false)
	if err != nil {
		return err
	}
	defer app.Close()

	var artifact map[string]any
	if err := app.store.Load(ctx, category, key, &artifact); err != nil {
		return err
	}

	return writeJSON(app.codec, cmd.OutOrStdout(), "", artifact)
}
