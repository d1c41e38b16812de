package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spigell/resume-agent/internal/workflow"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Manifest lists workflow runs for the batch command.
type Manifest struct {
	Concurrency int             `yaml:"concurrency"`
	Runs        []ManifestEntry `yaml:"runs"`
}

// ManifestEntry mirrors workflow.Request. Relative paths are resolved against
// the manifest directory and absent flags default to true.
type ManifestEntry struct {
	RequirementText        string `yaml:"requirementText"`
	RequirementFile        string `yaml:"requirementFile"`
	RequirementID          string `yaml:"requirementId"`
	ResumeFilePath         string `yaml:"resumeFilePath"`
	CandidateID            string `yaml:"candidateId"`
	GenerateTailoredResume *bool  `yaml:"generateTailoredResume"`
	GenerateInterviewPrep  *bool  `yaml:"generateInterviewPrep"`
}

var batchCmd = &cobra.Command{
	Use:   "batch <manifest.yaml>",
	Short: "Run the workflow for every entry of a manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return batch(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntP("concurrency", "c", 0, "parallel runs (overrides the manifest, default 4)")
	batchCmd.Flags().StringP("output", "o", "", "write the results JSON to this file instead of stdout")
}

func batch(cmd *cobra.Command, manifestPath string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	manifest, err := loadManifest(manifestPath)
	if err != nil {
		return err
	}

	reqs, err := manifest.Requests(filepath.Dir(manifestPath))
	if err != nil {
		return err
	}

	concurrency := manifest.Concurrency
	if flag, _ := cmd.Flags().GetInt("concurrency"); flag > 0 {
		concurrency = flag
	}

	app, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer app.Close()

	app.logger.Info("starting the batch", zap.Int("runs", len(reqs)), zap.Int("concurrency", concurrency))

	results := workflow.RunBatch(ctx, app.orchestrator, reqs, concurrency)
	summary := workflow.Summarize(results)

	output, _ := cmd.Flags().GetString("output")
	if err := writeJSON(app.codec, cmd.OutOrStdout(), output, results); err != nil {
		return err
	}

	app.logger.Info("batch finished",
		zap.Int("total", summary.Total),
		zap.Int("completed", summary.Completed),
		zap.Int("failed", summary.Failed),
		zap.Int("gate_passed", summary.GatePassed),
	)

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d runs failed", summary.Failed, summary.Total)
	}
	return nil
}

func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if len(manifest.Runs) == 0 {
		return nil, fmt.Errorf("manifest %s has no runs", path)
	}

	return &manifest, nil
}

// Requests converts the entries into workflow requests.
func (m *Manifest) Requests(baseDir string) ([]workflow.Request, error) {
	reqs := make([]workflow.Request, 0, len(m.Runs))
	for i, entry := range m.Runs {
		text, err := requirementText(entry.RequirementText, resolve(baseDir, entry.RequirementFile))
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}

		reqs = append(reqs, workflow.Request{
			RequirementText:        text,
			RequirementID:          entry.RequirementID,
			ResumeFilePath:         resolve(baseDir, entry.ResumeFilePath),
			CandidateID:            entry.CandidateID,
			GenerateTailoredResume: entry.GenerateTailoredResume == nil || *entry.GenerateTailoredResume,
			GenerateInterviewPrep:  entry.GenerateInterviewPrep == nil || *entry.GenerateInterviewPrep,
		})
	}
	return reqs, nil
}

func resolve(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
