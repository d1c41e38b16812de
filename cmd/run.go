package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spigell/resume-agent/internal/extract"
	"github.com/spigell/resume-agent/internal/workflow"
	"go.uber.org/zap"
)

const (
	PromptEverything   = "Tailored resume and interview prep"
	PromptTailorOnly   = "Tailored resume only"
	PromptPrepOnly     = "Interview prep only"
	PromptAnalysisOnly = "Analysis only"
	PromptExit         = "Exit"
)

var errExit = errors.New("exit requested")

var outputPrompt = promptui.Select{
	Label: "What should be generated when the candidate passes the gate?",
	Items: []string{PromptEverything, PromptTailorOnly, PromptPrepOnly, PromptAnalysisOnly, PromptExit},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the workflow for a single resume and job requirement",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runFlags(runCmd.Flags())
}

func runFlags(flags *pflag.FlagSet) {
	flags.StringP("requirement", "r", "", "job requirement text")
	flags.StringP("requirement-file", "f", "", "file with the job requirement text")
	flags.String("requirement-id", "", "requirement id; with no requirement text the stored requirement is reused")
	flags.StringP("resume", "p", "", "resume file (.pdf, .txt or .md)")
	flags.String("candidate-id", "", "candidate id (generated when empty)")
	flags.Bool("no-tailor", false, "do not generate a tailored resume")
	flags.Bool("no-prep", false, "do not generate interview preparation")
	flags.BoolP("interactive", "i", false, "choose the generated outputs interactively")
	flags.StringP("output", "o", "", "write the result JSON to this file instead of stdout")
}

func run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := requestFromFlags(cmd)
	if err != nil {
		return err
	}

	interactive, _ := cmd.Flags().GetBool("interactive")
	if interactive {
		if err := chooseOutputs(&req); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			return err
		}
	}

	app, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer app.Close()

	app.logger.Info("starting the resume-agent", zap.String("version", version))

	result := app.orchestrator.Execute(ctx, req)

	output, _ := cmd.Flags().GetString("output")
	if err := writeJSON(app.codec, cmd.OutOrStdout(), output, result); err != nil {
		return err
	}

	if result.Status != workflow.StatusCompleted {
		return errors.New(result.Message)
	}

	app.logger.Info(result.Message,
		zap.Bool("gate_passed", result.GatePassed),
		zap.String("modified_resume", result.ModifiedResumePath),
		zap.Strings("warnings", result.Warnings),
	)
	return nil
}

func requestFromFlags(cmd *cobra.Command) (workflow.Request, error) {
	flags := cmd.Flags()
	text, _ := flags.GetString("requirement")
	file, _ := flags.GetString("requirement-file")
	requirementID, _ := flags.GetString("requirement-id")
	resume, _ := flags.GetString("resume")
	candidateID, _ := flags.GetString("candidate-id")
	noTailor, _ := flags.GetBool("no-tailor")
	noPrep, _ := flags.GetBool("no-prep")

	text, err := requirementText(text, file)
	if err != nil {
		return workflow.Request{}, err
	}

	if strings.TrimSpace(resume) == "" {
		return workflow.Request{}, errors.New("--resume is required")
	}
	if strings.TrimSpace(text) == "" && strings.TrimSpace(requirementID) == "" {
		return workflow.Request{}, errors.New("one of --requirement, --requirement-file or --requirement-id is required")
	}

	return workflow.Request{
		RequirementText:        text,
		RequirementID:          strings.TrimSpace(requirementID),
		ResumeFilePath:         strings.TrimSpace(resume),
		CandidateID:            strings.TrimSpace(candidateID),
		GenerateTailoredResume: !noTailor,
		GenerateInterviewPrep:  !noPrep,
	}, nil
}

// requirementText prefers inline text over the file.
func requirementText(text, file string) (string, error) {
	if strings.TrimSpace(text) != "" || strings.TrimSpace(file) == "" {
		return text, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("reading requirement file: %w", err)
	}
	return string(data), nil
}

func chooseOutputs(req *workflow.Request) error {
	_, action, err := outputPrompt.Run()
	if err != nil {
		return err
	}
	return applyOutputChoice(req, action)
}

func applyOutputChoice(req *workflow.Request, action string) error {
	switch action {
	case PromptEverything:
		req.GenerateTailoredResume, req.GenerateInterviewPrep = true, true
	case PromptTailorOnly:
		req.GenerateTailoredResume, req.GenerateInterviewPrep = true, false
	case PromptPrepOnly:
		req.GenerateTailoredResume, req.GenerateInterviewPrep = false, true
	case PromptAnalysisOnly:
		req.GenerateTailoredResume, req.GenerateInterviewPrep = false, false
	case PromptExit:
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
	return nil
}

// writeJSON prints v to stdout, or to path when it is set.
func writeJSON(codec *extract.Codec, stdout io.Writer, path string, v any) error {
	data, err := codec.Encode(v)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err := stdout.Write(data)
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing result to %s: %w", path, err)
	}
	return nil
}
