package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spigell/resume-agent/internal/server"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the workflow over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "listen address (default :8080)")

	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serve(cmd *cobra.Command) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer app.Close()

	app.logger.Info("starting the resume-agent server", zap.String("version", version))

	srv := server.New(app.orchestrator, app.store, server.Options{
		UploadsDir:    app.config.Server.UploadsDir,
		OutputDir:     app.config.Workflow.OutputDir,
		MaxUploadSize: app.config.PDF.MaxFileSize,
	}, app.logger)

	return srv.Run(ctx, app.config.Server.Listen)
}
