// ABOUTME: Serve command running the engine behind the HTTP API
// ABOUTME: Wires history storage, worker pool size, and graceful shutdown

package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loferris/artificer/internal/engine"
	"github.com/loferris/artificer/internal/filesystem"
	"github.com/loferris/artificer/internal/graph"
	"github.com/loferris/artificer/internal/history"
	"github.com/loferris/artificer/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the workflow engine API server",
	Long: `Serve starts the HTTP API exposing workflow execution, graph
execution with human-in-the-loop resume, templates, and job
administration.

History and checkpoint storage accept local paths or s3:// URIs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return serve()
	},
}

func init() {
	serveCmd.Flags().Int("port", 8080, "port to listen on")
	serveCmd.Flags().Int("max-concurrent", 4, "maximum concurrently running jobs")
	serveCmd.Flags().Int("max-queue", 0, "maximum queued jobs (0 = unlimited)")
	serveCmd.Flags().Duration("default-timeout", 10*time.Minute, "default job timeout")
	serveCmd.Flags().String("history-dir", "", "job history location (local path or s3://), empty disables")
	serveCmd.Flags().String("checkpoint-dir", "", "graph checkpoint location (local path or s3://), empty keeps checkpoints in memory")

	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("max-concurrent", serveCmd.Flags().Lookup("max-concurrent"))
	_ = viper.BindPFlag("max-queue", serveCmd.Flags().Lookup("max-queue"))
	_ = viper.BindPFlag("default-timeout", serveCmd.Flags().Lookup("default-timeout"))
	_ = viper.BindPFlag("history-dir", serveCmd.Flags().Lookup("history-dir"))
	_ = viper.BindPFlag("checkpoint-dir", serveCmd.Flags().Lookup("checkpoint-dir"))

	rootCmd.AddCommand(serveCmd)
}

func serve() error {
	config := &engine.Config{
		MaxConcurrent:  viper.GetInt("max-concurrent"),
		MaxQueueLength: viper.GetInt("max-queue"),
		DefaultTimeout: viper.GetDuration("default-timeout"),
		Logger:         &logger,
	}

	if dir := viper.GetString("history-dir"); dir != "" {
		fs, path, err := filesystem.Open(dir, nil)
		if err != nil {
			return err
		}
		store, err := history.New(fs, path, 10000)
		if err != nil {
			return err
		}
		config.History = store
	}

	if dir := viper.GetString("checkpoint-dir"); dir != "" {
		fs, path, err := filesystem.Open(dir, nil)
		if err != nil {
			return err
		}
		store, err := graph.NewFileStore(fs, path)
		if err != nil {
			return err
		}
		config.Checkpoints = store
	}

	e, err := engine.New(config)
	if err != nil {
		return err
	}

	api := server.New(&server.Config{
		Port:   viper.GetInt("port"),
		Engine: e,
		Logger: &logger,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := api.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return api.Stop(ctx)
}
