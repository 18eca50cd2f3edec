package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fabler/internal/daemon"
	"fabler/internal/deps"
	"fabler/internal/logging"
	"fabler/internal/notifications"
	"fabler/internal/pipeline"
	"fabler/internal/queue"
	"fabler/internal/services/fetch"
	"fabler/internal/services/ffmpeg"
	"fabler/internal/services/imagegen"
	"fabler/internal/services/musicgen"
	"fabler/internal/services/storygen"
	"fabler/internal/services/transcriber"
	"fabler/internal/services/voicetts"
	"fabler/internal/staging"
	"fabler/internal/workflow"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the job-processing daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonProcess(cmd.Context(), ctx)
		},
	}
}

func runDaemonProcess(cmdCtx context.Context, ctx *commandContext) error {
	if ctx == nil {
		return fmt.Errorf("command context is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.NewForDaemon(cfg.Logging.Level, cfg.Logging.Format, cfg.Paths.LogDir)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	statuses := deps.CheckBinaries(deps.Requirements(cfg.Media))
	if missing := deps.Missing(statuses); len(missing) > 0 {
		logger.Warn("external tools unavailable; media stages will fail",
			logging.Any("missing", missing))
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	stagingMgr, err := staging.NewManager(cfg.Paths.ScratchDir, logger)
	if err != nil {
		return fmt.Errorf("init scratch manager: %w", err)
	}

	toolkit := ffmpeg.NewToolkit(cfg.Media)
	adapters := pipeline.Adapters{
		Story:       storygen.NewClient(cfg.Story),
		Voice:       voicetts.NewClient(cfg.TTS),
		Images:      imagegen.NewClient(cfg.Images),
		Video:       toolkit,
		Music:       musicgen.NewClient(cfg.Music),
		Media:       toolkit,
		Transcriber: transcriber.NewClient(cfg.Transcribe),
		Fetcher:     fetch.NewClient(),
	}

	notifier := notifications.NewService(cfg.Notifications)
	engine := pipeline.New(cfg, store, stagingMgr, adapters, logger, pipeline.WithNotifier(notifier))
	workflowManager := workflow.NewManager(cfg, store, engine, logger)

	d, err := daemon.New(cfg, store, logger, workflowManager, stagingMgr)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	logger.Info("fabler daemon running",
		logging.String("queue_db", store.Path()),
		logging.String("log_path", d.LogPath()))

	<-signalCtx.Done()
	logger.Info("fabler daemon shutting down")
	d.Stop()
	return nil
}
