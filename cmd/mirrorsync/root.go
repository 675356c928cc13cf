package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mirrorsync/internal/dirsyncer"
	"mirrorsync/internal/log"
	"mirrorsync/internal/settings"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

// Set via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "mirrorsync [source] [replica]",
	Short: "One-way periodic mirroring of a directory tree",
	Long: `mirrorsync keeps the replica directory an exact copy of the source directory.
Every interval it compares both trees, copies new and changed files, creates missing
directories and removes whatever is absent in the source. Each performed action is
appended to the action log.`,
	Args:          cobra.MaximumNArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mirrorsync %s\n", version)
	},
}

func init() {
	flags := settings.RegisterFlags(rootCmd.Flags())
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		stg, err := flags.Settings(args)
		if err != nil {
			return err
		}
		return run(cmd.Context(), stg)
	}
	rootCmd.AddCommand(versionCmd)
}

//Execute runs the root command; the process is stopped gracefully on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

func run(ctx context.Context, stg *settings.Settings) error {
	logger, err := log.New(stg.LogLevel, stg.LogToStd)
	if err != nil {
		return fmt.Errorf("cannot create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := stg.Validate(); err != nil {
		logger.Error("invalid settings", log.Cause(err))
		return err
	}

	actionLog, err := log.NewActionLog(stg.LogPath, stg.LogToStd)
	if err != nil {
		logger.Error("cannot open the action log", log.Cause(err))
		return err
	}
	defer func() { _ = actionLog.Sync() }()

	logger.Info("mirrorsync started",
		log.String("src", stg.SrcDir), log.String("replica", stg.ReplicaDir), log.String("actionLog", stg.LogPath),
		log.Duration("interval", stg.Interval), log.Bool("once", stg.Once), log.Bool("threaded", stg.Detached))

	syncer := dirsyncer.New(logger, *stg, actionLog)
	scheduler := dirsyncer.NewScheduler(logger, syncer, stg.Interval, clockwork.NewRealClock())

	switch {
	case stg.Once:
		_, err = scheduler.RunOnce(ctx)
	case stg.Detached:
		if err = scheduler.Start(ctx); err != nil {
			break
		}
		<-ctx.Done()
		logger.Info("interrupted, waiting for the current tick to finish")
		scheduler.Stop()
		err = scheduler.Wait()
	default:
		err = scheduler.Run(ctx)
	}

	if err != nil {
		logger.Error("mirrorsync failed", log.Cause(err))
		return err
	}
	logger.Info("mirrorsync finished")
	return nil
}
