package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/destream-go/internal/app"
	"github.com/yourusername/destream-go/internal/domain"
	"github.com/yourusername/destream-go/internal/infrastructure"
	"github.com/yourusername/destream-go/pkg/logger"
)

// environment is the configuration and logging shared by every command
type environment struct {
	config *domain.Config
	logger *zap.Logger
	events *logger.LoggerAdapter
}

// loadEnvironment loads configuration, applies command flag overrides and
// builds the loggers
func loadEnvironment(override func(*domain.Config)) (*environment, error) {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(config)
		if err := app.ValidateConfig(config); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	var multi *logger.MultiLogger
	if config.Logging.LogsDir != "" {
		multi, err = logger.NewMultiLogger(logger.MultiLoggerConfig{
			Level:   config.Logging.Level,
			LogsDir: config.Logging.LogsDir,
		})
		if err != nil {
			log.Warn("Event logs disabled", zap.Error(err))
			multi = nil
		}
	}
	return &environment{config: config, logger: log, events: logger.NewLoggerAdapter(multi, log)}, nil
}

func (e *environment) Close() {
	_ = e.events.Close()
	_ = e.logger.Sync()
}

// sessionManager wires the browser login flow to the session cache
func (e *environment) sessionManager() (*app.SessionManager, *infrastructure.FileSessionStore) {
	store := infrastructure.NewFileSessionStore(e.config.Session.CachePath, e.config.Session.MinValidity, e.logger)
	engine := app.NewAuthEngine(
		infrastructure.NewChromeLauncher(&e.config.Browser, e.logger),
		infrastructure.NewPageSessionProbe(),
		store,
		app.AuthPolicyFromConfig(&e.config.Auth),
		e.logger,
		e.events,
	)
	return app.NewSessionManager(store, engine, &e.config.Auth, e.logger), store
}

// interruptible returns a context cancelled by SIGINT or SIGTERM
func interruptible(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// asInterrupt reports errors caused by a cancelled run as interrupts
func asInterrupt(ctx context.Context, err error) error {
	if err == nil || ctx.Err() == nil || errors.Is(err, domain.ErrInterrupted) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrInterrupted, err)
}

var downloadCmd = &cobra.Command{
	Use:   "download [url|id...]",
	Short: "Download videos",
	Long: `Download one or more videos given as URLs or ids, on the command line or
in an input file with one video per line.`,
	RunE: runDownload,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and cache the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(func(c *domain.Config) { applyBrowserFlags(cmd, c) })
		if err != nil {
			return err
		}
		defer env.Close()

		ctx, stop := interruptible(cmd.Context())
		defer stop()

		sessions, store := env.sessionManager()
		if _, err := sessions.Login(ctx); err != nil {
			return asInterrupt(ctx, err)
		}
		fmt.Printf("Session cached at %s\n", store.Path())
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent downloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(nil)
		if err != nil {
			return err
		}
		defer env.Close()

		if !env.config.History.Enabled {
			return fmt.Errorf("download history is disabled")
		}

		repo, err := infrastructure.NewSQLiteHistoryRepository(env.config.History.DatabasePath)
		if err != nil {
			return err
		}
		defer repo.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		records, err := repo.FindRecent(limit)
		if err != nil {
			return err
		}
		stats, err := repo.GetStats()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "VIDEO\tTITLE\tOUTCOME\tCHUNKS\tFINISHED")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\n",
				r.VideoID,
				truncate(r.Title, 40),
				r.Outcome,
				r.Chunks,
				r.TotalChunks,
				r.FinishedAt.Local().Format("2006-01-02 15:04"))
		}
		w.Flush()

		fmt.Printf("\nTotal: %d  Success: %d  Failed: %d  Skipped: %d\n",
			stats.Total, stats.Success, stats.Failed, stats.Skipped)
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringP("input-file", "i", "", "File with one video URL or id per line")
	downloadCmd.Flags().StringArrayP("output-dir", "o", nil, "Output directory, once for all videos or once per video")
	downloadCmd.Flags().StringP("username", "u", "", "Username for the login prompt")
	downloadCmd.Flags().Bool("skip", false, "Skip videos whose output file already exists")
	downloadCmd.Flags().Bool("keep-session", false, "Refresh the session before every video after the first")
	downloadCmd.Flags().Bool("no-cleanup", false, "Keep partial output files after a failure")
	downloadCmd.Flags().Bool("captions", false, "Download captions when available")
	downloadCmd.Flags().String("format", "", "Output container format (mkv, mp4, ...)")
	downloadCmd.Flags().String("vcodec", "", `Video codec passed to ffmpeg, "none" drops video`)
	downloadCmd.Flags().String("acodec", "", `Audio codec passed to ffmpeg, "none" drops audio`)
	downloadCmd.Flags().Bool("show-browser", false, "Run the browser with a visible window")

	loginCmd.Flags().StringP("username", "u", "", "Username for the login prompt")
	loginCmd.Flags().Bool("show-browser", false, "Run the browser with a visible window")

	historyCmd.Flags().IntP("limit", "n", 20, "Number of records to show")
}

func applyBrowserFlags(cmd *cobra.Command, c *domain.Config) {
	flags := cmd.Flags()
	if flags.Changed("username") {
		c.Auth.Username, _ = flags.GetString("username")
	}
	if show, _ := flags.GetBool("show-browser"); show {
		c.Browser.Headless = false
	}
}

func applyDownloadFlags(cmd *cobra.Command, c *domain.Config) {
	applyBrowserFlags(cmd, c)

	flags := cmd.Flags()
	if flags.Changed("skip") {
		c.Download.SkipExisting, _ = flags.GetBool("skip")
	}
	if flags.Changed("keep-session") {
		c.Browser.KeepSession, _ = flags.GetBool("keep-session")
	}
	if flags.Changed("no-cleanup") {
		c.Download.NoCleanup, _ = flags.GetBool("no-cleanup")
	}
	if flags.Changed("captions") {
		c.Download.Captions, _ = flags.GetBool("captions")
	}
	if flags.Changed("format") {
		c.Download.Format, _ = flags.GetString("format")
	}
	if flags.Changed("vcodec") {
		c.Download.VideoCodec, _ = flags.GetString("vcodec")
	}
	if flags.Changed("acodec") {
		c.Download.AudioCodec, _ = flags.GetString("acodec")
	}
}

func runDownload(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(func(c *domain.Config) { applyDownloadFlags(cmd, c) })
	if err != nil {
		return err
	}
	defer env.Close()
	config := env.config
	log := env.logger

	ffmpeg, err := infrastructure.NewPreflight(&config.Download, log).Run()
	if err != nil {
		return err
	}

	inputFile, _ := cmd.Flags().GetString("input-file")
	outDirs, _ := cmd.Flags().GetStringArray("output-dir")
	entries, err := collectInputs(args, inputFile)
	if err != nil {
		return err
	}
	requests, err := buildRequests(entries, outDirs, config.Download.OutputDir)
	if err != nil {
		return err
	}
	if err := prepareOutputDirs(requests); err != nil {
		return err
	}

	ctx, stop := interruptible(cmd.Context())
	defer stop()

	sessions, _ := env.sessionManager()
	session, err := sessions.Acquire(ctx)
	if err != nil {
		return asInterrupt(ctx, err)
	}

	resolver := infrastructure.NewStreamResolver(&config.Resolver, &config.Download, log)
	videos, err := resolver.Resolve(ctx, requests, session, config.Download.Captions)
	if err != nil {
		return asInterrupt(ctx, err)
	}

	var history domain.HistoryRepository
	if config.History.Enabled {
		repo, err := infrastructure.NewSQLiteHistoryRepository(config.History.DatabasePath)
		if err != nil {
			log.Warn("Download history disabled", zap.Error(err))
		} else {
			defer repo.Close()
			history = repo
		}
	}

	notifier := infrastructure.NewNotificationService(&config.Notification, log)
	manager := app.NewDownloadManager(
		infrastructure.NewFFmpegMuxer(ffmpeg, log, env.events),
		sessions,
		infrastructure.NewTerminalProgress(os.Stderr, config.Download.SecondsPerChunk, log),
		history,
		notifier,
		app.OSInterrupts(),
		app.DownloadOptionsFromConfig(config),
		log,
		env.events,
	)

	result, err := manager.Run(ctx, videos, session)
	if result != nil {
		fmt.Printf("Downloaded %d, skipped %d, failed %d of %d videos\n",
			result.Succeeded, result.Skipped, result.Failed, len(videos))
		if err == nil {
			notifier.NotifyBatchFinished(result.Succeeded, result.Skipped)
		}
	}
	return asInterrupt(ctx, err)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
