package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/handiism/libro-downloader/internal/config"
	"github.com/handiism/libro-downloader/internal/cookie"
	"github.com/handiism/libro-downloader/internal/download"
	"github.com/handiism/libro-downloader/internal/http"
	"github.com/handiism/libro-downloader/internal/logger"
	"github.com/handiism/libro-downloader/internal/model"
	"github.com/handiism/libro-downloader/internal/tui"
)

// exitInterrupted is the conventional exit code after SIGINT.
const exitInterrupted = 130

var (
	configPath string
	verbose    bool
	loader     = config.NewLoader()

	rootCmd = &cobra.Command{
		Use:   "libro-dl",
		Short: "Download your purchased libro.fm audiobooks",
		Long: `libro-dl downloads every audiobook in your libro.fm library.

It reuses the libro.fm session of a browser you are logged in with, reads the
library export, and saves each book to <output>/<author>/<title>/. In mp3 mode
the zip archives are extracted and the tracks renamed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDownload,
	}
)

// flagKeys maps command-line flags to the config keys they override.
var flagKeys = map[string]string{
	"format":     "download.format",
	"output":     "download.output_dir",
	"dry-run":    "download.dry_run",
	"browser":    "cookie.browsers",
	"tags":       "finish.tags",
	"playlist":   "finish.playlist",
	"cover-art":  "finish.cover_art",
	"log-level":  "logging.level",
	"log-format": "logging.format",
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default ./config.yaml, ~/.config/libro-dl/config.yaml)")
	flags.String("format", "", "format to download: m4b or mp3 (prompted when omitted)")
	flags.StringP("output", "o", "library_out", "output directory")
	flags.StringSlice("browser", nil, "browsers to read cookies from, in order (default: all known)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "console", "log format: console or json")
	flags.BoolVarP(&verbose, "verbose", "v", false, "show per-file progress")

	rootCmd.Flags().Bool("dry-run", false, "resolve links without downloading")
	rootCmd.Flags().Bool("tags", false, "write ID3 tags to extracted mp3 tracks")
	rootCmd.Flags().Bool("playlist", false, "write a playlist for each extracted book")
	rootCmd.Flags().Bool("cover-art", false, "save cover.jpg and embed it in tags")

	for name, key := range flagKeys {
		flag := rootCmd.Flags().Lookup(name)
		if flag == nil {
			flag = flags.Lookup(name)
		}
		if err := loader.BindFlag(key, flag); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted, cancelling...")
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "Cancelled. Partially written files may remain.")
			os.Exit(exitInterrupted)
		}
		fmt.Fprintln(os.Stderr, tui.RenderEvent(download.ProgressEvent{Message: "Error: " + err.Error(), Level: download.LevelError}))
		if errors.Is(err, model.ErrAuthenticationMissing) {
			fmt.Fprintln(os.Stderr, "Log in to https://libro.fm in a browser, then run libro-dl again.")
		}
		os.Exit(1)
	}
}

// app is what every command needs once flags and config are resolved.
type app struct {
	settings *config.Settings
	logger   *zap.Logger
	client   *http.Client
}

// setup loads the configuration, builds the logger and opens the
// authenticated session.
func setup(ctx context.Context) (*app, error) {
	settings, err := loader.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{
		Level:      settings.Logging.Level,
		Format:     settings.Logging.Format,
		OutputPath: settings.Logging.OutputPath,
	})
	if err != nil {
		return nil, err
	}
	if used := loader.ConfigFileUsed(); used != "" {
		log.Debug("loaded config", zap.String("path", used))
	}

	cookies, err := cookie.NewFinder(settings.Cookie.Browsers, log).Find(ctx, settings.Cookie.Domain)
	if err != nil {
		return nil, err
	}

	client, err := http.NewClient(settings.ToHTTPConfig(), cookies)
	if err != nil {
		return nil, err
	}

	return &app{settings: settings, logger: log, client: client}, nil
}

// printEvent writes a progress event to stdout, hiding verbose events
// unless --verbose is set.
func printEvent(event download.ProgressEvent) {
	if event.Level == download.LevelVerbose && !verbose {
		return
	}
	fmt.Println(tui.RenderEvent(event))
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	if a.settings.Download.Format == "" {
		format, err := chooseFormat()
		if err != nil {
			return err
		}
		a.settings.Download.Format = string(format)
	}

	manager, err := download.NewManager(a.settings, a.client, a.logger, printEvent)
	if err != nil {
		return err
	}
	if isatty.IsTerminal(os.Stdout.Fd()) {
		manager.OnTransfer = transferPrinter(os.Stdout)
	}

	fmt.Println(tui.Header())
	report, err := manager.Run(ctx)
	fmt.Println()
	fmt.Println(tui.RenderReport(report))
	return err
}

// transferPrinter redraws a progress line on w in place, only when the whole
// percentage changes. The line is cleared when a transfer ends.
func transferPrinter(w io.Writer) func(path string, written, total int64) {
	const clearLine = "\r\033[K"
	last := -1
	return func(path string, written, total int64) {
		if written == total {
			fmt.Fprint(w, clearLine)
			last = -1
			return
		}
		pct := -1
		if total > 0 {
			pct = int(written * 100 / total)
			if pct == last {
				return
			}
		}
		last = pct
		fmt.Fprint(w, clearLine+tui.RenderTransfer(filepath.Base(path), written, total))
	}
}

// chooseFormat prompts for the format when attached to a terminal.
func chooseFormat() (model.Format, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return model.FormatNone, fmt.Errorf("%w: --format is required when stdin is not a terminal", model.ErrInvalidFormat)
	}
	return tui.PromptFormat(os.Stdin, os.Stderr)
}
