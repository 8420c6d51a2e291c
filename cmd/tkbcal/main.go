package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	"tkbcal/internal/config"
	"tkbcal/internal/ics"
	"tkbcal/internal/inbox"
	appLog "tkbcal/internal/log"
	"tkbcal/internal/source"
	"tkbcal/internal/timetable"
	"tkbcal/internal/web"
)

// flagConfig holds CLI flag values; they override the config file.
type flagConfig struct {
	configPath string
	listen     string
	in         string
	url        string
	browser    bool
	format     string
	weeks      int
	serve      bool
	watch      bool
	once       bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.weeks > 0 {
		conf.RepeatWeeks = min(flags.weeks, config.MaxRepeatWeeks)
	}

	appLog.Debug("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"max_input_runes", conf.MaxInputRunes,
		"repeat_weeks", conf.RepeatWeeks,
		"sources", len(conf.Sources),
		"serve", flags.serve,
		"inbox", flags.watch,
	)

	parser := timetable.NewParser(
		timetable.WithLocation(conf.Location()),
		timetable.WithMaxInput(conf.MaxInputRunes),
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if !flags.serve && !flags.watch {
		if err := convertOne(ctx, conf, parser, flags, os.Stdout); err != nil {
			appLog.Error("conversion failed", err)
			os.Exit(1)
		}
		return
	}

	errCh := make(chan error, 2)
	running := 0

	if flags.watch {
		runner, err := inbox.New(inbox.Options{
			Inbox:       conf.Inbox,
			Sources:     conf.Sources,
			RepeatWeeks: conf.RepeatWeeks,
			Parser:      parser,
			Fetcher:     source.NewFetcher(conf.CacheDir),
		})
		if err != nil {
			appLog.Error("failed to set up inbox", err)
			os.Exit(1)
		}
		if flags.once {
			rep, err := runner.ProcessOnce(ctx)
			if err != nil {
				appLog.Error("inbox run failed", err)
				os.Exit(1)
			}
			appLog.Info("inbox run completed",
				"converted", len(rep.Converted),
				"unchanged", rep.Unchanged,
				"empty", rep.Empty,
				"failed", rep.Failed,
			)
			if !flags.serve {
				return
			}
		} else {
			running++
			go func() { errCh <- runner.Start(ctx) }()
		}
	}

	if flags.serve {
		running++
		go func() { errCh <- web.StartServer(ctx, conf, parser) }()
	}

	for ; running > 0; running-- {
		if err := <-errCh; err != nil {
			appLog.Error("component stopped", err)
			cancel()
		}
	}

	time.Sleep(100 * time.Millisecond)
	appLog.Info("tkbcal exiting")
}

// convertOne reads a single timetable from -in or -url and writes its
// events to w as JSON or iCalendar.
func convertOne(ctx context.Context, conf *config.Config, parser *timetable.Parser, flags flagConfig, w io.Writer) error {
	text, origin, err := readInput(ctx, conf, flags)
	if err != nil {
		return err
	}

	res := parser.Analyze(string(text))
	appLog.Info("timetable parsed",
		"origin", origin,
		"events", len(res.Events),
		"grammar", res.Grammar,
		"blocks", res.Blocks,
		"truncated", res.Truncated,
	)

	switch flags.format {
	case "ics":
		_, err = io.WriteString(w, ics.Encode(res.Events, ics.EncodeOptions{
			Scope:       origin,
			RepeatWeeks: conf.RepeatWeeks,
		}))
		return err
	case "json", "":
		events := res.Events
		if conf.RepeatWeeks > 1 && len(events) > 0 {
			if events, err = ics.RepeatWeekly(events, conf.RepeatWeeks); err != nil {
				return err
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	default:
		return errors.Errorf("unknown format %q (want json or ics)", flags.format)
	}
}

func readInput(ctx context.Context, conf *config.Config, flags flagConfig) ([]byte, string, error) {
	switch {
	case flags.url != "" && flags.browser:
		text, err := source.CapturePageText(ctx, source.BrowserOptions{URL: flags.url})
		if err != nil {
			return nil, "", err
		}
		return []byte(text), flags.url, nil

	case flags.url != "":
		res, err := source.NewFetcher(conf.CacheDir).FetchOne(ctx, source.Remote{ID: "cli", URL: flags.url})
		if err != nil {
			return nil, "", err
		}
		text, err := res.Text()
		if err != nil {
			return nil, "", err
		}
		return text, flags.url, nil

	default:
		body, err := source.ReadFile(flags.in, 0)
		if err != nil {
			return nil, "", err
		}
		if !utf8.Valid(body) {
			return nil, "", errors.Wrap(timetable.ErrInvalidInput, flags.in)
		}
		return body, flags.in, nil
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "tkbcal.yaml", "Path to config file (created with defaults if missing)")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.in, "in", "-", "Timetable text or HTML file to convert; - reads stdin")
	flag.StringVar(&cfg.url, "url", "", "Fetch the timetable page from this URL instead of -in")
	flag.BoolVar(&cfg.browser, "browser", false, "Render -url in headless Chrome before extracting text")
	flag.StringVar(&cfg.format, "format", "json", "Output format for single conversions: json or ics")
	flag.IntVar(&cfg.weeks, "weeks", 0, "Weekly repetitions in calendar output (overrides config if set)")
	flag.BoolVar(&cfg.serve, "serve", false, "Run the HTTP parse API")
	flag.BoolVar(&cfg.watch, "inbox", false, "Convert inbox files and configured sources on the config schedule")
	flag.BoolVar(&cfg.once, "once", false, "With -inbox, run a single pass and exit")

	flag.Parse()

	return cfg
}
