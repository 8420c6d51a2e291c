// Package inbox periodically converts timetable dumps into calendar files.
//
// Every run scans the inbox directory for *.txt and *.html files and polls
// the configured remote sources, parses each into events and writes
// "<name>.ics" and "<name>.json" into the output directory. Calendar
// clients subscribe to the .ics files (e.g. behind any static file server).
package inbox

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"tkbcal/internal/config"
	"tkbcal/internal/ics"
	appLog "tkbcal/internal/log"
	"tkbcal/internal/model"
	"tkbcal/internal/source"
	"tkbcal/internal/timetable"
)

// CaptureFunc renders a browser-mode source to text.
type CaptureFunc func(ctx context.Context, opts source.BrowserOptions) (string, error)

// Options configures a Runner.
type Options struct {
	Inbox       config.InboxConfig
	Sources     []config.SourceConfig
	RepeatWeeks int

	Parser  *timetable.Parser
	Fetcher *source.Fetcher

	// Capture defaults to source.CapturePageText.
	Capture CaptureFunc
}

// Report summarizes one run.
type Report struct {
	Converted []string // output base names written this run
	Unchanged int      // inbox files skipped because nothing changed
	Empty     int      // inputs that produced no events
	Failed    int
}

// Runner converts inbox files and remote sources on a cron schedule.
type Runner struct {
	opts     Options
	schedule cron.Schedule

	// run serializes runs; a tick arriving during a slow run is dropped.
	run  sync.Mutex
	seen map[string]time.Time // inbox file -> mod time last converted
}

// New validates opts and creates a Runner.
func New(opts Options) (*Runner, error) {
	if opts.Inbox.Dir == "" || opts.Inbox.OutDir == "" {
		return nil, errors.New("inbox: dir and out_dir are required")
	}
	sched, err := cron.ParseStandard(opts.Inbox.Schedule)
	if err != nil {
		return nil, errors.Wrapf(err, "inbox: schedule %q", opts.Inbox.Schedule)
	}
	if opts.Parser == nil {
		opts.Parser = timetable.NewParser()
	}
	if opts.Fetcher == nil {
		opts.Fetcher = source.NewFetcher("")
	}
	if opts.Capture == nil {
		opts.Capture = source.CapturePageText
	}
	if opts.RepeatWeeks <= 0 {
		opts.RepeatWeeks = 1
	}
	return &Runner{opts: opts, schedule: sched, seen: make(map[string]time.Time)}, nil
}

// Start runs once immediately, then on every schedule tick until ctx is
// canceled. It blocks.
func (r *Runner) Start(ctx context.Context) error {
	c := cron.New()
	c.Schedule(r.schedule, cron.FuncJob(func() { r.tick(ctx) }))

	appLog.Info("inbox runner started",
		"dir", r.opts.Inbox.Dir,
		"out_dir", r.opts.Inbox.OutDir,
		"schedule", r.opts.Inbox.Schedule,
		"sources", len(r.opts.Sources),
	)
	r.tick(ctx)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("inbox runner stopped")
	return nil
}

func (r *Runner) tick(ctx context.Context) {
	if !r.run.TryLock() {
		appLog.Warn("inbox run still in progress; skipping tick")
		return
	}
	defer r.run.Unlock()

	rep, err := r.process(ctx)
	if err != nil {
		appLog.Error("inbox run failed", err)
		return
	}
	appLog.Info("inbox run completed",
		"converted", len(rep.Converted),
		"unchanged", rep.Unchanged,
		"empty", rep.Empty,
		"failed", rep.Failed,
	)
}

// ProcessOnce performs a single run.
func (r *Runner) ProcessOnce(ctx context.Context) (Report, error) {
	r.run.Lock()
	defer r.run.Unlock()
	return r.process(ctx)
}

func (r *Runner) process(ctx context.Context) (Report, error) {
	var rep Report
	if err := os.MkdirAll(r.opts.Inbox.OutDir, 0o755); err != nil {
		return rep, errors.Wrap(err, "create out_dir")
	}

	files, err := r.inboxFiles()
	if err != nil {
		return rep, err
	}
	for _, path := range files {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		info, err := os.Stat(path)
		if err != nil {
			rep.Failed++
			appLog.Error("inbox stat failed", err, "path", path)
			continue
		}
		if last, ok := r.seen[path]; ok && last.Equal(info.ModTime()) {
			rep.Unchanged++
			continue
		}

		body, err := source.ReadFile(path, 0)
		if err != nil {
			rep.Failed++
			appLog.Error("inbox read failed", err, "path", path)
			continue
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		r.record(&rep, name, path, body)
		r.seen[path] = info.ModTime()
	}

	for _, sc := range r.opts.Sources {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		body, err := r.pull(ctx, sc)
		if err != nil {
			rep.Failed++
			appLog.Error("source pull failed", err, "id", sc.ID, "mode", sc.Mode)
			continue
		}
		r.record(&rep, sc.ID, "source:"+sc.ID, body)
	}
	return rep, nil
}

func (r *Runner) inboxFiles() ([]string, error) {
	entries, err := os.ReadDir(r.opts.Inbox.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read inbox dir")
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt", ".html", ".htm":
			out = append(out, filepath.Join(r.opts.Inbox.Dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *Runner) pull(ctx context.Context, sc config.SourceConfig) ([]byte, error) {
	if sc.Mode == config.ModeBrowser {
		text, err := r.opts.Capture(ctx, source.BrowserOptions{URL: sc.URL, WaitSelector: sc.WaitSelector})
		if err != nil {
			return nil, err
		}
		return []byte(text), nil
	}
	res, err := r.opts.Fetcher.FetchOne(ctx, source.Remote{ID: sc.ID, URL: sc.URL})
	if err != nil {
		return nil, err
	}
	return res.Text()
}

// record parses body and writes its outputs, updating rep.
func (r *Runner) record(rep *Report, name, origin string, body []byte) {
	if !utf8.Valid(body) {
		rep.Failed++
		appLog.Error("input rejected", timetable.ErrInvalidInput, "origin", origin)
		return
	}
	res := r.opts.Parser.Analyze(string(body))
	if len(res.Events) == 0 {
		rep.Empty++
		appLog.Warn("no events recognized", "origin", origin, "blocks", res.Blocks, "truncated", res.Truncated)
		return
	}
	if err := r.write(name, origin, res); err != nil {
		rep.Failed++
		appLog.Error("output write failed", err, "origin", origin)
		return
	}
	rep.Converted = append(rep.Converted, name)
	appLog.Info("timetable converted",
		"origin", origin,
		"events", len(res.Events),
		"grammar", res.Grammar,
		"anchor", res.Anchor.Format(model.DateLayout),
		"anchor_from_text", res.AnchorFromText,
	)
}

// Output is the JSON document written next to each calendar.
type Output struct {
	Source      string        `json:"source"`
	Grammar     string        `json:"grammar"`
	GeneratedAt time.Time     `json:"generated_at"`
	RepeatWeeks int           `json:"repeat_weeks"`
	Events      []model.Event `json:"events"`
}

func (r *Runner) write(name, origin string, res timetable.Result) error {
	cal := ics.Encode(res.Events, ics.EncodeOptions{
		Name:        name,
		Scope:       origin,
		RepeatWeeks: r.opts.RepeatWeeks,
	})
	doc, err := json.MarshalIndent(Output{
		Source:      origin,
		Grammar:     res.Grammar,
		GeneratedAt: time.Now().UTC(),
		RepeatWeeks: r.opts.RepeatWeeks,
		Events:      res.Events,
	}, "", "  ")
	if err != nil {
		return err
	}

	base := filepath.Join(r.opts.Inbox.OutDir, name)
	if err := writeFileAtomic(base+".ics", []byte(cal)); err != nil {
		return err
	}
	return writeFileAtomic(base+".json", doc)
}

// writeFileAtomic writes via a temp file + rename so subscribers never see
// a half-written calendar.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tkbcal-out-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
