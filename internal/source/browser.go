package source

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
)

// DefaultBrowserTimeout bounds a whole headless capture.
const DefaultBrowserTimeout = 30 * time.Second

// BrowserOptions defines a headless Chromium capture of a timetable page.
type BrowserOptions struct {
	URL string

	// WaitSelector is the element that signals the timetable has rendered,
	// e.g. "#tkb-table". Empty waits for <body> only.
	WaitSelector string

	// Timeout bounds the entire capture. Zero uses DefaultBrowserTimeout.
	Timeout time.Duration
}

// CapturePageText renders opts.URL in headless Chromium via chromedp, waits
// for the timetable to appear and returns the rendered DOM as parser input.
// It is meant for portals that build the timetable in JavaScript, where a
// plain GET only returns an empty shell.
func CapturePageText(parentCtx context.Context, opts BrowserOptions) (string, error) {
	if opts.URL == "" {
		return "", errors.New("capture: URL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultBrowserTimeout
	}
	waitFor := opts.WaitSelector
	if waitFor == "" {
		waitFor = "body"
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var html string
	tasks := chromedp.Tasks{
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(waitFor, chromedp.ByQuery),
		// Let late XHR-driven cells settle.
		chromedp.Sleep(300 * time.Millisecond),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return "", errors.Wrapf(err, "capture %s", redactURL(opts.URL))
	}

	return HTMLToText([]byte(html))
}
