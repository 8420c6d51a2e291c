// Package timetable turns free timetable text (OCR output, text pasted from
// a student portal) into calendar events.
//
// Parsing is a pure function of the input text and the parser's clock: it
// performs no I/O, keeps no state between calls and is safe for concurrent
// use. Text that matches nothing yields no events rather than an error.
package timetable

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"tkbcal/internal/model"
)

const (
	// DefaultMaxInputRunes caps the text a single call looks at.
	DefaultMaxInputRunes = 20000

	// PlaceholderStart and PlaceholderEnd are used when a layout gives
	// neither a clock range nor a period.
	PlaceholderStart model.Clock = 8 * 60
	PlaceholderEnd   model.Clock = 9 * 60
)

// ErrInvalidInput is returned by ParseBytes for input that is not UTF-8 text.
var ErrInvalidInput = errors.New("timetable: input is not valid UTF-8 text")

// Option configures a Parser.
type Option func(*Parser)

// WithNow sets the clock used for "today". Tests pin it.
func WithNow(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLocation sets the zone dates are resolved in.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// WithMaxInput caps the number of runes examined per call.
func WithMaxInput(runes int) Option {
	return func(p *Parser) {
		if runes > 0 {
			p.maxInput = runes
		}
	}
}

// Parser extracts events from timetable text. It is immutable once built.
type Parser struct {
	now      func() time.Time
	loc      *time.Location
	maxInput int
}

// NewParser creates a parser. Without options it uses time.Now in
// time.Local and DefaultMaxInputRunes.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		now:      time.Now,
		loc:      time.Local,
		maxInput: DefaultMaxInputRunes,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = NewParser()

// Parse extracts events from text with the default parser.
func Parse(text string) []model.Event {
	return defaultParser.Parse(text)
}

// Result is the outcome of one parse call plus what the caller may want to
// log about it.
type Result struct {
	Events []model.Event

	// Grammar names the layout that produced Events; empty when none did.
	Grammar string

	Anchor         time.Time
	AnchorFromText bool

	Blocks    int
	Truncated bool
}

// Parse extracts events from text.
func (p *Parser) Parse(text string) []model.Event {
	return p.Analyze(text).Events
}

// ParseBytes is Parse for raw bytes; it rejects input that is not UTF-8.
func (p *Parser) ParseBytes(b []byte) ([]model.Event, error) {
	if !utf8.Valid(b) {
		return nil, ErrInvalidInput
	}
	return p.Parse(string(b)), nil
}

// Analyze runs the grammar chain over text. The first grammar producing at
// least one event wins.
func (p *Parser) Analyze(text string) Result {
	text, truncated := p.normalize(text)
	doc := p.newDocument(text)

	res := Result{
		Events:         []model.Event{},
		Anchor:         doc.anchor,
		AnchorFromText: doc.anchorFromText,
		Blocks:         len(doc.blocks),
		Truncated:      truncated,
	}
	if len(doc.blocks) == 0 {
		return res
	}

	for _, g := range grammarChain() {
		if events := assemble(g.match(doc), doc); len(events) > 0 {
			res.Events = events
			res.Grammar = g.name()
			break
		}
	}
	return res
}

// DefaultDate is the date that stands in when the text gives none: today in
// the parser's location. It anchors text without a week header and dates
// line-classifier events that carry no dd/mm/yyyy.
func (p *Parser) DefaultDate() time.Time {
	return midnight(p.now().In(p.loc))
}

func (p *Parser) newDocument(text string) *document {
	today := p.DefaultDate()
	anchor, fromText := ResolveAnchor(text, today)
	markers := findMarkers(text)
	return &document{
		text:           text,
		markers:        markers,
		blocks:         segment(text, markers),
		today:          today,
		anchor:         anchor,
		anchorFromText: fromText,
	}
}

var whitespaceReplacer = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\t", " ",
	"\u00a0", " ", // no-break space
	"\u2007", " ",
	"\u202f", " ",
	"\u200b", "", // zero width space
	"\ufeff", "",
)

// normalize makes text safe and uniform to match: valid UTF-8, NFC so
// decomposed diacritics match the patterns, LF line ends, plain spaces, and
// at most maxInput runes.
func (p *Parser) normalize(text string) (string, bool) {
	text = strings.ToValidUTF8(text, "\ufffd")
	text = norm.NFC.String(text)
	text = whitespaceReplacer.Replace(text)

	truncated := false
	if utf8.RuneCountInString(text) > p.maxInput {
		text = text[:forwardRunes(text, 0, p.maxInput)]
		truncated = true
	}
	return text, truncated
}
