package source

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

// blockElements end a line in the extracted text. Table cells count as
// blocks: portals put one day or one class per cell.
var blockElements = map[string]bool{
	"address": true, "article": true, "blockquote": true, "br": true,
	"dd": true, "div": true, "dl": true, "dt": true, "footer": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "ol": true, "p": true,
	"pre": true, "section": true, "table": true, "tbody": true, "td": true,
	"tfoot": true, "th": true, "thead": true, "tr": true, "ul": true,
}

var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"head": true, "iframe": true, "svg": true,
}

// HTMLToText reduces a timetable page to the line-oriented text the parser
// reads. Block elements and table cells end lines; scripts and styles are
// dropped.
func HTMLToText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "parse html")
	}

	var b strings.Builder
	walk(&b, doc.Selection)
	return tidyLines(b.String()), nil
}

func walk(b *strings.Builder, s *goquery.Selection) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		name := goquery.NodeName(c)
		switch {
		case name == "#text":
			b.WriteString(c.Text())
		case skippedElements[name]:
		case blockElements[name]:
			b.WriteByte('\n')
			walk(b, c)
			b.WriteByte('\n')
		default:
			walk(b, c)
		}
	})
}

// tidyLines collapses horizontal whitespace inside lines and drops blank
// lines, so a cell's title and its label line stay adjacent.
func tidyLines(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// IsHTML guesses whether a payload is an HTML page, from its name or
// content type first and its first bytes otherwise.
func IsHTML(name, contentType string, body []byte) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm", ".xhtml":
		return true
	case ".txt":
		return false
	}
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	head := bytes.ToLower(bytes.TrimSpace(body[:min(len(body), 512)]))
	return bytes.HasPrefix(head, []byte("<!doctype html")) ||
		bytes.HasPrefix(head, []byte("<html")) ||
		bytes.Contains(head, []byte("<body")) ||
		bytes.Contains(head, []byte("<table"))
}

// ToText returns body as parser input, converting HTML pages to text.
func ToText(name, contentType string, body []byte) ([]byte, error) {
	if !IsHTML(name, contentType, body) {
		return body, nil
	}
	text, err := HTMLToText(body)
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}
