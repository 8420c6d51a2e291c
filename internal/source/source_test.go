package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const portalPage = `<!DOCTYPE html>
<html><head><title>Cổng sinh viên</title><style>.tkb { color: red }</style></head>
<body>
<h2>Tuần 20 (12/05/2025 - 18/05/2025)</h2>
<table class="tkb">
  <tr><td>Thứ 6</td><td>Tiết 1 - 2</td></tr>
  <tr><td>Phát triển   ứng dụng di động<br>Phòng: <b>K23-101</b></td></tr>
</table>
<script>var session = "abc";</script>
</body></html>`

func nonEmptyLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func TestHTMLToText(t *testing.T) {
	text, err := HTMLToText([]byte(portalPage))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Tuần 20 (12/05/2025 - 18/05/2025)",
		"Thứ 6",
		"Tiết 1 - 2",
		"Phát triển ứng dụng di động",
		"Phòng: K23-101",
	}, nonEmptyLines(text))
	assert.NotContains(t, text, "session")
	assert.NotContains(t, text, "Cổng sinh viên")
	assert.NotContains(t, text, "\n\n\n")
}

func TestIsHTML(t *testing.T) {
	assert.True(t, IsHTML("tkb.html", "", nil))
	assert.False(t, IsHTML("tkb.txt", "", []byte("<html>")))
	assert.True(t, IsHTML("", "text/html; charset=utf-8", nil))
	assert.True(t, IsHTML("", "", []byte("  <!DOCTYPE html><html>")))
	assert.False(t, IsHTML("", "", []byte("Thứ 2\nTiết 1 - 2")))
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "tkb.txt")
	require.NoError(t, os.WriteFile(txt, []byte("Thứ 2\nTiết 1 - 2\nToán"), 0o600))
	body, err := ReadFile(txt, 0)
	require.NoError(t, err)
	assert.Equal(t, "Thứ 2\nTiết 1 - 2\nToán", string(body))

	page := filepath.Join(dir, "tkb.html")
	require.NoError(t, os.WriteFile(page, []byte(portalPage), 0o600))
	body, err = ReadFile(page, 0)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Phòng: K23-101")

	_, err = ReadFile(txt, 4)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = ReadFile(filepath.Join(dir, "missing.txt"), 0)
	assert.Error(t, err)
}

func TestFetcherCaches(t *testing.T) {
	var hits, notModified atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(portalPage))
	}))

	f := NewFetcher(t.TempDir())
	src := Remote{ID: "portal", URL: srv.URL + "/tkb?token=secret"}

	first, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	text, err := first.Text()
	require.NoError(t, err)
	assert.Contains(t, string(text), "Tiết 1 - 2")

	second, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, "text/html; charset=utf-8", second.ContentType)
	assert.Equal(t, int32(1), notModified.Load())

	srv.Close()
	third, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, third.FromCache)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetcherErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	_, err := f.FetchOne(context.Background(), Remote{ID: "x", URL: srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	_, err = f.FetchOne(context.Background(), Remote{ID: "empty"})
	assert.Error(t, err)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://portal.example.edu/...(redacted)", redactURL("https://portal.example.edu/tkb?sid=1"))
	assert.Equal(t, "page://...(redacted)", redactURL("not a url"))
}
