package source

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// DefaultMaxFileBytes bounds what ReadFile loads; timetable dumps are far
// smaller.
const DefaultMaxFileBytes = 4 << 20

// ErrTooLarge is returned when an input exceeds its byte limit.
var ErrTooLarge = errors.New("input too large")

// ReadFile reads a local timetable dump ("-" reads stdin) and returns it as
// parser input. HTML files are reduced to text.
func ReadFile(path string, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxFileBytes
	}

	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "open input")
		}
		defer f.Close()
		r = f
	}

	body, err := readLimited(r, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return ToText(path, "", body)
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, ErrTooLarge
	}
	return body, nil
}
