// Package filename decodes CEI statement filenames such as
// "posicao-2023-01-31.xlsx" or "movimentacao-2023-01-01-a-2023-01-31.xlsx"
// into a report kind and a reference date.
package filename

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/domain"
)

// Decoded is the metadata carried by a statement filename.
type Decoded struct {
	// Kind is the free-form lower-kebab report prefix ("posicao", "eventos").
	Kind string
	// Date is the reference date at UTC midnight.
	Date time.Time
}

var (
	yearToken = regexp.MustCompile(`\d{4}`)
	// Browsers append " (1)" to repeated downloads of the same export.
	copySuffix = regexp.MustCompile(`\s*\(\d+\)$`)

	dateOnly  = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})$`)
	timestamp = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-\d{2}-\d{2}-\d{2}$`)
	dateRange = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}-a-(\d{4}-\d{2}-\d{2})$`)
)

// Stem returns the path tail without its extension.
func Stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Decode splits a filename into report kind and reference date. Paths and
// extensions are tolerated. A range "A-a-B" resolves to its second endpoint.
func Decode(name string) (Decoded, error) {
	stem := copySuffix.ReplaceAllString(Stem(name), "")

	loc := yearToken.FindStringIndex(stem)
	if loc == nil {
		return Decoded{}, &domain.ErrInvalidFilename{Name: name, Reason: "no year-like token"}
	}

	kind := strings.ToLower(strings.TrimRight(stem[:loc[0]], "-_ "))
	if kind == "" {
		return Decoded{}, &domain.ErrInvalidFilename{Name: name, Reason: "missing report kind"}
	}

	suffix := stem[loc[0]:]
	var raw string
	for _, re := range []*regexp.Regexp{dateOnly, timestamp, dateRange} {
		if m := re.FindStringSubmatch(suffix); m != nil {
			raw = m[1]
			break
		}
	}
	if raw == "" {
		return Decoded{}, &domain.ErrInvalidFilename{Name: name, Reason: "unrecognized date format " + suffix}
	}

	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return Decoded{}, &domain.ErrInvalidFilename{Name: name, Reason: err.Error()}
	}
	return Decoded{Kind: kind, Date: date}, nil
}
