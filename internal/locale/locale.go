// Package locale parses untyped spreadsheet cells written with Brazilian
// conventions: "1.234,56" decimals, DD/MM/YYYY dates, formatted CNPJs.
//
// Every converter is total. A value that cannot be interpreted yields the
// zero value and false; nothing here returns an error or panics, so a
// badly formatted cell can never abort a consolidation run.
package locale

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Default date layouts, tried after any caller-supplied layout.
const (
	LayoutISODate = "2006-01-02"
	LayoutBRDate  = "02/01/2006"
)

var (
	dateLayouts = []string{LayoutISODate, LayoutBRDate}

	// Best-effort ISO 8601 shapes, tried last.
	isoLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		time.DateTime,
	}

	dateTimeLayouts = []string{
		time.DateTime,
		"02/01/2006 15:04:05",
		"02/01/2006 15:04",
	}

	nonNumeric = regexp.MustCompile(`[^0-9,.\-]`)
	spaceRuns  = regexp.MustCompile(` {2,}`)
)

// ToDecimal converts a cell to a float. Strings use "." as thousands
// separator and "," as decimal separator; "" and "-" are null.
func ToDecimal(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		return x, !math.IsNaN(x) && !math.IsInf(x, 0)
	case float32:
		return ToDecimal(float64(x))
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case decimal.Decimal:
		return x.InexactFloat64(), true
	case string:
		return parseBRDecimal(x)
	default:
		return 0, false
	}
}

func parseBRDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ".", "")
	s = nonNumeric.ReplaceAllString(s, "")
	s = strings.Replace(s, ",", ".", 1)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// ToInteger is ToDecimal truncated toward zero. Values outside the int64
// range are null.
func ToInteger(v any) (int64, bool) {
	f, ok := ToDecimal(v)
	if !ok {
		return 0, false
	}
	f = math.Trunc(f)
	if f < math.MinInt64 || f >= -math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// ToDate converts a cell to a date at UTC midnight. Layouts are Go
// reference layouts tried before the defaults: ISO, Brazilian, then a
// best-effort ISO 8601 pass.
func ToDate(v any, layouts ...string) (time.Time, bool) {
	t, ok := toTime(v, layouts, nil)
	if !ok {
		return time.Time{}, false
	}
	return dateOf(t), true
}

// ToDateTime is ToDate keeping the time of day.
func ToDateTime(v any, layouts ...string) (time.Time, bool) {
	return toTime(v, layouts, dateTimeLayouts)
}

func toTime(v any, custom, extra []string) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return time.Time{}, false
		}
		return x, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		for _, group := range [][]string{custom, extra, dateLayouts, isoLayouts} {
			for _, layout := range group {
				if t, err := time.Parse(layout, s); err == nil {
					return t, true
				}
			}
		}
	}
	return time.Time{}, false
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var boolWords = map[string]bool{
	"S": true, "SIM": true, "TRUE": true, "1": true, "T": true, "Y": true, "YES": true, "VERDADEIRO": true,
	"N": false, "NAO": false, "NÃO": false, "FALSE": false, "0": false, "F": false, "NO": false, "FALSO": false,
}

// ToBool maps Portuguese and English yes/no words, case-insensitively.
func ToBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		b, ok := boolWords[strings.ToUpper(strings.TrimSpace(x))]
		return b, ok
	}
	return false, false
}

// CleanCNPJ strips CNPJ punctuation and accepts exactly 14 digits.
func CleanCNPJ(s string) (string, bool) {
	r := strings.NewReplacer(".", "", "/", "", "-", "")
	s = r.Replace(strings.TrimSpace(s))
	if len(s) != 14 {
		return "", false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return "", false
		}
	}
	return s, true
}

// FormatCNPJ renders 14 digits as NN.NNN.NNN/NNNN-NN.
func FormatCNPJ(digits string) string {
	if len(digits) != 14 {
		return digits
	}
	return digits[0:2] + "." + digits[2:5] + "." + digits[5:8] + "/" + digits[8:12] + "-" + digits[12:14]
}

// CollapseWhitespace replaces every run of two or more spaces with one.
func CollapseWhitespace(s string) string {
	return spaceRuns.ReplaceAllString(s, " ")
}
