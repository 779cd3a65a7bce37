// Package workbook loads CEI spreadsheets into rectangular string matrices.
// Numeric and date cells are rendered in the Brazilian text conventions the
// statement converters parse.
package workbook

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/domain"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/infra/resilience"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/port"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// excelWorkbook adapts an excelize file to port.Workbook.
type excelWorkbook struct {
	name string
	file *excelize.File
	once sync.Once
	err  error
}

func (w *excelWorkbook) SheetNames() []string {
	return w.file.GetSheetList()
}

func (w *excelWorkbook) ReadSheet(sheet string) ([][]string, error) {
	if !slices.Contains(w.SheetNames(), sheet) {
		return nil, &domain.ErrSheetMissing{File: w.name, Sheet: sheet}
	}
	rows, err := w.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &domain.ErrWorkbookUnreadable{File: w.name, Err: err}
	}
	if err := w.typedCells(sheet, rows); err != nil {
		return nil, &domain.ErrWorkbookUnreadable{File: w.name, Err: err}
	}
	return Rectangular(rows), nil
}

// typedCells rewrites numeric cells in place so the string converters read
// them like typed-in text: plain numbers use "," as decimal separator with
// no grouping, date-formatted serials become ISO dates.
func (w *excelWorkbook) typedCells(sheet string, rows [][]string) error {
	props, err := w.file.GetWorkbookProps()
	if err != nil {
		return err
	}
	date1904 := props.Date1904 != nil && *props.Date1904
	dateStyles := make(map[int]bool)

	for r, row := range rows {
		for c, v := range row {
			if v == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			typ, err := w.file.GetCellType(sheet, cell)
			if err != nil {
				return err
			}
			if typ != excelize.CellTypeUnset && typ != excelize.CellTypeNumber {
				continue
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				continue
			}

			styleID, err := w.file.GetCellStyle(sheet, cell)
			if err != nil {
				return err
			}
			isDate, seen := dateStyles[styleID]
			if !seen {
				isDate = w.isDateStyle(styleID)
				dateStyles[styleID] = isDate
			}

			if isDate {
				if t, err := excelize.ExcelDateToTime(f, date1904); err == nil {
					row[c] = FormatTime(t)
					continue
				}
			}
			row[c] = FormatNumber(f)
		}
	}
	return nil
}

func (w *excelWorkbook) isDateStyle(styleID int) bool {
	if styleID == 0 {
		return false
	}
	style, err := w.file.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return isDateFormat(*style.CustomNumFmt)
	}
	return isBuiltInDateFormat(style.NumFmt)
}

// Built-in number formats 14-22 and 45-47 are dates or times; the
// locale-specific ranges are the East Asian date formats.
func isBuiltInDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22, id >= 45 && id <= 47:
		return true
	case id >= 27 && id <= 36, id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormat reports whether a custom number format code renders a date
// or time: it has a y, m, d, h or s token outside quoted literals,
// bracketed sections and escaped characters.
func isDateFormat(code string) bool {
	inQuote, inBracket, escaped := false, false, false
	for _, r := range strings.ToLower(code) {
		switch {
		case escaped:
			escaped = false
		case inQuote:
			inQuote = r != '"'
		case inBracket:
			inBracket = r != ']'
		case r == '\\', r == '_', r == '*':
			escaped = true
		case r == '"':
			inQuote = true
		case r == '[':
			inBracket = true
		case r == ';':
			return false
		case strings.ContainsRune("ymdhs", r):
			return true
		}
	}
	return false
}

// FormatNumber renders a numeric cell without grouping and with ","
// as decimal separator.
func FormatNumber(f float64) string {
	return strings.Replace(strconv.FormatFloat(f, 'f', -1, 64), ".", ",", 1)
}

// FormatTime renders a date cell as YYYY-MM-DD, keeping the time of day
// only when it is set.
func FormatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.DateTime)
}

func (w *excelWorkbook) Close() error {
	w.once.Do(func() { w.err = w.file.Close() })
	return w.err
}

// Rectangular pads ragged rows to the widest row and trims every cell.
func Rectangular(rows [][]string) [][]string {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		cells := make([]string, width)
		for j, c := range r {
			cells[j] = strings.TrimSpace(c)
		}
		out[i] = cells
	}
	return out
}

// FileOpener opens workbooks from the local filesystem.
type FileOpener struct {
	retry  resilience.Config
	logger *zap.Logger
}

// NewFileOpener creates an opener that retries transient open failures.
func NewFileOpener(retry resilience.Config, logger *zap.Logger) *FileOpener {
	return &FileOpener{retry: retry, logger: logger}
}

// Open opens the workbook at path. A missing file is reported as
// domain.ErrFileNotFound without retrying.
func (o *FileOpener) Open(ctx context.Context, path string) (port.Workbook, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, &domain.ErrFileNotFound{File: path}
	}

	var f *excelize.File
	attempt := 0
	err := resilience.RetryWithBackoff(ctx, o.retry, func() error {
		attempt++
		var err error
		f, err = excelize.OpenFile(path)
		if err != nil && attempt <= o.retry.MaxRetries {
			o.logger.Debug("workbook open failed, retrying",
				zap.String("file", path),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return err
	})
	if err != nil {
		return nil, &domain.ErrWorkbookUnreadable{File: path, Err: err}
	}
	return &excelWorkbook{name: path, file: f}, nil
}

// MemoryOpener serves workbooks from in-memory contents keyed by filename,
// used for HTTP uploads.
type MemoryOpener struct {
	files map[string][]byte
	order []string
}

// NewMemoryOpener creates an empty in-memory opener.
func NewMemoryOpener() *MemoryOpener {
	return &MemoryOpener{files: make(map[string][]byte)}
}

// Add registers contents under name. A later Add with the same name
// replaces the contents but keeps the original position.
func (o *MemoryOpener) Add(name string, data []byte) {
	if _, ok := o.files[name]; !ok {
		o.order = append(o.order, name)
	}
	o.files[name] = data
}

// Names lists registered filenames in insertion order.
func (o *MemoryOpener) Names() []string {
	return slices.Clone(o.order)
}

func (o *MemoryOpener) Open(_ context.Context, name string) (port.Workbook, error) {
	data, ok := o.files[name]
	if !ok {
		return nil, &domain.ErrFileNotFound{File: name}
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &domain.ErrWorkbookUnreadable{File: name, Err: err}
	}
	return &excelWorkbook{name: name, file: f}, nil
}
