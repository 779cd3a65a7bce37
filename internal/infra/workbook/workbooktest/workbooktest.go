// Package workbooktest builds spreadsheets for tests: real xlsx bytes via
// excelize, and an in-memory opener that counts opens.
package workbooktest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/domain"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/infra/workbook"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/port"

	"github.com/xuri/excelize/v2"
)

// Sheet is a named grid of cell values; the first row is the header.
// NumFmt and CustomNumFmt assign built-in and custom number formats to
// cells by reference (e.g. "H2"). They only affect XLSX output.
type Sheet struct {
	Name         string
	Rows         [][]any
	NumFmt       map[string]int
	CustomNumFmt map[string]string
}

// XLSX renders sheets into an xlsx document.
func XLSX(tb testing.TB, sheets ...Sheet) []byte {
	tb.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Name); err != nil {
				tb.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			tb.Fatalf("new sheet %q: %v", s.Name, err)
		}
		for r, row := range s.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				tb.Fatalf("cell name: %v", err)
			}
			values := row
			if err := f.SetSheetRow(s.Name, cell, &values); err != nil {
				tb.Fatalf("write row %d of %q: %v", r, s.Name, err)
			}
		}
		for cell, id := range s.NumFmt {
			setStyle(tb, f, s.Name, cell, &excelize.Style{NumFmt: id})
		}
		for cell, code := range s.CustomNumFmt {
			setStyle(tb, f, s.Name, cell, &excelize.Style{CustomNumFmt: &code})
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		tb.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func setStyle(tb testing.TB, f *excelize.File, sheet, cell string, style *excelize.Style) {
	tb.Helper()
	id, err := f.NewStyle(style)
	if err != nil {
		tb.Fatalf("new style for %s!%s: %v", sheet, cell, err)
	}
	if err := f.SetCellStyle(sheet, cell, cell, id); err != nil {
		tb.Fatalf("style %s!%s: %v", sheet, cell, err)
	}
}

// WriteFile writes an xlsx built from sheets to dir/name and returns its path.
func WriteFile(tb testing.TB, dir, name string, sheets ...Sheet) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, XLSX(tb, sheets...), 0o600); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Opener is an in-memory port.WorkbookOpener. Workbooks not registered
// are reported as not found; names in Broken fail as unreadable.
type Opener struct {
	mu     sync.Mutex
	books  map[string][]Sheet
	broken map[string]bool
	opens  map[string]int
	closed map[string]int
}

// NewOpener creates an empty fake opener.
func NewOpener() *Opener {
	return &Opener{
		books:  make(map[string][]Sheet),
		broken: make(map[string]bool),
		opens:  make(map[string]int),
		closed: make(map[string]int),
	}
}

// Add registers a workbook under name.
func (o *Opener) Add(name string, sheets ...Sheet) *Opener {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.books[name] = sheets
	return o
}

// Break makes Open fail for name with domain.ErrWorkbookUnreadable.
func (o *Opener) Break(name string) *Opener {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.broken[name] = true
	return o
}

// Opens reports how many times name was opened.
func (o *Opener) Opens(name string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens[name]
}

// Closes reports how many times a workbook opened under name was closed.
func (o *Opener) Closes(name string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed[name]
}

func (o *Opener) Open(_ context.Context, name string) (port.Workbook, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.broken[name] {
		return nil, &domain.ErrWorkbookUnreadable{File: name, Err: os.ErrPermission}
	}
	sheets, ok := o.books[name]
	if !ok {
		return nil, &domain.ErrFileNotFound{File: name}
	}
	o.opens[name]++
	return &fakeWorkbook{owner: o, name: name, sheets: sheets}, nil
}

type fakeWorkbook struct {
	owner  *Opener
	name   string
	sheets []Sheet
}

func (w *fakeWorkbook) SheetNames() []string {
	names := make([]string, len(w.sheets))
	for i, s := range w.sheets {
		names[i] = s.Name
	}
	return names
}

func (w *fakeWorkbook) ReadSheet(name string) ([][]string, error) {
	for _, s := range w.sheets {
		if s.Name != name {
			continue
		}
		rows := make([][]string, len(s.Rows))
		for i, r := range s.Rows {
			cells := make([]string, len(r))
			for j, c := range r {
				cells[j] = render(c)
			}
			rows[i] = cells
		}
		return workbook.Rectangular(rows), nil
	}
	return nil, &domain.ErrSheetMissing{File: w.name, Sheet: name}
}

func (w *fakeWorkbook) Close() error {
	w.owner.mu.Lock()
	defer w.owner.mu.Unlock()
	w.owner.closed[w.name]++
	return nil
}

// render mirrors how the excelize loader presents typed cells.
func render(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return workbook.FormatNumber(x)
	case float32:
		return workbook.FormatNumber(float64(x))
	case int:
		return workbook.FormatNumber(float64(x))
	case int64:
		return workbook.FormatNumber(float64(x))
	case time.Time:
		return workbook.FormatTime(x)
	default:
		return fmt.Sprint(x)
	}
}
