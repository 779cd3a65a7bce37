package domain

import (
	"io"
	"iter"
	"math"
	"strconv"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// DateLayout is the layout used when a date cell is rendered as text.
const DateLayout = "2006-01-02"

// Row is one canonical record. Values are aligned with the owning table's
// columns; a nil value is a null cell. Non-nil values are string, float64,
// bool or time.Time according to the column type.
type Row []any

// Table is the consolidated output of one report kind. Its column list
// depends only on the kind, so an empty table still carries the schema.
type Table struct {
	Kind    Kind
	Columns []Column
	rows    []Row
	index   map[string]int
}

// NewTable creates an empty table with the canonical columns of kind.
func NewTable(kind Kind) *Table {
	cols := kind.Columns()
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		index[c.Name] = i
	}
	return &Table{Kind: kind, Columns: cols, index: index}
}

// Append adds rows in order. Rows must match the table width.
func (t *Table) Append(rows ...Row) {
	t.rows = append(t.rows, rows...)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// ColumnNames returns the column names in declared order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Row returns the i-th row.
func (t *Table) Row(i int) Row { return t.rows[i] }

// Value returns the cell of row i under column name, or nil when the
// column is not part of the schema.
func (t *Table) Value(i int, name string) any {
	j, ok := t.index[name]
	if !ok {
		return nil
	}
	return t.rows[i][j]
}

// All yields rows in insertion order. Breaking out of the loop stops the
// iteration.
func (t *Table) All() iter.Seq2[int, Row] {
	return func(yield func(int, Row) bool) {
		for i, r := range t.rows {
			if !yield(i, r) {
				return
			}
		}
	}
}

// DataFrame materializes the table as a typed gota dataframe. Decimal
// columns become float series and bool columns bool series; the rest are
// text, dates rendered with DateLayout. Nulls are NA in every column.
func (t *Table) DataFrame() dataframe.DataFrame {
	cols := make([]series.Series, len(t.Columns))
	for j, c := range t.Columns {
		switch c.Type {
		case TypeDecimal:
			vals := make([]float64, len(t.rows))
			for i, r := range t.rows {
				if f, ok := r[j].(float64); ok {
					vals[i] = f
				} else {
					vals[i] = math.NaN()
				}
			}
			cols[j] = series.New(vals, series.Float, c.Name)
		case TypeBool:
			vals := make([]any, len(t.rows))
			for i, r := range t.rows {
				vals[i] = r[j]
			}
			cols[j] = series.New(vals, series.Bool, c.Name)
		default:
			vals := make([]any, len(t.rows))
			for i, r := range t.rows {
				if r[j] != nil {
					vals[i] = FormatValue(r[j])
				}
			}
			cols[j] = series.New(vals, series.String, c.Name)
		}
	}
	return dataframe.New(cols...)
}

// WriteJSON writes the rows as a JSON array of objects keyed by column
// name, with nulls as JSON null.
func (t *Table) WriteJSON(w io.Writer) error {
	return t.DataFrame().WriteJSON(w)
}

// WriteCSV writes the header and every row as CSV. Values are rendered by
// FormatValue, so nulls are empty fields.
func (t *Table) WriteCSV(w io.Writer) error {
	cols := make([]series.Series, len(t.Columns))
	for j, c := range t.Columns {
		cols[j] = t.text(j, c.Name)
	}
	df := dataframe.New(cols...)
	if df.Err != nil {
		return df.Err
	}
	return df.WriteCSV(w)
}

func (t *Table) text(j int, name string) series.Series {
	vals := make([]string, len(t.rows))
	for i, r := range t.rows {
		vals[i] = FormatValue(r[j])
	}
	return series.New(vals, series.String, name)
}

// FormatValue renders a cell value as text.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(DateLayout)
		}
		return x.Format(time.DateTime)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}
