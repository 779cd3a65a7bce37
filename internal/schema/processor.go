package schema

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/domain"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/filename"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/port"

	"go.uber.org/zap"
)

// Skip reasons, used as log fields and metric labels.
const (
	ReasonInvalidFilename = "invalid_filename"
	ReasonOtherKind       = "other_kind"
	ReasonFileNotFound    = "file_not_found"
	ReasonUnreadable      = "unreadable"
	ReasonSheetMissing    = "sheet_missing"
	ReasonSheetEmpty      = "sheet_empty"
	ReasonEssential       = "essential_column_missing"
	ReasonUnexpected      = "unexpected_error"
)

// Stats summarizes one Process call.
type Stats struct {
	FilesProcessed int
	FilesSkipped   map[string]int
	SheetsSkipped  map[string]int
	RowsDropped    int
}

func newStats() Stats {
	return Stats{FilesSkipped: map[string]int{}, SheetsSkipped: map[string]int{}}
}

// Options tune error propagation.
type Options struct {
	// FailOnUnreadable makes an unreadable workbook abort the call instead
	// of being logged and skipped.
	FailOnUnreadable bool
}

// Processor applies one kind's spec to a list of statement files. It keeps
// no state between calls.
type Processor struct {
	spec   Spec
	opener port.WorkbookOpener
	opts   Options
	logger *zap.Logger
}

// NewProcessor creates the processor of kind.
func NewProcessor(kind domain.Kind, opener port.WorkbookOpener, opts Options, logger *zap.Logger) (*Processor, error) {
	spec, err := Lookup(kind)
	if err != nil {
		return nil, err
	}
	return &Processor{
		spec:   spec,
		opener: opener,
		opts:   opts,
		logger: logger.With(zap.String("kind", string(kind))),
	}, nil
}

// Kind returns the processed kind.
func (p *Processor) Kind() domain.Kind { return p.spec.Kind }

// Process reads every file in order and returns their rows concatenated.
// Per-file and per-sheet problems are logged and skipped; only context
// cancellation and, with FailOnUnreadable, an unreadable workbook are
// returned as errors.
func (p *Processor) Process(ctx context.Context, files []string) (*domain.Table, Stats, error) {
	table := domain.NewTable(p.spec.Kind)
	stats := newStats()

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return table, stats, err
		}

		rows, err := p.processFile(ctx, file, &stats)
		if err != nil {
			reason := skipReason(err)
			if reason == ReasonUnreadable && p.opts.FailOnUnreadable {
				return table, stats, err
			}
			stats.FilesSkipped[reason]++
			p.logSkip(reason, file, err)
			continue
		}
		stats.FilesProcessed++
		table.Append(rows...)
	}
	return table, stats, nil
}

func (p *Processor) logSkip(reason, file string, err error) {
	fields := []zap.Field{zap.String("file", file), zap.String("reason", reason), zap.Error(err)}
	switch reason {
	case ReasonOtherKind:
		p.logger.Debug("file does not feed this kind", fields...)
	case ReasonUnexpected:
		p.logger.Error("file skipped", fields...)
	default:
		p.logger.Warn("file skipped", fields...)
	}
}

type otherKindError struct {
	prefix string
}

func (e *otherKindError) Error() string {
	return fmt.Sprintf("report prefix %q does not feed this kind", e.prefix)
}

func skipReason(err error) string {
	var (
		invalid    *domain.ErrInvalidFilename
		notFound   *domain.ErrFileNotFound
		unreadable *domain.ErrWorkbookUnreadable
		other      *otherKindError
	)
	switch {
	case errors.As(err, &invalid):
		return ReasonInvalidFilename
	case errors.As(err, &other):
		return ReasonOtherKind
	case errors.As(err, &notFound):
		return ReasonFileNotFound
	case errors.As(err, &unreadable):
		return ReasonUnreadable
	default:
		return ReasonUnexpected
	}
}

// processFile returns the rows of one file. Panics are converted into
// errors so that one malformed file cannot abort the run.
func (p *Processor) processFile(ctx context.Context, file string, stats *Stats) (rows []domain.Row, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("processor panic", zap.String("file", file), zap.Any("panic", r), zap.Stack("stack"))
			rows, err = nil, fmt.Errorf("processing %s: %v", file, r)
		}
	}()

	decoded, err := filename.Decode(file)
	if err != nil {
		return nil, err
	}
	if decoded.Kind != p.spec.Prefix {
		return nil, &otherKindError{prefix: decoded.Kind}
	}

	wb, err := p.opener.Open(ctx, file)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	for _, sheet := range p.resolveSheets(wb.SheetNames(), file, stats) {
		sheetRows, err := p.processSheet(wb, file, sheet, decoded, stats)
		if err != nil {
			var unreadable *domain.ErrWorkbookUnreadable
			if errors.As(err, &unreadable) {
				return nil, err
			}
			p.skipSheet(file, sheet, err, stats)
			continue
		}
		rows = append(rows, sheetRows...)
	}
	return rows, nil
}

// resolveSheets picks the sheets to read: the first sheet when the spec
// names none, else the first present name of every group.
func (p *Processor) resolveSheets(names []string, file string, stats *Stats) []string {
	if p.spec.Sheets == nil {
		if len(names) == 0 {
			p.skipSheet(file, "", &domain.ErrSheetMissing{File: file, Sheet: "#0"}, stats)
			return nil
		}
		return names[:1]
	}

	var out []string
	for _, group := range p.spec.Sheets {
		i := slices.IndexFunc(group, func(n string) bool { return slices.Contains(names, n) })
		if i < 0 {
			p.skipSheet(file, group[0], &domain.ErrSheetMissing{File: file, Sheet: group[0]}, stats)
			continue
		}
		out = append(out, group[i])
	}
	return out
}

func (p *Processor) skipSheet(file, sheet string, err error, stats *Stats) {
	var (
		missing   *domain.ErrSheetMissing
		empty     *domain.ErrSheetEmpty
		essential *domain.ErrEssentialColumnMissing
	)
	fields := []zap.Field{zap.String("file", file), zap.String("sheet", sheet), zap.Error(err)}
	switch {
	case errors.As(err, &missing):
		stats.SheetsSkipped[ReasonSheetMissing]++
		p.logger.Info("sheet not present", append(fields, zap.String("reason", ReasonSheetMissing))...)
	case errors.As(err, &empty):
		stats.SheetsSkipped[ReasonSheetEmpty]++
		p.logger.Warn("sheet skipped", append(fields, zap.String("reason", ReasonSheetEmpty))...)
	case errors.As(err, &essential):
		stats.SheetsSkipped[ReasonEssential]++
		p.logger.Warn("sheet skipped", append(fields, zap.String("reason", ReasonEssential))...)
	default:
		stats.SheetsSkipped[ReasonUnexpected]++
		p.logger.Warn("sheet skipped", append(fields, zap.String("reason", ReasonUnexpected))...)
	}
}

// binding resolves one canonical column against a concrete header.
type binding struct {
	src     int // -1 when the header lacks the source column
	convert Converter
	fill    any
}

func (p *Processor) processSheet(wb port.Workbook, file, sheet string, decoded filename.Decoded, stats *Stats) ([]domain.Row, error) {
	matrix, err := wb.ReadSheet(sheet)
	if err != nil {
		return nil, err
	}
	if len(matrix) < 2 {
		return nil, &domain.ErrSheetEmpty{File: file, Sheet: sheet}
	}

	header := headerIndex(matrix[0])
	var missing []string
	for _, h := range p.spec.Essential {
		if _, ok := header[h]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.ErrEssentialColumnMissing{File: file, Sheet: sheet, Columns: missing}
	}

	identifier, ok := header[p.spec.Identifier]
	if !ok {
		return nil, &domain.ErrEssentialColumnMissing{File: file, Sheet: sheet, Columns: []string{p.spec.Identifier}}
	}

	origin := p.origin(decoded.Kind, sheet)
	bindings := p.bind(header)

	type exclusion struct {
		src   int
		value string
	}
	var excludes []exclusion
	for _, e := range p.spec.Exclude {
		if i, ok := header[e.Source]; ok {
			excludes = append(excludes, exclusion{src: i, value: e.Value})
		}
	}

	rows := make([]domain.Row, 0, len(matrix)-1)
rowLoop:
	for _, cells := range matrix[1:] {
		if cells[identifier] == "" {
			stats.RowsDropped++
			continue
		}
		for _, e := range excludes {
			if cells[e.src] == e.value {
				stats.RowsDropped++
				continue rowLoop
			}
		}

		row := make(domain.Row, len(bindings))
		for j, b := range bindings {
			if b.convert == nil || b.src < 0 {
				row[j] = b.fill
				continue
			}
			row[j] = b.convert(cells[b.src])
		}
		row[len(row)-2] = origin
		row[len(row)-1] = decoded.Date
		rows = append(rows, row)
	}

	p.logger.Debug("sheet loaded",
		zap.String("file", file),
		zap.String("sheet", sheet),
		zap.Int("rows", len(rows)),
	)
	return rows, nil
}

// bind maps every canonical column to its source index in header. The
// last two columns are the provenance pair and are filled per row.
func (p *Processor) bind(header map[string]int) []binding {
	cols := p.spec.Kind.Columns()
	out := make([]binding, len(cols))
	for j, c := range cols {
		out[j] = binding{src: -1}
		for _, f := range p.spec.Fields {
			if f.Target != c.Name {
				continue
			}
			out[j].convert = f.Convert
			out[j].fill = f.Default
			if i, ok := header[f.Source]; ok {
				out[j].src = i
			}
			break
		}
	}
	return out
}

// origin builds arquivo_origem for a sheet of a file with report prefix stem.
// The value does not carry the file's date, so two files of one report
// share it; a source file is identified by the pair (arquivo_origem,
// data_referencia).
func (p *Processor) origin(stem, sheet string) string {
	if !p.spec.SuffixSheet {
		return stem
	}
	suffix := p.spec.Suffix
	if suffix == "" {
		suffix = NormalizeSheetName(sheet)
	}
	return stem + "_" + suffix
}

// headerIndex maps each header cell to its first column index.
func headerIndex(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := m[h]; !dup && h != "" {
			m[h] = i
		}
	}
	return m
}
