// Package port defines the interfaces (ports) for external dependencies.
// Processors and services depend on these instead of on excelize or the
// filesystem directly.
package port

import "context"

// Workbook is an opened spreadsheet. Implementations must be safe to Close
// more than once.
type Workbook interface {
	// SheetNames lists the sheet names in workbook order.
	SheetNames() []string
	// ReadSheet materializes a sheet as a rectangular matrix of trimmed
	// strings. The first row is the header.
	ReadSheet(name string) ([][]string, error)
	Close() error
}

// WorkbookOpener resolves a statement name (a path, or an upload filename)
// to an opened workbook.
type WorkbookOpener interface {
	Open(ctx context.Context, name string) (Workbook, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
