package workbook

import (
	"context"
	"sync"

	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/port"
)

// Cached wraps an opener so that sheet lists and sheet matrices are read
// once per TTL window. A posição workbook feeds six report kinds; with the
// cache each of its sheets is parsed a single time per run.
//
// Cached matrices are shared between callers and must not be mutated.
type Cached struct {
	inner port.WorkbookOpener
	cache port.Cache[any]
}

// NewCached creates a caching opener over inner.
func NewCached(inner port.WorkbookOpener, cache port.Cache[any]) *Cached {
	return &Cached{inner: inner, cache: cache}
}

func namesKey(name string) string { return "sheets:" + name }
func sheetKey(name, sheet string) string { return "sheet:" + name + "\x00" + sheet }

// Open returns a workbook whose reads go through the cache. The underlying
// file is only opened when something is not cached yet.
func (c *Cached) Open(ctx context.Context, name string) (port.Workbook, error) {
	w := &cachedWorkbook{ctx: ctx, name: name, owner: c}
	if v, ok := c.cache.Get(namesKey(name)); ok {
		if names, ok := v.([]string); ok {
			w.names = names
			return w, nil
		}
	}
	if err := w.ensure(); err != nil {
		return nil, err
	}
	w.names = w.inner.SheetNames()
	c.cache.Set(namesKey(name), w.names)
	return w, nil
}

type cachedWorkbook struct {
	ctx   context.Context
	name  string
	owner *Cached
	names []string

	mu    sync.Mutex
	inner port.Workbook
}

func (w *cachedWorkbook) ensure() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inner != nil {
		return nil
	}
	inner, err := w.owner.inner.Open(w.ctx, w.name)
	if err != nil {
		return err
	}
	w.inner = inner
	return nil
}

func (w *cachedWorkbook) SheetNames() []string { return w.names }

func (w *cachedWorkbook) ReadSheet(sheet string) ([][]string, error) {
	key := sheetKey(w.name, sheet)
	if v, ok := w.owner.cache.Get(key); ok {
		if rows, ok := v.([][]string); ok {
			return rows, nil
		}
	}
	if err := w.ensure(); err != nil {
		return nil, err
	}
	rows, err := w.inner.ReadSheet(sheet)
	if err != nil {
		return nil, err
	}
	w.owner.cache.Set(key, rows)
	return rows, nil
}

func (w *cachedWorkbook) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inner == nil {
		return nil
	}
	return w.inner.Close()
}
