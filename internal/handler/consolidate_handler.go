package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/domain"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/infra/observability"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/infra/workbook"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// uploadField is the multipart field carrying statement files.
const uploadField = "files"

type tableResponse struct {
	RunID   string      `json:"run_id"`
	Kind    domain.Kind `json:"kind"`
	Columns []string    `json:"columns"`
	Rows    [][]any     `json:"rows"`
}

type consolidationResponse struct {
	RunID  string          `json:"run_id"`
	Tables []tableResponse `json:"tables"`
}

func consolidateHandler(svc *service.Consolidator, metrics *observability.Metrics, maxUploadSize int64, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/consolidate/{kind}")
		defer span.End()

		kind, err := domain.ParseKind(chi.URLParam(r, "kind"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("cei.kind", string(kind)))

		opener, err := readUploads(w, r, maxUploadSize)
		if err != nil {
			metrics.IncrRequest("error")
			handleServiceError(w, err, logger)
			return
		}

		runID := uuid.New().String()
		ctx = service.WithRunID(ctx, runID)

		table, err := svc.WithOpener(opener).Consolidate(ctx, kind, opener.Names())
		if err != nil {
			metrics.IncrRequest("error")
			handleServiceError(w, err, logger)
			return
		}
		metrics.IncrRequest("success")

		if r.URL.Query().Get("format") == "csv" {
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", string(kind)+".csv"))
			w.Header().Set("X-Run-ID", runID)
			if err := table.WriteCSV(w); err != nil {
				logger.Error("csv write failed", zap.String("run_id", runID), zap.Error(err))
			}
			return
		}
		writeJSON(w, http.StatusOK, newTableResponse(runID, table))
	}
}

func consolidateAllHandler(svc *service.Consolidator, metrics *observability.Metrics, maxUploadSize int64, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/consolidate")
		defer span.End()

		if r.URL.Query().Get("format") == "csv" {
			writeError(w, http.StatusBadRequest, "csv output needs a single kind: use /v1/consolidate/{kind}")
			return
		}

		opener, err := readUploads(w, r, maxUploadSize)
		if err != nil {
			metrics.IncrRequest("error")
			handleServiceError(w, err, logger)
			return
		}

		runID := uuid.New().String()
		ctx = service.WithRunID(ctx, runID)

		start := time.Now()
		tables, err := svc.WithOpener(opener).ConsolidateAll(ctx, opener.Names())
		if err != nil {
			metrics.IncrRequest("error")
			handleServiceError(w, err, logger)
			return
		}
		metrics.IncrRequest("success")

		resp := consolidationResponse{RunID: runID, Tables: make([]tableResponse, 0, len(tables))}
		for _, kind := range domain.Kinds {
			resp.Tables = append(resp.Tables, newTableResponse(runID, tables[kind]))
		}
		logger.Info("upload consolidated",
			zap.String("run_id", runID),
			zap.Int("files", len(opener.Names())),
			zap.Duration("duration", time.Since(start)),
		)
		writeJSON(w, http.StatusOK, resp)
	}
}

// readUploads loads every file of the upload field into an in-memory opener.
func readUploads(w http.ResponseWriter, r *http.Request, maxUploadSize int64) (*workbook.MemoryOpener, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, &domain.ErrValidation{Field: uploadField, Message: err.Error()}
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[uploadField]
	if len(headers) == 0 {
		return nil, &domain.ErrValidation{Field: uploadField, Message: "at least one file is required"}
	}

	opener := workbook.NewMemoryOpener()
	seen := make(map[string]bool, len(headers))
	for _, fh := range headers {
		if seen[fh.Filename] {
			return nil, &domain.ErrValidation{Field: uploadField, Message: "duplicate file " + fh.Filename}
		}
		seen[fh.Filename] = true

		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
		}
		opener.Add(fh.Filename, data)
	}
	return opener, nil
}

func newTableResponse(runID string, t *domain.Table) tableResponse {
	resp := tableResponse{
		RunID:   runID,
		Kind:    t.Kind,
		Columns: t.ColumnNames(),
		Rows:    make([][]any, 0, t.Len()),
	}
	for _, row := range t.All() {
		out := make([]any, len(row))
		for j, v := range row {
			out[j] = jsonValue(t.Columns[j].Type, v)
		}
		resp.Rows = append(resp.Rows, out)
	}
	return resp
}

func jsonValue(typ domain.ColumnType, v any) any {
	d, ok := v.(time.Time)
	if !ok {
		return v
	}
	if typ == domain.TypeDateTime {
		return d.Format(time.RFC3339)
	}
	return d.Format(domain.DateLayout)
}
