package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/domain"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/handler"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/infra/observability"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/infra/workbook/workbooktest"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/service"

	"go.uber.org/zap"
)

func newRouter(t *testing.T) (http.Handler, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetrics()
	svc := service.NewConsolidator(nil, service.Options{MaxConcurrency: 2}, metrics, zap.NewNop())
	return handler.NewRouter(svc, metrics, 1<<20, zap.NewNop()), metrics
}

var movimentacao = workbooktest.Sheet{Name: "Movimentação", Rows: [][]any{
	{"Entrada/Saída", "Data", "Movimentação", "Produto", "Instituição", "Conta", "Quantidade", "Preço unitário", "Valor da Operação"},
	{"Credito", "10/01/2023", "Compra", "PETR4 - Petrobras", "Banco X", "123", "100", "28,50", "2850,00"},
	{"Credito", "12/01/2023", "Rendimento", "Tesouro Selic 2027", "Banco X", "123", "1", "", "1,99"},
}}

type upload struct {
	name string
	data []byte
}

func multipartBody(t *testing.T, files ...upload) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func post(t *testing.T, router http.Handler, path string, files ...upload) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, files...)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestOperationalEndpoints(t *testing.T) {
	router, _ := newRouter(t)

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/ping", "/v1/metrics/engine"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestHealthz_ListsKinds(t *testing.T) {
	router, _ := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var health domain.HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "healthy" || len(health.Kinds) != len(domain.Kinds) {
		t.Errorf("unexpected health %+v", health)
	}
}

func TestListKinds(t *testing.T) {
	router, _ := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/kinds", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var kinds []struct {
		Kind    string `json:"kind"`
		Prefix  string `json:"prefix"`
		Columns []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"columns"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&kinds); err != nil {
		t.Fatal(err)
	}
	if len(kinds) != len(domain.Kinds) {
		t.Fatalf("expected %d kinds, got %d", len(domain.Kinds), len(kinds))
	}
	first := kinds[0]
	if first.Kind != "movimentacao" || first.Prefix != "movimentacao" {
		t.Errorf("unexpected first kind %+v", first)
	}
	last := first.Columns[len(first.Columns)-1]
	if last.Name != "data_referencia" || last.Type != "date" {
		t.Errorf("expected data_referencia as last date column, got %+v", last)
	}
}

func TestConsolidateKind_JSON(t *testing.T) {
	router, metrics := newRouter(t)

	rec := post(t, router, "/v1/consolidate/movimentacao",
		upload{"movimentacao-2023-01-15.xlsx", workbooktest.XLSX(t, movimentacao)},
		upload{"broken-2023-01-15.xlsx", []byte("not a workbook")},
	)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		RunID   string   `json:"run_id"`
		Kind    string   `json:"kind"`
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.RunID == "" || resp.Kind != "movimentacao" {
		t.Errorf("unexpected envelope %+v", resp)
	}
	if len(resp.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(resp.Rows))
	}

	row := map[string]any{}
	for j, c := range resp.Columns {
		row[c] = resp.Rows[0][j]
	}
	want := map[string]any{
		"codigo_produto":    "PETR4",
		"data_movimentacao": "2023-01-10",
		"quantidade":        100.0,
		"preco_unitario":    28.5,
		"arquivo_origem":    "movimentacao",
		"data_referencia":   "2023-01-15",
	}
	for k, v := range want {
		if row[k] != v {
			t.Errorf("%s = %v, want %v", k, row[k], v)
		}
	}
	if null := resp.Rows[1][indexOf(resp.Columns, "preco_unitario")]; null != nil {
		t.Errorf("expected JSON null, got %v", null)
	}

	for _, k := range metrics.Snapshot().Kinds {
		if k.Kind == domain.KindMovimentacao && k.RowsEmitted != 2 {
			t.Errorf("expected 2 emitted rows in metrics, got %d", k.RowsEmitted)
		}
	}
}

func TestConsolidateKind_CSV(t *testing.T) {
	router, _ := newRouter(t)

	rec := post(t, router, "/v1/consolidate/movimentacao?format=csv",
		upload{"movimentacao-2023-01-15.xlsx", workbooktest.XLSX(t, movimentacao)},
	)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("unexpected content type %s", ct)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 lines, got %d", len(lines))
	}
	if lines[0] != strings.Join(domain.KindMovimentacao.ColumnNames(), ",") {
		t.Errorf("unexpected header %s", lines[0])
	}
	if !strings.HasSuffix(lines[1], ",movimentacao,2023-01-15") {
		t.Errorf("unexpected first line %s", lines[1])
	}
}

func TestConsolidateAll(t *testing.T) {
	router, _ := newRouter(t)

	posicao := workbooktest.XLSX(t,
		workbooktest.Sheet{Name: "ETF", Rows: [][]any{
			{"Produto", "Instituição", "Conta", "Código de Negociação", "Quantidade"},
			{"BOVA11 - ISHARES", "XP", "1", "BOVA11", "10"},
		}},
		workbooktest.Sheet{Name: "Ações", Rows: [][]any{
			{"Produto", "Instituição", "Conta", "Código de Negociação", "Quantidade"},
			{"ITSA4 - ITAUSA", "XP", "1", "ITSA4", "100"},
		}},
	)
	rec := post(t, router, "/v1/consolidate",
		upload{"posicao-2023-01-31.xlsx", posicao},
		upload{"movimentacao-2023-01-15.xlsx", workbooktest.XLSX(t, movimentacao)},
	)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		RunID  string `json:"run_id"`
		Tables []struct {
			RunID string  `json:"run_id"`
			Kind  string  `json:"kind"`
			Rows  [][]any `json:"rows"`
		} `json:"tables"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Tables) != len(domain.Kinds) {
		t.Fatalf("expected every kind, got %d", len(resp.Tables))
	}
	counts := map[string]int{}
	for _, tbl := range resp.Tables {
		if tbl.RunID != resp.RunID {
			t.Errorf("%s: run id %s differs from %s", tbl.Kind, tbl.RunID, resp.RunID)
		}
		counts[tbl.Kind] = len(tbl.Rows)
	}
	if counts["movimentacao"] != 2 || counts["posicao_etf"] != 1 || counts["posicao_acoes"] != 1 || counts["negociacao"] != 0 {
		t.Errorf("unexpected row counts %v", counts)
	}
}

func TestConsolidate_BadRequests(t *testing.T) {
	router, _ := newRouter(t)
	xlsx := workbooktest.XLSX(t, movimentacao)

	tests := []struct {
		name   string
		path   string
		files  []upload
		status int
	}{
		{"unknown kind", "/v1/consolidate/extrato", []upload{{"extrato-2023-01-01.xlsx", xlsx}}, http.StatusNotFound},
		{"no files", "/v1/consolidate/movimentacao", nil, http.StatusBadRequest},
		{"duplicate files", "/v1/consolidate/movimentacao", []upload{{"movimentacao-2023-01-15.xlsx", xlsx}, {"movimentacao-2023-01-15.xlsx", xlsx}}, http.StatusBadRequest},
		{"csv for all kinds", "/v1/consolidate?format=csv", []upload{{"movimentacao-2023-01-15.xlsx", xlsx}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, router, tt.path, tt.files...)
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestConsolidate_NotMultipart(t *testing.T) {
	router, _ := newRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/consolidate/movimentacao", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestConsolidate_TooLarge(t *testing.T) {
	metrics := observability.NewMetrics()
	svc := service.NewConsolidator(nil, service.Options{}, metrics, zap.NewNop())
	router := handler.NewRouter(svc, metrics, 512, zap.NewNop())

	rec := post(t, router, "/v1/consolidate/movimentacao",
		upload{"movimentacao-2023-01-15.xlsx", bytes.Repeat([]byte("x"), 4096)},
	)
	if rec.Code != http.StatusRequestEntityTooLarge && rec.Code != http.StatusBadRequest {
		t.Errorf("expected the upload to be rejected, got %d", rec.Code)
	}
}

func indexOf(cols []string, name string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	return -1
}
