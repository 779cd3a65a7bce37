package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/config"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/domain"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/infra/observability"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/infra/workbook/workbooktest"

	"github.com/google/subcommands"
	"go.uber.org/zap"
)

func testApp(out string) *app {
	return &app{
		cfg: &config.Config{
			MaxConcurrency: 2,
			OpenRetries:    0,
			OpenBackoff:    time.Millisecond,
			SheetCacheTTL:  time.Minute,
			OutputDir:      out,
		},
		logger:  zap.NewNop(),
		metrics: observability.NewMetrics(),
	}
}

func execute(t *testing.T, cmd *consolidateCmd, a *app, args ...string) subcommands.ExitStatus {
	t.Helper()
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	return cmd.Execute(context.Background(), fs, a)
}

func TestConsolidateCmd_WritesEveryKind(t *testing.T) {
	in, out := t.TempDir(), filepath.Join(t.TempDir(), "csv")
	posicao := workbooktest.WriteFile(t, in, "posicao-2023-03-31.xlsx",
		workbooktest.Sheet{Name: "Tesouro Direto", Rows: [][]any{
			{"Produto", "Instituição", "Quantidade", "Valor Atualizado"},
			{"Tesouro Selic 2027", "XP", "2", "28.123,45"},
		}},
	)

	if status := execute(t, &consolidateCmd{}, testApp(out), posicao); status != subcommands.ExitSuccess {
		t.Fatalf("expected success, got %v", status)
	}

	for _, kind := range domain.Kinds {
		data, err := os.ReadFile(filepath.Join(out, string(kind)+".csv"))
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if lines[0] != strings.Join(kind.ColumnNames(), ",") {
			t.Errorf("%s: unexpected header %s", kind, lines[0])
		}
		want := 1
		if kind == domain.KindPosicaoTesouro {
			want = 2
		}
		if len(lines) != want {
			t.Errorf("%s: expected %d lines, got %d", kind, want, len(lines))
		}
	}

	data, _ := os.ReadFile(filepath.Join(out, string(domain.KindPosicaoTesouro)+".csv"))
	if !strings.Contains(string(data), "Tesouro Selic 2027,Tesouro Selic 2027,XP,000000000,") {
		t.Errorf("unexpected tesouro csv:\n%s", data)
	}
	if !strings.Contains(string(data), ",28123.45,posicao,2023-03-31") {
		t.Errorf("unexpected tesouro csv:\n%s", data)
	}
}

func TestConsolidateCmd_SingleKind(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	file := workbooktest.WriteFile(t, in, "negociacao-2023-01-31.xlsx",
		workbooktest.Sheet{Name: "Negociação", Rows: [][]any{
			{"Data do Negócio", "Tipo de Movimentação", "Mercado", "Instituição", "Código de Negociação", "Quantidade", "Preço", "Valor"},
			{"05/01/2023", "Compra", "Mercado à Vista", "XP", "PETR4", "100", "25,10", "2.510,00"},
		}},
	)

	status := execute(t, &consolidateCmd{}, testApp(out), "-kind", "negociacao", file, filepath.Join(in, "negociacao-2023-02-28.xlsx"))
	if status != subcommands.ExitSuccess {
		t.Fatalf("expected success, got %v", status)
	}

	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "negociacao.csv" {
		t.Fatalf("expected only negociacao.csv, got %v", entries)
	}
	data, _ := os.ReadFile(filepath.Join(out, "negociacao.csv"))
	if !strings.Contains(string(data), "2023-01-05,Compra,Mercado à Vista,,XP,000000000,PETR4,100,25.1,2510,negociacao,2023-01-31") {
		t.Errorf("unexpected csv:\n%s", data)
	}
}

func TestConsolidateCmd_JSONWithTypedCells(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	file := workbooktest.WriteFile(t, in, "negociacao-2023-01-31.xlsx",
		workbooktest.Sheet{Name: "Negociação", Rows: [][]any{
			{"Data do Negócio", "Tipo de Movimentação", "Mercado", "Instituição", "Conta", "Código de Negociação", "Quantidade", "Preço", "Valor"},
			{time.Date(2023, time.January, 5, 0, 0, 0, 0, time.UTC), "Compra", "Mercado à Vista", "XP", 123456, "PETR4", 100, 25.1, 2510.0},
		}},
	)

	status := execute(t, &consolidateCmd{}, testApp(out), "-kind", "negociacao", "-format", "json", file)
	if status != subcommands.ExitSuccess {
		t.Fatalf("expected success, got %v", status)
	}

	data, err := os.ReadFile(filepath.Join(out, "negociacao.json"))
	if err != nil {
		t.Fatal(err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		t.Fatalf("decode json: %v\n%s", err, data)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	want := map[string]any{
		"data_negocio":     "2023-01-05",
		"conta":            "123456",
		"quantidade":       100.0,
		"preco":            25.1,
		"valor":            2510.0,
		"prazo_vencimento": nil,
		"data_referencia":  "2023-01-31",
	}
	for col, v := range want {
		if got := rows[0][col]; got != v {
			t.Errorf("%s: expected %v, got %v", col, v, got)
		}
	}
}

func TestConsolidateCmd_Errors(t *testing.T) {
	out := t.TempDir()

	if status := execute(t, &consolidateCmd{}, testApp(out)); status != subcommands.ExitUsageError {
		t.Errorf("expected usage error without files, got %v", status)
	}
	if status := execute(t, &consolidateCmd{}, testApp(out), "-kind", "extrato", "x.xlsx"); status != subcommands.ExitFailure {
		t.Errorf("expected failure for an unknown kind, got %v", status)
	}
	if status := execute(t, &consolidateCmd{}, testApp(out), "-format", "xml", "x.xlsx"); status != subcommands.ExitUsageError {
		t.Errorf("expected usage error for an unknown format, got %v", status)
	}
}
