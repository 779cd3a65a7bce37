package observability_test

import (
	"testing"
	"time"

	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/domain"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/infra/observability"
)

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	a := observability.NewMetrics()
	b := observability.NewMetrics()
	a.AddRows(domain.KindNegociacao, 3)

	for _, k := range b.Snapshot().Kinds {
		if k.RowsEmitted != 0 {
			t.Fatalf("expected a fresh registry, got %+v", k)
		}
	}
}

func TestSnapshot(t *testing.T) {
	m := observability.NewMetrics()
	m.AddFiles(domain.KindPosicaoETF, observability.OutcomeProcessed, 3)
	m.AddFiles(domain.KindPosicaoETF, observability.OutcomeSkipped, 1)
	m.AddSheetsSkipped(domain.KindPosicaoETF, "sheet_missing", 2)
	m.AddSheetsSkipped(domain.KindPosicaoETF, "sheet_empty", 1)
	m.AddSheetsSkipped(domain.KindPosicaoAcoes, "sheet_missing", 5)
	m.AddRows(domain.KindPosicaoETF, 40)
	m.RecordDuration(domain.KindPosicaoETF, 20*time.Millisecond)
	m.IncrRequest("success")

	snap := m.Snapshot()
	if len(snap.Kinds) != len(domain.Kinds) {
		t.Fatalf("expected one entry per kind, got %d", len(snap.Kinds))
	}
	if snap.Period != "all_time" {
		t.Errorf("unexpected period %s", snap.Period)
	}

	var etf domain.KindMetrics
	for _, k := range snap.Kinds {
		if k.Kind == domain.KindPosicaoETF {
			etf = k
		}
	}
	if etf.FilesProcessed != 3 || etf.FilesSkipped != 1 || etf.RowsEmitted != 40 {
		t.Errorf("unexpected counters %+v", etf)
	}
	if etf.SheetsSkipped != 3 {
		t.Errorf("expected 3 skipped sheets, got %d", etf.SheetsSkipped)
	}
	if etf.SkipRate != 0.25 {
		t.Errorf("expected skip rate 0.25, got %v", etf.SkipRate)
	}

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"cei_files_total", "cei_sheets_skipped_total", "cei_rows_emitted_total", "cei_consolidation_duration_seconds", "cei_requests_total"} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}

func TestNewLogger_Levels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		if observability.NewLogger(level) == nil {
			t.Errorf("expected logger for level %q", level)
		}
	}
	if !observability.NewLogger("debug").Core().Enabled(-1) {
		t.Error("expected debug logger to enable debug entries")
	}
	if observability.NewLogger("warn").Core().Enabled(0) {
		t.Error("expected warn logger to drop info entries")
	}
}
