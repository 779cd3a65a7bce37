package schema_test

import (
	"testing"

	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/domain"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/schema"
)

func TestExtractProductCode(t *testing.T) {
	tests := map[string]string{
		"PETR4 - Petróleo Brasileiro S.A.": "PETR4",
		"Tesouro Selic 2027":               "Tesouro Selic 2027",
		"Tesouro IPCA+ 2035 - Juros":       "Tesouro IPCA+ 2035 - Juros",
		"Futuro - ABCZ9":                   "ABCZ9",
		"WINZ23 - Futuro Mini Índice":      "WINZ23",
		"  BOVA11  ":                       "BOVA11",
		"Futuro":                           "Futuro",
		"":                                 "",
	}
	for in, want := range tests {
		if got := schema.ExtractProductCode(in); got != want {
			t.Errorf("ExtractProductCode(%q) = %q, want %q", in, got, want)
		}
	}
	if schema.ProductCode("") != nil {
		t.Error("expected null product code for empty cell")
	}
}

func TestNormalizeSheetName(t *testing.T) {
	tests := map[string]string{
		"Ações":                 "acoes",
		"Acoes":                 "acoes",
		"BDR":                   "bdr",
		"Empréstimo de Ativos":  "emprestimo_de_ativos",
		"Fundo de Investimento": "fundo_de_investimento",
		" Renda  Fixa ":         "renda_fixa",
	}
	for in, want := range tests {
		if got := schema.NormalizeSheetName(in); got != want {
			t.Errorf("NormalizeSheetName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConverters(t *testing.T) {
	if v := schema.Text("BANCO   INTER"); v != "BANCO INTER" {
		t.Errorf("Text collapsed to %v", v)
	}
	if schema.Text("") != nil || schema.Raw("") != nil || schema.Decimal("-") != nil || schema.Date("x") != nil || schema.Bool("?") != nil {
		t.Error("expected null for uninterpretable cells")
	}
	if v := schema.Decimal("1.234,56"); v != 1234.56 {
		t.Errorf("Decimal = %v", v)
	}
	if v := schema.Bool("Não"); v != false {
		t.Errorf("Bool = %v", v)
	}
}

func TestSpecs(t *testing.T) {
	specs := schema.Specs()
	if len(specs) != len(domain.Kinds) {
		t.Fatalf("expected %d specs, got %d", len(domain.Kinds), len(specs))
	}
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			t.Errorf("invalid spec: %v", err)
		}
	}

	if got := schema.KindsForPrefix(schema.PrefixPosicao); len(got) != 6 {
		t.Errorf("expected 6 position kinds, got %v", got)
	}
	if got := schema.KindsForPrefix(schema.PrefixEventos); len(got) != 1 || got[0] != domain.KindEventosProvisionados {
		t.Errorf("unexpected kinds for eventos: %v", got)
	}
	if got := schema.KindsForPrefix("extrato"); len(got) != 0 {
		t.Errorf("expected no kinds for unknown prefix, got %v", got)
	}

	if _, err := schema.Lookup("posicao_cripto"); err == nil {
		t.Error("expected unknown kind error")
	}
}

func TestSpecValidate_Rejects(t *testing.T) {
	s, err := schema.Lookup(domain.KindPosicaoETF)
	if err != nil {
		t.Fatal(err)
	}
	s.Fields = append(s.Fields[:0:0], s.Fields[1:]...)
	if err := s.Validate(); err == nil {
		t.Error("expected missing field to be rejected")
	}
}
