package schema

import (
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/domain"
)

// Source headers shared by several kinds. They are matched verbatim,
// accents included.
const (
	hProduto          = "Produto"
	hInstituicao      = "Instituição"
	hConta            = "Conta"
	hCodigoNegociacao = "Código de Negociação"
	hISIN             = "Código ISIN / Distribuição"
	hTipo             = "Tipo"
	hQuantidade       = "Quantidade"
	hDisponivel       = "Quantidade Disponível"
	hIndisponivel     = "Quantidade Indisponível"
	hMotivo           = "Motivo"
	hPrecoFechamento  = "Preço de Fechamento"
	hValorAtualizado  = "Valor Atualizado"
	hPrecoUnitario    = "Preço unitário"
)

// Filename prefixes.
const (
	PrefixMovimentacao = "movimentacao"
	PrefixNegociacao   = "negociacao"
	PrefixEventos      = "eventos"
	PrefixPosicao      = "posicao"
)

func text(src, target string) Field { return Field{Source: src, Target: target, Convert: Text} }
func raw(src, target string) Field { return Field{Source: src, Target: target, Convert: Raw} }
func num(src, target string) Field { return Field{Source: src, Target: target, Convert: Decimal} }
func date(src, target string) Field { return Field{Source: src, Target: target, Convert: Date} }
func flag(src, target string) Field { return Field{Source: src, Target: target, Convert: Bool} }

func conta() Field {
	return Field{Source: hConta, Target: domain.ColConta, Convert: Text, Default: domain.DefaultConta}
}

func productCode() Field {
	return Field{Source: hProduto, Target: domain.ColCodigoProduto, Convert: ProductCode}
}

// positionFields are shared by the stock, ETF and fund positions.
func positionFields(extra ...Field) []Field {
	fields := []Field{
		text(hCodigoNegociacao, domain.ColCodigoProduto),
		text(hProduto, "nome_produto"),
		text(hInstituicao, "instituicao"),
		conta(),
		raw(hISIN, "codigo_isin"),
		text(hTipo, "tipo"),
		num(hQuantidade, "quantidade"),
		num(hDisponivel, "quantidade_disponivel"),
		num(hIndisponivel, "quantidade_indisponivel"),
		text(hMotivo, "motivo"),
		num(hPrecoFechamento, "preco_fechamento"),
		num(hValorAtualizado, "valor_atualizado"),
	}
	return append(fields, extra...)
}

var specs = []Spec{
	{
		Kind:       domain.KindMovimentacao,
		Prefix:     PrefixMovimentacao,
		Essential:  []string{"Entrada/Saída", "Data", "Movimentação", hProduto},
		Identifier: hProduto,
		Fields: []Field{
			raw("Entrada/Saída", "entrada_saida"),
			date("Data", "data_movimentacao"),
			raw("Movimentação", "movimentacao"),
			productCode(),
			text(hProduto, "nome_produto"),
			text(hInstituicao, "instituicao"),
			conta(),
			num(hQuantidade, "quantidade"),
			num(hPrecoUnitario, "preco_unitario"),
			num("Valor da Operação", "valor_operacao"),
		},
	},
	{
		Kind:       domain.KindNegociacao,
		Prefix:     PrefixNegociacao,
		Essential:  []string{"Data do Negócio", "Tipo de Movimentação", hCodigoNegociacao},
		Identifier: hCodigoNegociacao,
		Fields: []Field{
			date("Data do Negócio", "data_negocio"),
			raw("Tipo de Movimentação", "tipo_movimentacao"),
			text("Mercado", "mercado"),
			date("Prazo/Vencimento", "prazo_vencimento"),
			text(hInstituicao, "instituicao"),
			conta(),
			text(hCodigoNegociacao, domain.ColCodigoProduto),
			num(hQuantidade, "quantidade"),
			num("Preço", "preco"),
			num("Valor", "valor"),
		},
	},
	{
		Kind:       domain.KindEventosProvisionados,
		Prefix:     PrefixEventos,
		Essential:  []string{hProduto, "Tipo de Evento"},
		Identifier: hProduto,
		Exclude:    []Exclusion{{Source: hPrecoUnitario, Value: "Total líquido"}},
		Fields: []Field{
			productCode(),
			text(hProduto, "nome_produto"),
			text(hTipo, "tipo_produto"),
			text("Tipo de Evento", "tipo_evento"),
			date("Previsão de pagamento", "data_pagamento_prevista"),
			text(hInstituicao, "instituicao"),
			conta(),
			num(hQuantidade, "quantidade"),
			num(hPrecoUnitario, "preco_unitario"),
			num("Valor líquido", "valor_liquido"),
		},
	},
	{
		Kind:        domain.KindPosicaoAcoes,
		Prefix:      PrefixPosicao,
		Sheets:      [][]string{{"Ações", "Acoes"}, {"BDR"}},
		SuffixSheet: true,
		Essential:   []string{hProduto, hCodigoNegociacao},
		Identifier:  hCodigoNegociacao,
		Fields:      positionFields(text("Escriturador", "escriturador")),
	},
	{
		Kind:       domain.KindPosicaoETF,
		Prefix:     PrefixPosicao,
		Sheets:     [][]string{{"ETF"}},
		Essential:  []string{hProduto, hCodigoNegociacao},
		Identifier: hCodigoNegociacao,
		Fields:     positionFields(),
	},
	{
		Kind:       domain.KindPosicaoFundos,
		Prefix:     PrefixPosicao,
		Sheets:     [][]string{{"Fundo de Investimento"}},
		Essential:  []string{hProduto, hCodigoNegociacao},
		Identifier: hCodigoNegociacao,
		Fields:     positionFields(text("Administrador", "administrador")),
	},
	{
		Kind:       domain.KindPosicaoTesouro,
		Prefix:     PrefixPosicao,
		Sheets:     [][]string{{"Tesouro Direto"}},
		Essential:  []string{hProduto},
		Identifier: hProduto,
		Fields: []Field{
			text(hProduto, domain.ColCodigoProduto),
			text(hProduto, "nome_produto"),
			text(hInstituicao, "instituicao"),
			conta(),
			raw("Código ISIN", "codigo_isin"),
			text("Indexador", "indexador"),
			date("Vencimento", "vencimento"),
			num(hQuantidade, "quantidade"),
			num(hDisponivel, "quantidade_disponivel"),
			num(hIndisponivel, "quantidade_indisponivel"),
			text(hMotivo, "motivo"),
			num("Valor Aplicado", "valor_aplicado"),
			num("Valor bruto", "valor_bruto"),
			num("Valor líquido", "valor_liquido"),
			num(hValorAtualizado, "valor_atualizado"),
		},
	},
	{
		Kind:       domain.KindPosicaoRendaFixa,
		Prefix:     PrefixPosicao,
		Sheets:     [][]string{{"Renda Fixa"}},
		Essential:  []string{hProduto, "Código"},
		Identifier: "Código",
		Fields: []Field{
			text("Código", domain.ColCodigoProduto),
			text(hProduto, "nome_produto"),
			text(hInstituicao, "instituicao"),
			conta(),
			text("Emissor", "emissor"),
			text("Indexador", "indexador"),
			text("Tipo de regime", "tipo_regime"),
			date("Data de Emissão", "data_emissao"),
			date("Vencimento", "vencimento"),
			num(hQuantidade, "quantidade"),
			num(hDisponivel, "quantidade_disponivel"),
			num(hIndisponivel, "quantidade_indisponivel"),
			text(hMotivo, "motivo"),
			text("Contraparte", "contraparte"),
			num("Preço Atualizado MTM", "preco_atualizado_mtm"),
			num("Valor Atualizado MTM", "valor_atualizado_mtm"),
			num("Preço Atualizado CURVA", "preco_atualizado_curva"),
			num("Valor Atualizado CURVA", "valor_atualizado_curva"),
		},
	},
	{
		Kind:        domain.KindPosicaoEmprestimo,
		Prefix:      PrefixPosicao,
		Sheets:      [][]string{{"Empréstimo de Ativos", "Empréstimos"}},
		SuffixSheet: true,
		Suffix:      "emprestimo_de_ativos", // both sheet spellings get the newer name
		Essential:   []string{hProduto},
		Identifier:  hProduto,
		Fields: []Field{
			productCode(),
			text(hProduto, "nome_produto"),
			text(hInstituicao, "instituicao"),
			conta(),
			text("Natureza", "natureza"),
			text("Número de Contrato", "numero_contrato"),
			text("Modalidade", "modalidade"),
			flag("OPA", "opa"),
			flag("Liquidação antecipada", "liquidacao_antecipada"),
			num("Taxa", "taxa"),
			num("Comissão", "comissao"),
			date("Data de registro", "data_registro"),
			date("Data de vencimento", "data_vencimento"),
			num(hQuantidade, "quantidade"),
			num(hPrecoFechamento, "preco_fechamento"),
			num(hValorAtualizado, "valor_atualizado"),
		},
	},
}

var byKind = func() map[domain.Kind]Spec {
	m := make(map[domain.Kind]Spec, len(specs))
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			panic("schema: " + err.Error())
		}
		m[s.Kind] = s
	}
	return m
}()

// Lookup returns the declared spec of a kind.
func Lookup(kind domain.Kind) (Spec, error) {
	s, ok := byKind[kind]
	if !ok {
		return Spec{}, &domain.ErrUnknownKind{Kind: string(kind)}
	}
	return s, nil
}

// Specs returns every declared spec in domain.Kinds order.
func Specs() []Spec {
	out := make([]Spec, 0, len(domain.Kinds))
	for _, k := range domain.Kinds {
		out = append(out, byKind[k])
	}
	return out
}

// KindsForPrefix lists the kinds fed by files with the given report prefix.
func KindsForPrefix(prefix string) []domain.Kind {
	var kinds []domain.Kind
	for _, k := range domain.Kinds {
		if byKind[k].Prefix == prefix {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
