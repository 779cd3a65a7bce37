package domain

// Kind identifies one canonical CEI document class.
type Kind string

const (
	KindMovimentacao         Kind = "movimentacao"
	KindNegociacao           Kind = "negociacao"
	KindEventosProvisionados Kind = "eventos_provisionados"
	KindPosicaoAcoes         Kind = "posicao_acoes"
	KindPosicaoETF           Kind = "posicao_etf"
	KindPosicaoFundos        Kind = "posicao_fundos_investimento"
	KindPosicaoTesouro       Kind = "posicao_tesouro_direto"
	KindPosicaoRendaFixa     Kind = "posicao_renda_fixa"
	KindPosicaoEmprestimo    Kind = "posicao_emprestimo_ativos"
)

// Kinds lists every report kind in a stable order.
var Kinds = []Kind{
	KindMovimentacao,
	KindNegociacao,
	KindEventosProvisionados,
	KindPosicaoAcoes,
	KindPosicaoETF,
	KindPosicaoFundos,
	KindPosicaoTesouro,
	KindPosicaoRendaFixa,
	KindPosicaoEmprestimo,
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", &ErrUnknownKind{Kind: s}
}

// ColumnType describes how a canonical column is typed.
type ColumnType int

const (
	TypeString ColumnType = iota
	TypeDecimal
	TypeDate
	TypeDateTime
	TypeBool
)

func (t ColumnType) String() string {
	switch t {
	case TypeDecimal:
		return "decimal"
	case TypeDate:
		return "date"
	case TypeDateTime:
		return "datetime"
	case TypeBool:
		return "bool"
	default:
		return "string"
	}
}

// Column is one entry of a canonical column list.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"-"`
}

// Provenance columns carried by every canonical row.
const (
	ColArquivoOrigem  = "arquivo_origem"
	ColDataReferencia = "data_referencia"
	ColConta          = "conta"
	ColCodigoProduto  = "codigo_produto"
)

// DefaultConta fills the account column when the source omits it.
const DefaultConta = "000000000"

func str(name string) Column { return Column{Name: name, Type: TypeString} }
func dec(name string) Column { return Column{Name: name, Type: TypeDecimal} }
func day(name string) Column { return Column{Name: name, Type: TypeDate} }
func flag(name string) Column { return Column{Name: name, Type: TypeBool} }

var provenance = []Column{str(ColArquivoOrigem), day(ColDataReferencia)}

func withProvenance(cols ...Column) []Column {
	return append(cols, provenance...)
}

var quantities = []Column{
	dec("quantidade"),
	dec("quantidade_disponivel"),
	dec("quantidade_indisponivel"),
	str("motivo"),
}

func positionColumns(extra ...Column) []Column {
	cols := []Column{
		str(ColCodigoProduto),
		str("nome_produto"),
		str("instituicao"),
		str(ColConta),
		str("codigo_isin"),
		str("tipo"),
	}
	cols = append(cols, extra...)
	cols = append(cols, quantities...)
	cols = append(cols, dec("preco_fechamento"), dec("valor_atualizado"))
	return withProvenance(cols...)
}

var canonical = map[Kind][]Column{
	KindMovimentacao: withProvenance(
		str("entrada_saida"),
		day("data_movimentacao"),
		str("movimentacao"),
		str(ColCodigoProduto),
		str("nome_produto"),
		str("instituicao"),
		str(ColConta),
		dec("quantidade"),
		dec("preco_unitario"),
		dec("valor_operacao"),
	),
	KindNegociacao: withProvenance(
		day("data_negocio"),
		str("tipo_movimentacao"),
		str("mercado"),
		day("prazo_vencimento"),
		str("instituicao"),
		str(ColConta),
		str(ColCodigoProduto),
		dec("quantidade"),
		dec("preco"),
		dec("valor"),
	),
	KindEventosProvisionados: withProvenance(
		str(ColCodigoProduto),
		str("nome_produto"),
		str("tipo_produto"),
		str("tipo_evento"),
		day("data_pagamento_prevista"),
		str("instituicao"),
		str(ColConta),
		dec("quantidade"),
		dec("preco_unitario"),
		dec("valor_liquido"),
	),
	KindPosicaoAcoes:  positionColumns(str("escriturador")),
	KindPosicaoETF:    positionColumns(),
	KindPosicaoFundos: positionColumns(str("administrador")),
	KindPosicaoTesouro: withProvenance(append(append([]Column{
		str(ColCodigoProduto),
		str("nome_produto"),
		str("instituicao"),
		str(ColConta),
		str("codigo_isin"),
		str("indexador"),
		day("vencimento"),
	}, quantities...),
		dec("valor_aplicado"),
		dec("valor_bruto"),
		dec("valor_liquido"),
		dec("valor_atualizado"),
	)...),
	KindPosicaoRendaFixa: withProvenance(append(append([]Column{
		str(ColCodigoProduto),
		str("nome_produto"),
		str("instituicao"),
		str(ColConta),
		str("emissor"),
		str("indexador"),
		str("tipo_regime"),
		day("data_emissao"),
		day("vencimento"),
	}, quantities...),
		str("contraparte"),
		dec("preco_atualizado_mtm"),
		dec("valor_atualizado_mtm"),
		dec("preco_atualizado_curva"),
		dec("valor_atualizado_curva"),
	)...),
	KindPosicaoEmprestimo: withProvenance(
		str(ColCodigoProduto),
		str("nome_produto"),
		str("instituicao"),
		str(ColConta),
		str("natureza"),
		str("numero_contrato"),
		str("modalidade"),
		flag("opa"),
		flag("liquidacao_antecipada"),
		dec("taxa"),
		dec("comissao"),
		day("data_registro"),
		day("data_vencimento"),
		dec("quantidade"),
		dec("preco_fechamento"),
		dec("valor_atualizado"),
	),
}

// Columns returns the canonical ordered column list of a kind.
// The returned slice is a copy.
func (k Kind) Columns() []Column {
	cols := canonical[k]
	out := make([]Column, len(cols))
	copy(out, cols)
	return out
}

// ColumnNames returns the canonical column names of a kind in order.
func (k Kind) ColumnNames() []string {
	cols := canonical[k]
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
