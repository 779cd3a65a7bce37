package schema

import (
	"strings"
	"unicode"

	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/locale"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Converter turns a trimmed source cell into a canonical value. A nil
// result is a null cell.
type Converter func(cell string) any

// Raw keeps the cell as is; the empty string is null.
func Raw(cell string) any {
	if cell == "" {
		return nil
	}
	return cell
}

// Text collapses repeated spaces of free-text fields.
func Text(cell string) any {
	if cell == "" {
		return nil
	}
	return locale.CollapseWhitespace(cell)
}

// Decimal parses Brazilian-formatted numbers.
func Decimal(cell string) any {
	if f, ok := locale.ToDecimal(cell); ok {
		return f
	}
	return nil
}

// Date parses ISO or DD/MM/YYYY dates.
func Date(cell string) any {
	if d, ok := locale.ToDate(cell); ok {
		return d
	}
	return nil
}

// Bool parses Sim/Não style flags.
func Bool(cell string) any {
	if b, ok := locale.ToBool(cell); ok {
		return b
	}
	return nil
}

// ProductCode converts a free-form CEI product description to its code.
func ProductCode(cell string) any {
	if code := ExtractProductCode(cell); code != "" {
		return code
	}
	return nil
}

// ExtractProductCode applies the CEI product string rules:
//
//	"PETR4 - Petróleo Brasileiro" -> "PETR4"
//	"Futuro - ABCZ9"             -> "ABCZ9"
//	"Tesouro Selic 2027"         -> "Tesouro Selic 2027"
func ExtractProductCode(product string) string {
	product = strings.TrimSpace(product)
	if strings.Contains(product, "Tesouro") {
		return locale.CollapseWhitespace(product)
	}
	parts := strings.Split(product, "-")
	if strings.Contains(parts[0], "Futuro") && len(parts) > 1 {
		return strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(parts[0])
}

// NormalizeSheetName folds a sheet name into a provenance suffix:
// "Ações" -> "acoes", "Empréstimo de Ativos" -> "emprestimo_de_ativos".
func NormalizeSheetName(name string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
