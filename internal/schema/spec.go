// Package schema declares, per CEI report kind, how source spreadsheet
// headers map onto the canonical columns, and runs that mapping over a
// list of statement files.
package schema

import (
	"fmt"

	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/domain"
)

// Field binds one verbatim source header to one canonical column. Several
// fields may read the same source header.
type Field struct {
	Source  string
	Target  string
	Convert Converter
	// Default fills Target when the header lacks Source. Nil means null.
	Default any
}

// Exclusion drops data rows whose Source cell equals Value.
type Exclusion struct {
	Source string
	Value  string
}

// Spec is the declarative description of one report kind.
type Spec struct {
	Kind domain.Kind
	// Prefix is the filename report kind that feeds this kind.
	Prefix string
	// Sheets lists groups of alternative sheet names. Within a group the
	// first name present wins; every group is processed in order. Nil
	// means the first sheet of the workbook.
	Sheets [][]string
	// SuffixSheet appends the normalized sheet name to arquivo_origem.
	SuffixSheet bool
	// Suffix, when set, replaces the normalized sheet name in arquivo_origem.
	Suffix string
	// Essential headers must all be present or the sheet is skipped.
	Essential []string
	// Identifier is the header whose empty cells drop the row.
	Identifier string
	Exclude    []Exclusion
	Fields     []Field
}

// Validate checks that every canonical column except provenance has
// exactly one field and that no field targets an unknown column.
func (s Spec) Validate() error {
	targets := make(map[string]int, len(s.Fields))
	for _, f := range s.Fields {
		targets[f.Target]++
		if f.Convert == nil {
			return fmt.Errorf("%s: field %s has no converter", s.Kind, f.Target)
		}
	}
	known := make(map[string]bool)
	for _, c := range s.Kind.Columns() {
		known[c.Name] = true
		if c.Name == domain.ColArquivoOrigem || c.Name == domain.ColDataReferencia {
			continue
		}
		if targets[c.Name] != 1 {
			return fmt.Errorf("%s: column %s has %d fields", s.Kind, c.Name, targets[c.Name])
		}
	}
	for t := range targets {
		if !known[t] {
			return fmt.Errorf("%s: field targets unknown column %s", s.Kind, t)
		}
	}
	if s.Identifier == "" {
		return fmt.Errorf("%s: no identifier column", s.Kind)
	}
	return nil
}
