package model

import (
	"strings"

	"github.com/histopathai/print-resize-service/pkg/errors"
)

// LedgerField is an annotation column of the photo ledger whose cells are
// restricted to a drop-down list.
type LedgerField struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

// ParseLedgerFields reads definitions of the form
// "Stage=Before|During|After;Result=OK|NG". Blank definitions are skipped.
func ParseLedgerFields(def string) ([]LedgerField, error) {
	var fields []LedgerField
	seen := make(map[string]struct{})

	for _, part := range strings.Split(def, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, opts, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.NewConfigurationError("ledger field must look like Name=A|B").
				WithContext("field", part)
		}
		if _, dup := seen[strings.ToLower(name)]; dup {
			return nil, errors.NewConfigurationError("duplicate ledger field").
				WithContext("field", name)
		}
		seen[strings.ToLower(name)] = struct{}{}

		field := LedgerField{Name: name}
		for _, opt := range strings.Split(opts, "|") {
			if opt = strings.TrimSpace(opt); opt != "" {
				field.Options = append(field.Options, opt)
			}
		}
		if len(field.Options) == 0 {
			return nil, errors.NewConfigurationError("ledger field has no options").
				WithContext("field", name)
		}
		fields = append(fields, field)
	}

	return fields, nil
}
