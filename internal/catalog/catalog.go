package catalog

import (
	"errors"
	"fmt"
	"strings"

	"tax-interview-agent/internal/domain"
)

// GeneralSection is the fallback label for ids matching no declared prefix.
const GeneralSection = "General Information"

// SkipRule auto-fills a field from answers recorded earlier in catalog
// order. Applies returns the default to record and true when the field
// should be bypassed without being asked.
type SkipRule struct {
	Name    string
	Applies func(fieldID string, answers domain.AnswerSet) (any, bool)
}

// Section maps a field-id prefix to a display label.
type Section struct {
	Prefix string
	Label  string
}

// Catalog is an ordered, read-only list of fields plus the skip rules and
// section table that drive one questionnaire flow.
type Catalog struct {
	name     string
	fields   []domain.Field
	rules    []SkipRule
	sections []Section
}

// New validates and constructs a Catalog. Invariant violations (empty
// catalog, duplicate or blank ids, unknown types) are programming errors
// and fail here, never at request time.
func New(name string, fields []domain.Field, rules []SkipRule, sections []Section) (*Catalog, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("catalog: name must not be empty")
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("catalog: %s has no fields", name)
	}
	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		if strings.TrimSpace(f.ID) == "" {
			return nil, fmt.Errorf("catalog: %s field %d has an empty id", name, i)
		}
		if strings.TrimSpace(f.Prompt) == "" {
			return nil, fmt.Errorf("catalog: %s field %q has an empty prompt", name, f.ID)
		}
		if _, dup := seen[f.ID]; dup {
			return nil, fmt.Errorf("catalog: %s has duplicate field id %q", name, f.ID)
		}
		seen[f.ID] = struct{}{}
		switch f.Type {
		case domain.TypeBoolean, domain.TypeInteger, domain.TypeNumber, domain.TypeFreeText:
		case domain.TypeEnum:
			if len(f.Allowed) == 0 {
				return nil, fmt.Errorf("catalog: %s enum field %q has no allowed values", name, f.ID)
			}
		default:
			return nil, fmt.Errorf("catalog: %s field %q has unknown type %q", name, f.ID, f.Type)
		}
	}
	return &Catalog{name: name, fields: fields, rules: rules, sections: sections}, nil
}

func (c *Catalog) Name() string { return c.name }

func (c *Catalog) Len() int { return len(c.fields) }

func (c *Catalog) Field(i int) domain.Field { return c.fields[i] }

// NextRequired scans forward from fromIndex and returns the index of the
// next field the user must actually be asked, or Len() when the catalog is
// exhausted. Fields bypassed by a skip rule get their default recorded into
// answers before the scan moves on, so every logically resolved field has
// an explicit entry whether asked or defaulted.
func (c *Catalog) NextRequired(answers domain.AnswerSet, fromIndex int) int {
	for i := fromIndex; i < len(c.fields); i++ {
		f := c.fields[i]
		if _, done := answers[f.ID]; done {
			continue
		}
		def, skip := c.evaluateRules(f.ID, answers)
		if !skip {
			return i
		}
		answers[f.ID] = def
	}
	return len(c.fields)
}

// evaluateRules runs the declared rule list top to bottom; the first rule
// that matches decides. Rules only read answers already recorded, so one
// forward pass always terminates.
func (c *Catalog) evaluateRules(fieldID string, answers domain.AnswerSet) (any, bool) {
	for _, r := range c.rules {
		if def, ok := r.Applies(fieldID, answers); ok {
			return def, true
		}
	}
	return nil, false
}

// SectionOf maps a field id to its display section. The longest declared
// prefix wins when prefixes overlap.
func (c *Catalog) SectionOf(fieldID string) string {
	label, bestLen := GeneralSection, -1
	for _, s := range c.sections {
		if strings.HasPrefix(fieldID, s.Prefix) && len(s.Prefix) > bestLen {
			label, bestLen = s.Label, len(s.Prefix)
		}
	}
	return label
}
