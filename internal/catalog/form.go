package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"tax-interview-agent/internal/domain"
)

//go:embed form_fields.yaml
var formFieldsYAML []byte

// formField is the YAML shape of one long-form catalog entry. Type defaults
// to number; almost every field is a monetary amount.
type formField struct {
	ID     string `yaml:"id"`
	Prompt string `yaml:"prompt"`
	Type   string `yaml:"type"`
}

var formSections = []Section{
	{Prefix: "f1040sch1_", Label: "Schedule 1 - Additional Income & Adjustments"},
	{Prefix: "f1040sch2_", Label: "Schedule 2 - Additional Taxes"},
	{Prefix: "f1040sch3_", Label: "Schedule 3 - Nonrefundable Credits"},
	{Prefix: "f1040_", Label: "Form 1040"},
	{Prefix: "f1040_tax_refund_ws_", Label: "Tax Refund Worksheet"},
	{Prefix: "f1040_sched_a_", Label: "Schedule A - Itemized Deductions"},
	{Prefix: "f1040_sched_c_", Label: "Schedule C - Business Income"},
	{Prefix: "f1040_sched_e_", Label: "Schedule E - Rental & Royalties"},
	{Prefix: "student_loan_ws_", Label: "Student Loan Worksheet"},
	{Prefix: "sched_se_", Label: "Schedule SE - Self Employment"},
	{Prefix: "f4562_", Label: "Form 4562 - Depreciation"},
	{Prefix: "f8582_", Label: "Form 8582 - Passive Losses"},
	{Prefix: "f8863_", Label: "Form 8863 - Education Credits"},
	{Prefix: "ctc_sch8812_", Label: "Schedule 8812 - Child Tax Credit"},
}

// Form builds the flat long-form catalog from the embedded field list.
// Order in the YAML document is the traversal order.
func Form() (*Catalog, error) {
	var raw []formField
	if err := yaml.Unmarshal(formFieldsYAML, &raw); err != nil {
		return nil, fmt.Errorf("catalog: parse form fields: %w", err)
	}
	fields := make([]domain.Field, 0, len(raw))
	for _, f := range raw {
		t := domain.TypeNumber
		if f.Type != "" {
			t = domain.FieldType(f.Type)
		}
		fields = append(fields, domain.Field{ID: f.ID, Prompt: f.Prompt, Type: t})
	}
	return New("form", fields, nil, formSections)
}
