package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tax-interview-agent/internal/domain"
)

func TestInterview_Shape(t *testing.T) {
	c, err := Interview()
	require.NoError(t, err)
	require.Equal(t, "interview", c.Name())
	require.Equal(t, 10, c.Len())
	require.Equal(t, "status", c.Field(0).ID)
	require.Equal(t, "self_emp", c.Field(9).ID)

	require.Equal(t, "Filing Information", c.SectionOf("status"))
	require.Equal(t, "Household", c.SectionOf("spouse_over_65"))
	require.Equal(t, "Income & Deductions", c.SectionOf("s_loans"))
}

func TestInterview_SingleFilerRule(t *testing.T) {
	c, err := Interview()
	require.NoError(t, err)

	answers := domain.AnswerSet{"status": StatusSingle, "itemizing": false, "over_65": false}
	next := c.NextRequired(answers, 3)

	require.Equal(t, 6, next) // s_loans
	require.Equal(t, false, answers["spouse_over_65"])
	require.Equal(t, 0, answers["kids"])
	require.Equal(t, 0, answers["dependents"])
}

func TestInterview_ZeroKidsDefaultsDependents(t *testing.T) {
	c, err := Interview()
	require.NoError(t, err)

	answers := domain.AnswerSet{
		"status": StatusMarried, "itemizing": false,
		"over_65": false, "spouse_over_65": false, "kids": 0,
	}
	next := c.NextRequired(answers, 5)

	require.Equal(t, 6, next)
	require.Equal(t, 0, answers["dependents"])
}

func TestForm_LoadsEmbeddedCatalog(t *testing.T) {
	c, err := Form()
	require.NoError(t, err)
	require.Equal(t, "form", c.Name())
	require.Equal(t, 84, c.Len())

	first := c.Field(0)
	require.Equal(t, "f1040sch1_state_tax_refunds", first.ID)
	require.Equal(t, domain.TypeNumber, first.Type)

	last := c.Field(c.Len() - 1)
	require.Equal(t, "ctc_sch8812_IIA_ss_and_medicare_withheld", last.ID)
}

func TestForm_TypesAndSections(t *testing.T) {
	c, err := Form()
	require.NoError(t, err)

	var under24 domain.Field
	for i := 0; i < c.Len(); i++ {
		if c.Field(i).ID == "f8863_under_24" {
			under24 = c.Field(i)
		}
	}
	require.Equal(t, domain.TypeBoolean, under24.Type)

	require.Equal(t, "Schedule A - Itemized Deductions", c.SectionOf("f1040_sched_a_medical_expenses"))
	require.Equal(t, "Form 1040", c.SectionOf("f1040_wages"))
	require.Equal(t, "Tax Refund Worksheet", c.SectionOf("f1040_tax_refund_ws_taxable_refund"))
	require.Equal(t, "Schedule 8812 - Child Tax Credit", c.SectionOf("ctc_sch8812_IIA_ss_and_medicare_withheld"))
}
