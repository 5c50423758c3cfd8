package catalog

import "tax-interview-agent/internal/domain"

// Filing statuses recognized by the interview. The parser's
// substring-tolerant enum matching covers longer phrasings such as
// "married filing jointly".
const (
	StatusSingle          = "single"
	StatusMarried         = "married"
	StatusHeadOfHousehold = "head_of_household"
)

// Interview builds the short branching interview: ten filing and household
// questions whose skip rules default spouse and dependent fields that the
// earlier answers make moot.
func Interview() (*Catalog, error) {
	fields := []domain.Field{
		{ID: "status", Prompt: "What is your filing status? (single/married/head of household):", Type: domain.TypeEnum, Allowed: []string{StatusSingle, StatusMarried, StatusHeadOfHousehold}},
		{ID: "itemizing", Prompt: "Will you be itemizing deductions? (yes/no):", Type: domain.TypeBoolean},
		{ID: "over_65", Prompt: "Are you 65 or older? (yes/no):", Type: domain.TypeBoolean},
		{ID: "spouse_over_65", Prompt: "Is your spouse 65 or older? (yes/no):", Type: domain.TypeBoolean},
		{ID: "kids", Prompt: "How many children do you have?", Type: domain.TypeInteger},
		{ID: "dependents", Prompt: "How many of them are dependents?", Type: domain.TypeInteger},
		{ID: "s_loans", Prompt: "Did you pay student loan interest this year? (yes/no):", Type: domain.TypeBoolean},
		{ID: "cap_gains", Prompt: "Did you have capital gains or losses? (yes/no):", Type: domain.TypeBoolean},
		{ID: "have_rr", Prompt: "Do you have rental or royalty income? (yes/no):", Type: domain.TypeBoolean},
		{ID: "self_emp", Prompt: "Were you self-employed this year? (yes/no):", Type: domain.TypeBoolean},
	}
	rules := []SkipRule{
		{
			Name: "single_filer_defaults",
			Applies: func(fieldID string, answers domain.AnswerSet) (any, bool) {
				if answers["status"] != StatusSingle {
					return nil, false
				}
				switch fieldID {
				case "spouse_over_65":
					return false, true
				case "kids", "dependents":
					return 0, true
				}
				return nil, false
			},
		},
		{
			Name: "no_kids_no_dependents",
			Applies: func(fieldID string, answers domain.AnswerSet) (any, bool) {
				if fieldID != "dependents" {
					return nil, false
				}
				if kids, ok := answers["kids"].(int); ok && kids == 0 {
					return 0, true
				}
				return nil, false
			},
		},
	}
	sections := []Section{
		{Prefix: "status", Label: "Filing Information"},
		{Prefix: "itemizing", Label: "Filing Information"},
		{Prefix: "over_65", Label: "Household"},
		{Prefix: "spouse_over_65", Label: "Household"},
		{Prefix: "kids", Label: "Household"},
		{Prefix: "dependents", Label: "Household"},
		{Prefix: "s_loans", Label: "Income & Deductions"},
		{Prefix: "cap_gains", Label: "Income & Deductions"},
		{Prefix: "have_rr", Label: "Income & Deductions"},
		{Prefix: "self_emp", Label: "Income & Deductions"},
	}
	return New("interview", fields, rules, sections)
}
