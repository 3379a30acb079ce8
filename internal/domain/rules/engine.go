package rules

import "strings"

// CatalogVersion identifies the rule catalog revision. Persisted findings are
// stamped with it so stored results stay interpretable after catalog changes.
const CatalogVersion = 1

// rule is one row of the catalog: if every medication in meds and every
// allergy in allergies is present in the normalized input sets, the finding
// fires. Adding a rule means adding a row here, never branching elsewhere.
type rule struct {
	meds      []string
	allergies []string
	finding   Finding
}

var catalog = []rule{
	{
		meds:      []string{"amoxicillin"},
		allergies: []string{"penicillin"},
		finding: Finding{
			ID:       "abx-penicillin-cross-reactivity",
			Title:    "Penicillin allergy with amoxicillin",
			Severity: SeverityHigh,
			Details: "Patient has a documented penicillin allergy while amoxicillin is in the medication list. " +
				"Consider alternative therapy and verify allergy history.",
		},
	},
}

// Check evaluates the rule catalog against the given medication and allergy
// lists. It is a pure function: inputs are normalized (trimmed, lower-cased)
// into sets, so ordering, duplicates, and casing never change the outcome.
func Check(medications, allergies []string) []Finding {
	meds := toSet(medications)
	allergySet := toSet(allergies)

	findings := []Finding{}
	for _, r := range catalog {
		if containsAll(meds, r.meds) && containsAll(allergySet, r.allergies) {
			findings = append(findings, r.finding)
		}
	}
	return findings
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		norm := strings.ToLower(strings.TrimSpace(v))
		if norm == "" {
			continue
		}
		set[norm] = struct{}{}
	}
	return set
}

func containsAll(set map[string]struct{}, required []string) bool {
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
