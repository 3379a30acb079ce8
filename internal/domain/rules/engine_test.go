package rules

import (
	"reflect"
	"testing"
)

func TestCheck_PenicillinCrossReactivity(t *testing.T) {
	findings := Check([]string{"Amoxicillin"}, []string{"Penicillin"})
	if len(findings) != 1 {
		t.Fatalf("expected exactly one finding, got %d", len(findings))
	}
	f := findings[0]
	if f.ID != "abx-penicillin-cross-reactivity" {
		t.Errorf("unexpected id: %s", f.ID)
	}
	if f.Severity != SeverityHigh {
		t.Errorf("expected high severity, got %s", f.Severity)
	}
}

func TestCheck_NoMedications(t *testing.T) {
	findings := Check(nil, []string{"penicillin"})
	if len(findings) != 0 {
		t.Errorf("expected no findings, got %v", findings)
	}
}

func TestCheck_NoMatchingAllergy(t *testing.T) {
	findings := Check([]string{"amoxicillin"}, []string{"sulfa"})
	if len(findings) != 0 {
		t.Errorf("expected no findings, got %v", findings)
	}
}

func TestCheck_PureAcrossCasingAndDuplicates(t *testing.T) {
	base := Check([]string{"amoxicillin"}, []string{"penicillin"})
	variants := [][2][]string{
		{{"AMOXICILLIN"}, {"Penicillin"}},
		{{" amoxicillin ", "amoxicillin"}, {"penicillin", "PENICILLIN"}},
		{{"azithromycin", "amoxicillin"}, {"latex", "penicillin"}},
	}
	for _, v := range variants {
		got := Check(v[0], v[1])
		if !reflect.DeepEqual(got, base) {
			t.Errorf("Check(%v, %v) = %v, want %v", v[0], v[1], got, base)
		}
	}
}

func TestCheck_RepeatedCallsIdentical(t *testing.T) {
	meds := []string{"amoxicillin"}
	allergies := []string{"penicillin"}
	first := Check(meds, allergies)
	for i := 0; i < 10; i++ {
		if got := Check(meds, allergies); !reflect.DeepEqual(got, first) {
			t.Fatalf("call %d differed: %v vs %v", i, got, first)
		}
	}
}

func TestCheck_IgnoresEmptyEntries(t *testing.T) {
	findings := Check([]string{"", "  ", "amoxicillin"}, []string{"penicillin", ""})
	if len(findings) != 1 {
		t.Errorf("expected one finding, got %d", len(findings))
	}
}
