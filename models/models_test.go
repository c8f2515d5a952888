package models

import "testing"

func TestMergeDoesNotMutateBase(t *testing.T) {
	base := Profile{"retirement_age": 65.0, "monthly_contribution": 1500.0}
	merged := Merge(base, Patch{"monthly_contribution": 2000.0})

	if base.Number("monthly_contribution") != 1500 {
		t.Fatalf("base mutated: %v", base)
	}
	if merged.Number("monthly_contribution") != 2000 {
		t.Fatalf("patch not applied: %v", merged)
	}
	if merged.Number("retirement_age") != 65 {
		t.Fatalf("base field lost: %v", merged)
	}
}

func TestNumberFallsBackToDefault(t *testing.T) {
	p := Profile{"risk_tolerance": 7}
	if p.Number("risk_tolerance") != 7 {
		t.Fatalf("int value not read")
	}
	if p.Number("retirement_age") != 65 {
		t.Fatalf("missing field should read as default 65")
	}
	if p.Number("state_of_residence") != 0 {
		t.Fatalf("unregistered field should read as zero")
	}
}

func TestDefaultProfileCoversImportantFields(t *testing.T) {
	p := DefaultProfile()
	for _, fd := range ImportantFields {
		if p.Number(fd.Field) != fd.Default {
			t.Fatalf("field %s: got %v want %v", fd.Field, p.Number(fd.Field), fd.Default)
		}
	}
}
