package model

import (
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"", true},
		{"   ", true},
		{"Ana", false},
		{"Eco Collectors Ljubljana", false},
		{strings.Repeat("x", MaxNameLength), false},
		{strings.Repeat("x", MaxNameLength+1), true},
	}

	for _, tt := range tests {
		err := ValidateName(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestStringListRoundTrip(t *testing.T) {
	list := StringList{"PET", "HDPE"}
	v, err := list.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var got StringList
	if err := got.Scan(v); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 2 || got[0] != "PET" || got[1] != "HDPE" {
		t.Errorf("expected [PET HDPE], got %v", got)
	}
}

func TestStringListScanNull(t *testing.T) {
	var got StringList
	if err := got.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", got)
	}
}

func TestCategoryValid(t *testing.T) {
	if !CategorySeeking.Valid() || !CategorySelling.Valid() {
		t.Error("expected known categories to be valid")
	}
	if Category("BARTER").Valid() {
		t.Error("expected unknown category to be invalid")
	}
}
