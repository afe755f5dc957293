package locale

import (
	"testing"
	"time"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "empty defaults to UTC", input: "", want: "UTC"},
		{name: "IANA name", input: "Europe/Berlin", want: "Europe/Berlin"},
		{name: "windows name", input: "Pacific Standard Time", want: "America/Los_Angeles"},
		{name: "windows name with spaces", input: "  Israel Standard Time ", want: "Asia/Jerusalem"},
		{name: "unknown", input: "Mars/Olympus_Mons", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := Resolve(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Resolve(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.input, err)
			}
			if loc.String() != tt.want {
				t.Errorf("Resolve(%q) = %s, want %s", tt.input, loc, tt.want)
			}
		})
	}
}

func TestResolve_Cached(t *testing.T) {
	a, err := Resolve("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Resolve("Eastern Standard Time")
	if a != b {
		t.Error("expected the same cached location for aliases")
	}

	jan := time.Date(2024, 1, 15, 12, 0, 0, 0, a)
	if _, offset := jan.Zone(); offset != -5*3600 {
		t.Errorf("unexpected January offset %d", offset)
	}
}

func TestIsValid(t *testing.T) {
	if !IsValid("Asia/Tokyo") {
		t.Error("Asia/Tokyo should be valid")
	}
	if IsValid("Not/AZone") {
		t.Error("Not/AZone should be invalid")
	}
}
