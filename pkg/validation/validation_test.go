package validation

import (
	"errors"
	"testing"

	apperrors "rendezvous/pkg/errors"
	"rendezvous/pkg/logger"
)

type sample struct {
	Start string `validate:"required,valid_time_range"`
	Zone  string `validate:"omitempty,time_zone"`
	Email string `validate:"required,email"`
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{input: "00:00", want: 0},
		{input: "09:30", want: 570},
		{input: "23:59", want: 1439},
		{input: "24:00", wantErr: true},
		{input: "09:60", wantErr: true},
		{input: "9:00", wantErr: true},
		{input: "0900", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseClock(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseClock(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseClock(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestStruct(t *testing.T) {
	v := New(logger.Nop())

	tests := []struct {
		name       string
		input      sample
		wantFields []string
	}{
		{name: "valid", input: sample{Start: "09:00", Zone: "Europe/Paris", Email: "a@b.co"}},
		{name: "windows zone accepted", input: sample{Start: "09:00", Zone: "Pacific Standard Time", Email: "a@b.co"}},
		{name: "bad clock", input: sample{Start: "25:00", Email: "a@b.co"}, wantFields: []string{"Start"}},
		{name: "bad zone and email", input: sample{Start: "10:00", Zone: "Nowhere/City", Email: "nope"}, wantFields: []string{"Zone", "Email"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(&tt.input)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("Struct() unexpected error: %v", err)
				}
				return
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if len(verrs) != len(tt.wantFields) {
				t.Fatalf("expected %d errors, got %v", len(tt.wantFields), verrs)
			}
			for i, f := range tt.wantFields {
				if verrs[i].Field != f {
					t.Errorf("error %d field = %s, want %s", i, verrs[i].Field, f)
				}
			}
		})
	}
}

func TestToAppError(t *testing.T) {
	appErr := ToAppError("Rule validation failed", Field("EndTime", "end_time must be after start_time"))
	if appErr.Code != apperrors.CodeValidation {
		t.Errorf("expected validation code, got %s", appErr.Code)
	}
	verrs, ok := appErr.Details["errors"].(ValidationErrors)
	if !ok || len(verrs) != 1 || verrs[0].Field != "EndTime" {
		t.Errorf("unexpected details %v", appErr.Details)
	}

	plain := ToAppError("bad", errors.New("boom"))
	if plain.Details["error"] != "boom" {
		t.Errorf("unexpected details %v", plain.Details)
	}
}
