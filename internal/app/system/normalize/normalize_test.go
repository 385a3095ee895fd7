package normalize

import (
	"reflect"
	"testing"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"user@example.com", "user@example.com"},
		{"USER@EXAMPLE.COM", "user@example.com"},
		{"  User@Example.Com  ", "user@example.com"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Email(tt.input)
			if got != tt.want {
				t.Errorf("Email(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Ada Lovelace", "Ada Lovelace"},
		{"  Ada   Lovelace  ", "Ada Lovelace"},
		{"", ""},
		{"UPPERCASE NAME", "UPPERCASE NAME"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Name(tt.input)
			if got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEmployeeID(t *testing.T) {
	if got := EmployeeID("  emp-00042 "); got != "EMP-00042" {
		t.Errorf("EmployeeID: got %q, want %q", got, "EMP-00042")
	}
}

func TestSkills(t *testing.T) {
	got := Skills([]string{" Go ", "go", "", "MongoDB", "  ", "Résumé writing", "resume writing"})
	want := []string{"Go", "MongoDB", "Résumé writing"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Skills: got %v, want %v", got, want)
	}
}

func TestOneOf(t *testing.T) {
	allowed := []string{"pending", "approved"}
	if !OneOf(" Approved ", allowed) {
		t.Error("expected Approved to be allowed")
	}
	if OneOf("rejected", allowed) {
		t.Error("expected rejected to be refused")
	}
}
