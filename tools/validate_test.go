package tools

import (
	"strings"
	"testing"
)

func TestValidateEmailID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
		errMsg  string
	}{
		{name: "numeric", id: "42"},
		{name: "sequence range", id: "1:5"},
		{name: "empty rejected", id: "", wantErr: true, errMsg: "required"},
		{name: "space rejected", id: "1 2", wantErr: true, errMsg: "invalid characters"},
		{name: "newline rejected", id: "1\r\nA002 LOGOUT", wantErr: true, errMsg: "invalid characters"},
		{name: "delete rejected", id: "1\x7f", wantErr: true, errMsg: "invalid characters"},
		{name: "too long", id: strings.Repeat("1", maxEmailIDSize+1), wantErr: true, errMsg: "maximum length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateEmailID(tt.id)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if tt.errMsg != "" && !strings.Contains(strings.ToLower(err.Error()), tt.errMsg) {
					t.Errorf("error = %q, want containing %q", err.Error(), tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateSizes(t *testing.T) {
	if err := validateBodySize(strings.Repeat("a", maxBodySize)); err != nil {
		t.Errorf("body at limit: %v", err)
	}
	if err := validateBodySize(strings.Repeat("a", maxBodySize+1)); err == nil {
		t.Error("body over limit should fail")
	}
	if err := validateSubjectSize(strings.Repeat("s", maxSubjectSize)); err != nil {
		t.Errorf("subject at limit: %v", err)
	}
	if err := validateSubjectSize(strings.Repeat("s", maxSubjectSize+1)); err == nil {
		t.Error("subject over limit should fail")
	}
}

func TestValidateFilter(t *testing.T) {
	for _, f := range []string{"today", "all", "date_range", "anything-else"} {
		if err := validateFilter(f); err != nil {
			t.Errorf("validateFilter(%q) = %v", f, err)
		}
	}
	if err := validateFilter("all\x00"); err == nil {
		t.Error("expected error for control character")
	}
}
