package domain

import (
	"reflect"
	"testing"
	"time"
)

func TestNewLead_FieldsAndDefaults(t *testing.T) {
	at := time.Date(2026, 1, 7, 15, 4, 0, 0, time.UTC)

	lead := NewLead("john_doe", 42, "John", "79991234567", "Freedom", at)
	if lead.Username != "john_doe" {
		t.Errorf("Username = %q, want %q", lead.Username, "john_doe")
	}
	if lead.Status != StatusNew {
		t.Errorf("Status = %q, want %q", lead.Status, StatusNew)
	}
	if lead.SubmittedAt != "07.01.2026 15:04" {
		t.Errorf("SubmittedAt = %q, want %q", lead.SubmittedAt, "07.01.2026 15:04")
	}

	anon := NewLead("", 42, "John", "79991234567", "Freedom", at)
	if anon.Username != DefaultUsername {
		t.Errorf("empty username = %q, want %q", anon.Username, DefaultUsername)
	}
}

func TestLead_RowColumnOrder(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	lead := NewLead("jane", 1001, "Jane Smith", "380501234567", "call me back", at)

	want := []string{
		"jane",
		"1001",
		"Jane Smith",
		"02.03.2026 09:30",
		"380501234567",
		"call me back",
		"New",
	}
	if got := lead.Row(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Row() = %v, want %v", got, want)
	}
}
