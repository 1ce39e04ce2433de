package ops

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestIsOwner(t *testing.T) {
	t.Parallel()
	b := &Bot{owners: map[int64]bool{42: true}}
	if !b.isOwner(&tele.User{ID: 42}) {
		t.Fatal("listed owner must pass")
	}
	if b.isOwner(&tele.User{ID: 7}) {
		t.Fatal("unlisted user must be refused")
	}
	if b.isOwner(nil) {
		t.Fatal("missing sender must be refused")
	}
}

func TestParseSetArgs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		payload string
		field   string
		value   int
		ok      bool
	}{
		{"day 15", "day", 15, true},
		{"Month 3", "month", 3, true},
		{"year 2024", "year", 2024, true},
		{"day", "", 0, false},
		{"day 1 2", "", 0, false},
		{"week 2", "", 0, false},
		{"day abc", "", 0, false},
		{"", "", 0, false},
	}
	for _, tt := range tests {
		field, value, err := parseSetArgs(tt.payload)
		if (err == nil) != tt.ok {
			t.Fatalf("parseSetArgs(%q) err = %v, want ok=%v", tt.payload, err, tt.ok)
		}
		if err == nil && (field != tt.field || value != tt.value) {
			t.Fatalf("parseSetArgs(%q) = %q, %d", tt.payload, field, value)
		}
	}
}

func TestParseEventArgs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		payload string
		sub     string
		arg     string
		ok      bool
	}{
		{"start midwinter", "start", "midwinter", true},
		{"END", "end", "", true},
		{"status", "status", "", true},
		{"start", "", "", false},
		{"start a b", "", "", false},
		{"end now", "", "", false},
		{"pause", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		sub, arg, err := parseEventArgs(tt.payload)
		if (err == nil) != tt.ok {
			t.Fatalf("parseEventArgs(%q) err = %v, want ok=%v", tt.payload, err, tt.ok)
		}
		if err == nil && (sub != tt.sub || arg != tt.arg) {
			t.Fatalf("parseEventArgs(%q) = %q, %q", tt.payload, sub, arg)
		}
	}
}
