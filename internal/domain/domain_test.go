package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseRole(t *testing.T) {
	cases := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"admin", RoleAdmin, false},
		{"manager", RoleManager, false},
		{"viewer", RoleViewer, false},
		{"", RoleViewer, false}, // unset defaults to viewer
		{"Admin", "", true},     // case-sensitive
		{"root", "", true},
	}
	for _, c := range cases {
		got, err := ParseRole(c.in)
		if c.wantErr {
			if !errors.Is(err, ErrValidation) {
				t.Errorf("ParseRole(%q): expected validation error, got %v", c.in, err)
			}
			continue
		}
		if err != nil || got != c.want {
			t.Errorf("ParseRole(%q) = (%v, %v), want %v", c.in, got, err, c.want)
		}
	}
}

func TestPageNormalize(t *testing.T) {
	cases := []struct {
		in   Page
		want Page
	}{
		{Page{}, Page{Skip: 0, Limit: DefaultPageLimit}},
		{Page{Skip: -5, Limit: 50}, Page{Skip: 0, Limit: 50}},
		{Page{Skip: 10, Limit: 0}, Page{Skip: 10, Limit: DefaultPageLimit}},
		{Page{Skip: 0, Limit: -1}, Page{Skip: 0, Limit: DefaultPageLimit}},
		{Page{Skip: 0, Limit: 5000}, Page{Skip: 0, Limit: MaxPageLimit}},
		{Page{Skip: 3, Limit: MaxPageLimit}, Page{Skip: 3, Limit: MaxPageLimit}},
	}
	for _, c := range cases {
		if got := c.in.Normalize(); got != c.want {
			t.Errorf("Normalize(%+v) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestUserSerializationHidesHash(t *testing.T) {
	u := User{ID: 1, Email: "a@b.c", Username: "a", PasswordHash: "$2a$10$secret", Role: RoleAdmin}
	raw, err := json.Marshal(u)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "secret") {
		t.Fatalf("password hash leaked: %s", raw)
	}
}

func TestValidationErrorf(t *testing.T) {
	err := ValidationErrorf("quantity must not be negative")
	if !errors.Is(err, ErrValidation) {
		t.Fatal("ValidationErrorf must wrap ErrValidation")
	}
	if !strings.Contains(err.Error(), "quantity") {
		t.Fatalf("message lost: %v", err)
	}
}

func TestIsConflict(t *testing.T) {
	for _, err := range []error{ErrDuplicateSKU, ErrDuplicateEmail, ErrDuplicateUsername} {
		if !IsConflict(err) {
			t.Errorf("IsConflict(%v) = false, want true", err)
		}
	}
	if IsConflict(ErrItemNotFound) {
		t.Error("IsConflict(ErrItemNotFound) = true, want false")
	}
	if IsConflict(nil) {
		t.Error("IsConflict(nil) = true, want false")
	}
}
