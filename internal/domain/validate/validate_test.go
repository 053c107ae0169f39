package validate

import (
	"errors"
	"strings"
	"testing"
)

func TestPlayerName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain", input: "Alice", want: "Alice"},
		{name: "trims whitespace", input: "  Bob  ", want: "Bob"},
		{name: "unicode", input: "Øyvind", want: "Øyvind"},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "   ", wantErr: true},
		{name: "reserved prefix", input: "__ownGoal__", wantErr: true},
		{name: "control character", input: "Al\tice", wantErr: true},
		{name: "too long", input: strings.Repeat("a", 41), wantErr: true},
		{name: "max length ok", input: strings.Repeat("a", 40), want: strings.Repeat("a", 40)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := PlayerName(tc.input)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidName) {
					t.Fatalf("expected ErrInvalidName, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestScore(t *testing.T) {
	t.Parallel()

	intPtr := func(v int) *int { return &v }

	if err := Score(nil); err != nil {
		t.Fatalf("nil score must be valid, got %v", err)
	}
	if err := Score(intPtr(0)); err != nil {
		t.Fatalf("0 must be valid, got %v", err)
	}
	if err := Score(intPtr(99)); err != nil {
		t.Fatalf("99 must be valid, got %v", err)
	}
	if err := Score(intPtr(100)); !errors.Is(err, ErrInvalidScore) {
		t.Fatalf("expected ErrInvalidScore for 100, got %v", err)
	}
	if err := Score(intPtr(-1)); !errors.Is(err, ErrInvalidScore) {
		t.Fatalf("expected ErrInvalidScore for -1, got %v", err)
	}
}

func TestSubdomain(t *testing.T) {
	t.Parallel()

	valid := []string{"a", "monday-crew", "club5", "x0", strings.Repeat("a", 63)}
	for _, v := range valid {
		if err := Subdomain(v); err != nil {
			t.Fatalf("expected %q valid, got %v", v, err)
		}
	}

	invalid := []string{"", "-lead", "trail-", "UPPER", "under_score", "dot.ted", strings.Repeat("a", 64)}
	for _, v := range invalid {
		if err := Subdomain(v); !errors.Is(err, ErrInvalidSubdomain) {
			t.Fatalf("expected %q invalid, got %v", v, err)
		}
	}
}

func TestSessionDate(t *testing.T) {
	t.Parallel()

	if err := SessionDate("2025-01-13"); err != nil {
		t.Fatalf("expected valid date, got %v", err)
	}
	for _, v := range []string{"2025-13-01", "2025-1-3", "20250113", "not-a-date", "2025-02-30"} {
		if err := SessionDate(v); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("expected %q invalid, got %v", v, err)
		}
	}
}
