package xtime

import (
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"PT5S":   5 * time.Second,
		"PT1M":   time.Minute,
		"P1DT2H": 24*time.Hour + 2*time.Hour,
		"P2W":    14 * 24 * time.Hour,
	}
	for input, want := range cases {
		got, err := ParseDuration(input)
		if err != nil {
			t.Fatalf("ParseDuration(%q) error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseDuration(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestParseDurationInvalid(t *testing.T) {
	if _, err := ParseDuration("not-a-duration"); err == nil {
		t.Fatalf("expected an error for a malformed duration")
	}
}

func TestFormatDuration(t *testing.T) {
	if got := FormatDuration(90 * time.Second); got != "PT90S" {
		t.Fatalf("FormatDuration = %q, want PT90S", got)
	}
}

func TestDiscreteDateTime(t *testing.T) {
	epoch := time.Unix(0, 0).UTC()
	got := DiscreteDateTime(epoch.Add(25*time.Hour), 24*time.Hour, 0)
	if got != epoch.Add(24*time.Hour) {
		t.Fatalf("DiscreteDateTime = %v, want %v", got, epoch.Add(24*time.Hour))
	}
}
