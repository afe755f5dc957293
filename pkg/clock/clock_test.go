package clock

import (
	"testing"
	"time"
)

func TestManual(t *testing.T) {
	start := time.Date(2024, 3, 4, 8, 0, 0, 0, time.FixedZone("X", 3600))
	c := NewManual(start)

	if got := c.Now(); !got.Equal(start) || got.Location() != time.UTC {
		t.Fatalf("Now() = %v, want %v in UTC", got, start)
	}

	c.Advance(90 * time.Minute)
	if got := c.Now(); !got.Equal(start.Add(90 * time.Minute)) {
		t.Errorf("Advance() = %v", got)
	}

	later := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Set(later)
	if !c.Now().Equal(later) {
		t.Errorf("Set() = %v", c.Now())
	}
}

func TestSystem(t *testing.T) {
	if System().Now().Location() != time.UTC {
		t.Error("system clock should report UTC")
	}
}
