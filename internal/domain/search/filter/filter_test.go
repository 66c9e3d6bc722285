package filter

import (
	"strings"
	"testing"
)

func floatPtr(f float64) *float64 { return &f }

func TestNewRangeFilter_Valid(t *testing.T) {
	tests := []struct {
		name     string
		min, max *float64
	}{
		{"min only", floatPtr(1), nil},
		{"max only", nil, floatPtr(10)},
		{"both", floatPtr(0), floatPtr(10)},
		{"point", floatPtr(3), floatPtr(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRangeFilter(tt.min, tt.max)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (r.Min() == nil) != (tt.min == nil) {
				t.Error("Min() mismatch")
			}
			if (r.Max() == nil) != (tt.max == nil) {
				t.Error("Max() mismatch")
			}
		})
	}
}

func TestNewRangeFilter_NoBoundary(t *testing.T) {
	_, err := NewRangeFilter(nil, nil)
	if err == nil {
		t.Fatal("expected error for no boundary")
	}
	if !strings.Contains(err.Error(), "at least one") {
		t.Errorf("error = %q", err)
	}
}

func TestNewRangeFilter_Inverted(t *testing.T) {
	if _, err := NewRangeFilter(floatPtr(5), floatPtr(1)); err == nil {
		t.Fatal("expected error for min > max")
	}
}

func TestNewMatch(t *testing.T) {
	c, err := NewMatch("view", "sea")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Field() != "view" || c.Match() != "sea" || !c.IsMatch() || c.IsRange() {
		t.Errorf("unexpected condition: %+v", c)
	}

	if _, err := NewMatch("", "sea"); err == nil {
		t.Error("expected error for empty field")
	}
	if _, err := NewMatch("view", ""); err == nil {
		t.Error("expected error for empty value")
	}
	if _, err := NewMatch("view", "   "); err == nil {
		t.Error("expected error for blank value")
	}
}

func TestNewMatch_FoldsValue(t *testing.T) {
	c, err := NewMatch("view", "  Sea View ")
	if err != nil {
		t.Fatal(err)
	}
	if c.Match() != "sea view" {
		t.Errorf("Match() = %q, want %q", c.Match(), "sea view")
	}
	if !c.Matches(map[string]string{"view": "Sea View"}, nil) {
		t.Error("stored value with different case should match")
	}
	if c.Matches(map[string]string{"view": "Sea"}, nil) {
		t.Error("different value should not match")
	}
}

func TestNewRange_EmptyField(t *testing.T) {
	r, _ := NewRangeFilter(floatPtr(1), nil)
	if _, err := NewRange("", r); err == nil {
		t.Fatal("expected error for empty field")
	}
}

func TestCondition_Matches(t *testing.T) {
	text := map[string]string{"view": "sea"}
	num := map[string]float64{"floor": 3}

	match, _ := NewMatch("view", "sea")
	other, _ := NewMatch("view", "garden")
	r, _ := NewRangeFilter(floatPtr(2), floatPtr(4))
	inRange, _ := NewRange("floor", r)
	r2, _ := NewRangeFilter(floatPtr(5), nil)
	outRange, _ := NewRange("floor", r2)
	missing, _ := NewRange("rooms", r)

	tests := []struct {
		name string
		c    Condition
		want bool
	}{
		{"match", match, true},
		{"mismatch", other, false},
		{"in range", inRange, true},
		{"out of range", outRange, false},
		{"missing field", missing, false},
	}
	for _, tt := range tests {
		if got := tt.c.Matches(text, num); got != tt.want {
			t.Errorf("%s: Matches = %v, want %v", tt.name, got, tt.want)
		}
	}
}
