package qmp

import (
	"slices"
	"testing"
)

func TestQcodesForRune(t *testing.T) {
	if keys, ok := qcodesForRune('a'); !ok || !slices.Equal(keys, []string{"a"}) {
		t.Errorf("Expected [a], got %v (ok=%v)", keys, ok)
	}
	if keys, ok := qcodesForRune('A'); !ok || !slices.Equal(keys, []string{"shift", "a"}) {
		t.Errorf("Expected [shift a], got %v (ok=%v)", keys, ok)
	}
	if keys, ok := qcodesForRune('!'); !ok || !slices.Equal(keys, []string{"shift", "1"}) {
		t.Errorf("Expected [shift 1], got %v (ok=%v)", keys, ok)
	}
	if keys, ok := qcodesForRune(' '); !ok || !slices.Equal(keys, []string{"spc"}) {
		t.Errorf("Expected [spc], got %v (ok=%v)", keys, ok)
	}
	if _, ok := qcodesForRune('é'); ok {
		t.Error("Expected no mapping for é")
	}
}

func TestParseCombo(t *testing.T) {
	keys, err := parseCombo("ctrl-c")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !slices.Equal(keys, []string{"ctrl", "c"}) {
		t.Errorf("Expected [ctrl c], got %v", keys)
	}

	keys, err = parseCombo("Alt+F4")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !slices.Equal(keys, []string{"alt", "f4"}) {
		t.Errorf("Expected [alt f4], got %v", keys)
	}

	keys, err = parseCombo("enter")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !slices.Equal(keys, []string{"ret"}) {
		t.Errorf("Expected [ret], got %v", keys)
	}

	if _, err := parseCombo(""); err == nil {
		t.Error("Expected error for empty combination")
	}
	if _, err := parseCombo("ctrl-bogus"); err == nil {
		t.Error("Expected error for unknown key")
	}
}

func TestScaleAxis(t *testing.T) {
	if got := scaleAxis(0, 1280); got != 0 {
		t.Errorf("Expected 0, got %d", got)
	}
	if got := scaleAxis(1279, 1280); got != absAxisMax {
		t.Errorf("Expected %d, got %d", absAxisMax, got)
	}
	if got := scaleAxis(-5, 1280); got != 0 {
		t.Errorf("Expected clamp to 0, got %d", got)
	}
	if got := scaleAxis(5000, 1280); got != absAxisMax {
		t.Errorf("Expected clamp to %d, got %d", absAxisMax, got)
	}
}
