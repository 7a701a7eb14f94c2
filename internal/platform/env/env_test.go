package env

import (
	"testing"
	"time"
)

func TestString(t *testing.T) {
	t.Setenv("TODO_TEST_STRING", "  value ")
	if got := String("TODO_TEST_STRING", "fallback"); got != "value" {
		t.Fatalf("got %q", got)
	}
	t.Setenv("TODO_TEST_STRING", "   ")
	if got := String("TODO_TEST_STRING", "fallback"); got != "fallback" {
		t.Fatalf("blank value should fall back, got %q", got)
	}
}

func TestInt(t *testing.T) {
	t.Setenv("TODO_TEST_INT", "12")
	if got := Int("TODO_TEST_INT", 3); got != 12 {
		t.Fatalf("got %d", got)
	}
	t.Setenv("TODO_TEST_INT", "twelve")
	if got := Int("TODO_TEST_INT", 3); got != 3 {
		t.Fatalf("unparsable value should fall back, got %d", got)
	}
}

func TestDuration(t *testing.T) {
	t.Setenv("TODO_TEST_DURATION", "1500ms")
	if got := Duration("TODO_TEST_DURATION", time.Second); got != 1500*time.Millisecond {
		t.Fatalf("got %s", got)
	}
	t.Setenv("TODO_TEST_DURATION", "-5s")
	if got := Duration("TODO_TEST_DURATION", time.Second); got != time.Second {
		t.Fatalf("non-positive value should fall back, got %s", got)
	}
}
