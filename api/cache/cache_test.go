package cache

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{key: "@fxn/greeting", want: "_fxn/greeting"},
		{key: "predictor:@natml/movenet-multipose", want: "predictor__natml/movenet-multipose"},
		{key: "../../etc/passwd", want: "././etc/passwd"},
		{key: "//a//b", want: "a/b"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := normalizeKey(tt.key); got != tt.want {
				t.Errorf("normalizeKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestGetOrSet(t *testing.T) {
	c := &Cache[string]{dir: t.TempDir(), ttl: time.Hour}

	calls := 0
	fn := func() (string, error) {
		calls++
		return "value", nil
	}

	for i := 0; i < 3; i++ {
		got, err := c.GetOrSet("@fxn/greeting", fn, false)
		if err != nil {
			t.Fatalf("GetOrSet() error = %v", err)
		}
		if got != "value" {
			t.Errorf("GetOrSet() = %q, want %q", got, "value")
		}
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}

	if _, err := c.GetOrSet("@fxn/greeting", fn, true); err != nil {
		t.Fatalf("GetOrSet(force) error = %v", err)
	}
	if calls != 2 {
		t.Errorf("fn called %d times after force update, want 2", calls)
	}
}

func TestGetOrSetExpired(t *testing.T) {
	c := &Cache[int]{dir: t.TempDir(), ttl: -time.Second}

	n := 0
	fn := func() (int, error) {
		n++
		return n, nil
	}
	first, _ := c.GetOrSet("k", fn, false)
	second, _ := c.GetOrSet("k", fn, false)
	if first == second {
		t.Errorf("expired entry was reused: %d", second)
	}
}

func TestGetOrSetError(t *testing.T) {
	c := &Cache[string]{dir: t.TempDir(), ttl: time.Hour}
	wantErr := errors.New("boom")

	_, err := c.GetOrSet("k", func() (string, error) { return "", wantErr }, false)
	if !errors.Is(err, wantErr) {
		t.Fatalf("GetOrSet() error = %v, want %v", err, wantErr)
	}

	got, err := c.GetOrSet("k", func() (string, error) { return "ok", nil }, false)
	if err != nil || got != "ok" {
		t.Errorf("GetOrSet() = %q, %v; errors must not be cached", got, err)
	}
}

func TestDelete(t *testing.T) {
	c := &Cache[string]{dir: t.TempDir(), ttl: time.Hour}
	if err := c.Delete("missing"); err != nil {
		t.Errorf("Delete(missing) error = %v", err)
	}

	c.GetOrSet("k", func() (string, error) { return "a", nil }, false)
	if err := c.Delete("k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	got, _ := c.GetOrSet("k", func() (string, error) { return "b", nil }, false)
	if got != "b" {
		t.Errorf("GetOrSet() after Delete = %q, want %q", got, "b")
	}
}
