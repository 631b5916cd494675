package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOperation_String(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{OpWrite, "write"},
		{OpCreate, "create"},
		{OpRemove, "remove"},
		{Operation(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestWatcher_PollDetectsLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")

	w := New()
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	var got []Operation
	w.OnChange(func(ev Event) { got = append(got, ev.Op) })

	if err := os.WriteFile(path, []byte("a = 1"), 0644); err != nil {
		t.Fatal(err)
	}
	w.Poll()

	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	w.Poll()

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	w.Poll()
	w.Poll()

	want := []Operation{OpCreate, OpWrite, OpRemove}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestWatcher_PanickingHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	w := New()
	_ = w.Watch(path)

	called := false
	w.OnChange(func(Event) { panic("boom") })
	w.OnChange(func(Event) { called = true })

	_ = os.WriteFile(path, []byte("x = 1"), 0644)
	w.Poll()

	if !called {
		t.Error("second handler not called after first panicked")
	}
}

func TestWatcher_StartStop(t *testing.T) {
	w := New(WithInterval(10 * time.Millisecond))
	w.Start()
	w.Start()
	if !w.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}
	w.Stop()
	w.Stop()
	if w.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
}
