package task

import (
	"context"
	"errors"
	"testing"
)

func TestFileStats_Basic(t *testing.T) {
	stats, err := FileStats(context.Background(), []byte("a\nb\nc"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Lines != 2 {
		t.Errorf("expected 2 lines, got %d", stats.Lines)
	}
	if stats.Characters != 5 {
		t.Errorf("expected 5 characters, got %d", stats.Characters)
	}
}

func TestFileStats_Empty(t *testing.T) {
	stats, err := FileStats(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Lines != 0 || stats.Characters != 0 {
		t.Errorf("expected {0, 0}, got %+v", stats)
	}
}

func TestFileStats_MultiByteRunes(t *testing.T) {
	stats, err := FileStats(context.Background(), []byte("héllo\n✓"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Lines != 1 {
		t.Errorf("expected 1 line, got %d", stats.Lines)
	}
	if stats.Characters != 7 {
		t.Errorf("expected 7 characters, got %d", stats.Characters)
	}
}

func TestFileStats_InvalidUTF8(t *testing.T) {
	_, err := FileStats(context.Background(), []byte{0xff, 0xfe, 0xfd})
	if !errors.Is(err, ErrInvalidText) {
		t.Errorf("expected ErrInvalidText, got %v", err)
	}
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	r.Register(FileStatsName, FileStats)

	fn, ok := r.Lookup(FileStatsName)
	if !ok {
		t.Fatal("expected registered task to be found")
	}
	if fn == nil {
		t.Fatal("expected non-nil task function")
	}

	if _, ok := r.Lookup("no_such_task"); ok {
		t.Error("expected unknown task to be absent")
	}
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register("t", FileStats)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	r.Register("t", FileStats)
}

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	if _, ok := r.Lookup(FileStatsName); !ok {
		t.Error("expected file_stats in default registry")
	}
	if len(r.Names()) != 1 {
		t.Errorf("expected 1 registered task, got %d", len(r.Names()))
	}
}
