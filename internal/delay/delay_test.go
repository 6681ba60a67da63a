package delay

import (
	"context"
	"testing"
	"time"
)

func TestUniform_WithinBounds(t *testing.T) {
	u := Uniform{Min: 10 * time.Millisecond, Max: 30 * time.Millisecond}

	for i := 0; i < 5; i++ {
		start := time.Now()
		if err := u.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		elapsed := time.Since(start)
		if elapsed < 10*time.Millisecond {
			t.Errorf("waited %v, expected at least 10ms", elapsed)
		}
	}
}

func TestUniform_ContextCancel(t *testing.T) {
	u := Uniform{Min: 10 * time.Second, Max: 10 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- u.Wait(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected context error after cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after context cancellation")
	}
}

func TestNone_Immediate(t *testing.T) {
	start := time.Now()
	if err := (None{}).Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("None waited %v, expected immediate return", elapsed)
	}
}

func TestFixed(t *testing.T) {
	start := time.Now()
	if err := (Fixed{D: 20 * time.Millisecond}).Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("waited %v, expected at least 20ms", elapsed)
	}
}
