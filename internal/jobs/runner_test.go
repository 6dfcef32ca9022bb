package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"tally/internal/log"
)

func TestRunOnceIsolatesFailures(t *testing.T) {
	var ran []string

	record := func(name string) Job {
		return Func{JobName: name, Fn: func(context.Context) error {
			ran = append(ran, name)
			return nil
		}}
	}

	failing := Func{JobName: "failing", Fn: func(context.Context) error {
		ran = append(ran, "failing")
		return errors.New("boom")
	}}
	panicking := Func{JobName: "panicking", Fn: func(context.Context) error {
		ran = append(ran, "panicking")
		panic("boom")
	}}

	r := NewRunner(time.Hour, log.New(log.DefaultConfig()),
		record("first"), failing, panicking, record("last"))

	r.RunOnce(context.Background())

	want := []string{"first", "failing", "panicking", "last"}
	if len(ran) != len(want) {
		t.Fatalf("ran %v, want %v", ran, want)
	}
	for i := range want {
		if ran[i] != want[i] {
			t.Fatalf("ran %v, want %v", ran, want)
		}
	}
}

func TestRunOnceStopsOnCancelledContext(t *testing.T) {
	count := 0
	job := Func{JobName: "counter", Fn: func(context.Context) error {
		count++
		return nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(time.Hour, log.New(log.DefaultConfig()), job, job)
	r.RunOnce(ctx)

	if count != 0 {
		t.Errorf("jobs ran %d times on a cancelled context, want 0", count)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	job := Func{JobName: "noop", Fn: func(context.Context) error { return nil }}
	r := NewRunner(10*time.Millisecond, log.New(log.DefaultConfig()), job)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
