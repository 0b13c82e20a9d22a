package uithread

import (
	"testing"
	"time"
)

func TestPostRunsInFIFOOrder(t *testing.T) {
	loop := NewLoop()
	defer loop.Stop()

	var order []int
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		i := i
		loop.Post(func() { order = append(order, i) })
	}
	loop.Post(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("posted tasks did not run")
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("order = %v", order)
		}
	}
}

func TestCallReturnsValue(t *testing.T) {
	loop := NewLoop()
	defer loop.Stop()

	got, err := Call(loop, time.Second, func() int { return 42 })
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != 42 {
		t.Fatalf("Call = %d", got)
	}
}

func TestCallTimesOutOnSlowWork(t *testing.T) {
	loop := NewLoop()
	defer loop.Stop()

	block := make(chan struct{})
	defer close(block)
	loop.Post(func() { <-block })

	_, err := Call(loop, 50*time.Millisecond, func() bool { return true })
	if err != ErrTimeout {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestStopDrainsQueuedTasks(t *testing.T) {
	loop := NewLoop()

	ran := 0
	for i := 0; i < 5; i++ {
		loop.Post(func() { ran++ })
	}
	loop.Stop()

	if ran != 5 {
		t.Fatalf("ran = %d, want 5", ran)
	}

	// Posting after stop is a silent drop.
	loop.Post(func() { t.Error("task ran after stop") })
}
