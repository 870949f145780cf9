package supervisor

import (
	"strings"
	"testing"
	"time"
)

func TestPumpLinesDeliversAndCloses(t *testing.T) {
	lines := make(chan string, 4)
	done := make(chan struct{})

	go pumpLines(strings.NewReader("one\ntwo\n"), lines, done)

	for _, want := range []string{"one", "two"} {
		select {
		case got := <-lines:
			if got != want {
				t.Fatalf("got %q, want %q", got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
	select {
	case _, ok := <-lines:
		if ok {
			t.Fatalf("unexpected extra line")
		}
	case <-time.After(time.Second):
		t.Fatalf("channel not closed after pipe end")
	}
}

func TestPumpLinesUnblocksOnDone(t *testing.T) {
	// More lines than channel capacity and no receiver: the pump must
	// still return once done closes, instead of blocking on the send.
	lines := make(chan string, 4)
	done := make(chan struct{})

	finished := make(chan struct{})
	go func() {
		pumpLines(strings.NewReader(strings.Repeat("late response\n", 16)), lines, done)
		close(finished)
	}()

	// Let the pump fill the channel and park on the blocked send.
	time.Sleep(10 * time.Millisecond)
	close(done)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatalf("pump still blocked after done closed")
	}
}
