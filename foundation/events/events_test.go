package events_test

import (
	"testing"

	"github.com/ardanlabs/miner/foundation/events"
)

func Test_SendReceive(t *testing.T) {
	evts := events.New()
	defer evts.Shutdown()

	ch1 := evts.Acquire("one")
	ch2 := evts.Acquire("two")

	if n := evts.Len(); n != 2 {
		t.Fatalf("Should have two receivers, got %d", n)
	}

	evts.Send("miner: solved")

	for _, ch := range []<-chan events.Event{ch1, ch2} {
		e := <-ch
		if e.Message != "miner: solved" {
			t.Fatalf("Should receive the message, got %q", e.Message)
		}

		if e.Time.IsZero() {
			t.Fatalf("Should stamp the event time.")
		}
	}
}

func Test_AcquireSameID(t *testing.T) {
	evts := events.New()
	defer evts.Shutdown()

	ch1 := evts.Acquire("one")
	ch2 := evts.Acquire("one")

	if ch1 != ch2 {
		t.Fatalf("Should return the same channel for the same id.")
	}

	if n := evts.Len(); n != 1 {
		t.Fatalf("Should have one receiver, got %d", n)
	}
}

func Test_Release(t *testing.T) {
	evts := events.New()

	ch := evts.Acquire("one")

	if err := evts.Release("one"); err != nil {
		t.Fatalf("Should be able to release: %s", err)
	}

	if _, open := <-ch; open {
		t.Fatalf("Should close the channel on release.")
	}

	if err := evts.Release("one"); err == nil {
		t.Fatalf("Should not release an unknown id.")
	}
}

func Test_SendDoesNotBlock(t *testing.T) {
	evts := events.New()
	defer evts.Shutdown()

	ch := evts.Acquire("slow")

	for range 1000 {
		evts.Send("tick")
	}

	if n := len(ch); n == 0 || n == 1000 {
		t.Fatalf("Should buffer a bounded number of events, got %d", n)
	}
}

func Test_Shutdown(t *testing.T) {
	evts := events.New()

	ch := evts.Acquire("one")
	evts.Shutdown()

	if _, open := <-ch; open {
		t.Fatalf("Should close every channel on shutdown.")
	}

	if n := evts.Len(); n != 0 {
		t.Fatalf("Should remove every receiver, got %d", n)
	}
}
