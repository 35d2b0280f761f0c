package clock

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestManualAdvanceFiresInOrder(t *testing.T) {
	c := NewManual(t0)
	var got []string
	c.AfterFunc(2*time.Second, func() { got = append(got, "b") })
	c.AfterFunc(time.Second, func() { got = append(got, "a") })
	stopped := c.AfterFunc(1500*time.Millisecond, func() { got = append(got, "x") })
	if !stopped.Stop() {
		t.Fatal("Expected Stop to report the timer as pending")
	}

	c.Advance(3 * time.Second)

	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Expected [a b], but got %v", got)
	}
	if !c.Now().Equal(t0.Add(3 * time.Second)) {
		t.Errorf("Expected clock at %v, but got %v", t0.Add(3*time.Second), c.Now())
	}
	if c.Pending() != 0 {
		t.Errorf("Expected no pending timers, but got %d", c.Pending())
	}
}

func TestManualChainedTimers(t *testing.T) {
	c := NewManual(t0)
	fired := 0
	c.AfterFunc(time.Second, func() {
		fired++
		c.AfterFunc(time.Second, func() { fired++ })
	})

	c.Advance(1500 * time.Millisecond)
	if fired != 1 {
		t.Fatalf("Expected 1 callback after 1.5s, but got %d", fired)
	}
	c.Advance(time.Second)
	if fired != 2 {
		t.Errorf("Expected chained callback to fire, but got %d callbacks", fired)
	}
}

func TestManualStopAfterFire(t *testing.T) {
	c := NewManual(t0)
	tm := c.AfterFunc(0, func() {})
	c.Advance(0)
	if tm.Stop() {
		t.Error("Expected Stop on a fired timer to return false")
	}
}
