package metrics

import (
	"errors"
	"testing"
)

type recordSink struct {
	ticks    int
	sessions int
}

func (r *recordSink) RecordTick(TickSnapshot) error {
	r.ticks++
	return nil
}

func (r *recordSink) RecordChargeSession(ChargeSession) error {
	r.sessions++
	return nil
}

type tickOnly struct{ err error }

func (t tickOnly) RecordTick(TickSnapshot) error { return t.err }

// TestMultiSink ensures records are forwarded to all sinks.
func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2, tickOnly{})
	if err := m.RecordTick(TickSnapshot{Step: 1}); err != nil {
		t.Fatalf("record tick: %v", err)
	}
	if err := m.RecordChargeSession(ChargeSession{EVID: "ev1"}); err != nil {
		t.Fatalf("record session: %v", err)
	}
	if err := m.RecordDroneState(DroneState{}); err != nil {
		t.Fatalf("record drone state: %v", err)
	}
	if s1.ticks != 1 || s2.ticks != 1 || s1.sessions != 1 || s2.sessions != 1 {
		t.Fatalf("records not forwarded")
	}
}

func TestMultiSinkFirstError(t *testing.T) {
	boom := errors.New("boom")
	after := &recordSink{}
	m := NewMultiSink(tickOnly{err: boom}, after)
	if err := m.RecordTick(TickSnapshot{}); !errors.Is(err, boom) {
		t.Fatalf("expected boom got %v", err)
	}
	if after.ticks != 0 {
		t.Fatalf("sink after failure should not be called")
	}
}
