package monitoring

import (
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/dronecharge/config"
	coremon "github.com/kilianp07/dronecharge/core/monitoring"
)

func TestNewSentryMonitor_EmptyDSN(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.(coremon.NopMonitor); !ok {
		t.Fatalf("expected NopMonitor got %T", m)
	}
}

func TestSentryMonitor_TagsRunID(t *testing.T) {
	var events []*sentry.Event
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn: "https://key@sentry.invalid/1",
		BeforeSend: func(e *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			events = append(events, e)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	m := &sentryMonitor{hub: sentry.NewHub(client, sentry.NewScope()), runID: "run-7"}
	m.CaptureException(errors.New("backend unreachable"), map[string]string{"step": "12"})
	if len(events) != 1 {
		t.Fatalf("expected one event got %d", len(events))
	}
	if events[0].Tags["run_id"] != "run-7" || events[0].Tags["step"] != "12" {
		t.Fatalf("missing tags %v", events[0].Tags)
	}
}
