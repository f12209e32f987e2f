package decode

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/comandaqr/ticket-gateway/internal/model"
)

type fakeConfirmer struct {
	mu     sync.Mutex
	events []ConfirmEvent
}

func (f *fakeConfirmer) Confirm(ctx context.Context, ev ConfirmEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeConfirmer) confirmed() []ConfirmEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ConfirmEvent(nil), f.events...)
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeConfirmer) {
	t.Helper()
	fc := &fakeConfirmer{}
	o := NewOrchestrator(NewStillDecoder(zap.NewNop()), fc, zap.NewNop())
	return o, fc
}

func TestOrchestratorFirstWins(t *testing.T) {
	o, fc := newTestOrchestrator(t)
	ctx := context.Background()

	live := o.ReportLive(ctx, 1, "", "TICKET-ABC123")
	if !live.Resolved || !live.Success {
		t.Fatalf("live attempt should win: %+v", live)
	}
	if live.SessionID == "" {
		t.Fatal("expected generated session id")
	}

	// The still path lands late for the same session; its success must
	// be disregarded, not re-confirmed.
	payload := base64.StdEncoding.EncodeToString(qrPNG(t, "TICKET-ABC123", 300))
	still := o.SubmitStill(ctx, 1, live.SessionID, payload)
	if !still.Success {
		t.Fatalf("still decode should succeed: %+v", still)
	}
	if still.Resolved || !still.Duplicate {
		t.Fatalf("still attempt should be disregarded: %+v", still)
	}

	events := fc.confirmed()
	if len(events) != 1 {
		t.Fatalf("expected exactly one confirmation, got %d", len(events))
	}
	if events[0].Code != "TICKET-ABC123" || events[0].Path != model.PathLive {
		t.Fatalf("unexpected confirmation: %+v", events[0])
	}
}

func TestOrchestratorConcurrentResolution(t *testing.T) {
	o, fc := newTestOrchestrator(t)
	ctx := context.Background()

	const n = 16
	id := "sess-concurrent"
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			o.ReportLive(ctx, 1, id, "TICKET-RACE")
		}()
	}
	wg.Wait()

	var raced int
	for _, ev := range fc.confirmed() {
		if ev.SessionID == id {
			raced++
		}
	}
	if raced != 1 {
		t.Fatalf("expected one confirmation for the racing session, got %d", raced)
	}
}

func TestOrchestratorStillFailureSurfaced(t *testing.T) {
	o, fc := newTestOrchestrator(t)
	ctx := context.Background()

	blank := base64.StdEncoding.EncodeToString(blankPNG(t, 300))
	res := o.SubmitStill(ctx, 1, "", blank)
	if res.Success {
		t.Fatal("blank image should not decode")
	}
	if res.Error != model.ReasonNoSymbol {
		t.Fatalf("error = %q, want %q", res.Error, model.ReasonNoSymbol)
	}

	corrupt := o.SubmitStill(ctx, 1, "", base64.StdEncoding.EncodeToString([]byte("junk")))
	if corrupt.Success || corrupt.Error != model.ReasonProcessing {
		t.Fatalf("unexpected corrupt-image result: %+v", corrupt)
	}

	if len(fc.confirmed()) != 0 {
		t.Fatal("failed decodes must not trigger confirmation")
	}
}

func TestOrchestratorSeparateSessionsIndependent(t *testing.T) {
	o, fc := newTestOrchestrator(t)
	ctx := context.Background()

	a := o.ReportLive(ctx, 1, "sess-a", "TICKET-A")
	b := o.ReportLive(ctx, 2, "sess-b", "TICKET-B")
	if !a.Resolved || !b.Resolved {
		t.Fatalf("independent sessions should both resolve: %+v %+v", a, b)
	}
	if len(fc.confirmed()) != 2 {
		t.Fatalf("expected two confirmations, got %d", len(fc.confirmed()))
	}
}
