package decode

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/comandaqr/ticket-gateway/internal/metrics"
	"github.com/comandaqr/ticket-gateway/internal/model"
	"github.com/comandaqr/ticket-gateway/internal/util"
)

// ConfirmEvent is the single resolved decode an orchestrator session
// forwards downstream.
type ConfirmEvent struct {
	StationID int64
	SessionID string
	Path      model.ScanPath
	Code      string
}

// Confirmer receives exactly one event per resolved session.
type Confirmer interface {
	Confirm(ctx context.Context, ev ConfirmEvent) error
}

// RouteResult is what one decode attempt produced after first-wins
// reconciliation.
type RouteResult struct {
	model.DecodeResult
	SessionID string
	Resolved  bool // this attempt won the session
	Duplicate bool // successful decode disregarded, session already resolved
}

// session holds the explicit already-resolved guard. Both paths may
// fire for the same physical ticket; the guard, not race order across
// goroutines, decides which one counts.
type session struct {
	mu         sync.Mutex
	resolved   bool
	text       string
	lastActive time.Time
}

// resolve returns true only for the first successful decode.
func (s *session) resolve(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved {
		return false
	}
	s.resolved = true
	s.text = text
	return true
}

const sessionTTL = 10 * time.Minute

// Orchestrator mediates between the live path and still submissions so
// the confirmation flow sees one decode event per ticket, whichever
// path produced it first. In-flight still decodes are not cancellable;
// a late result is simply disregarded by the session guard.
type Orchestrator struct {
	mu       sync.Mutex
	sessions map[string]*session

	still     *StillDecoder
	confirmer Confirmer
	log       *zap.Logger
}

func NewOrchestrator(still *StillDecoder, confirmer Confirmer, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		sessions:  make(map[string]*session),
		still:     still,
		confirmer: confirmer,
		log:       log,
	}
}

// SubmitStill runs the photo fallback path: normalize, decode, then
// first-wins routing. Decode failures surface in the result so the
// operator knows the fallback also failed and can retry capture.
func (o *Orchestrator) SubmitStill(ctx context.Context, stationID int64, sessionID, payload string) RouteResult {
	res := o.still.DecodePayload(payload)
	return o.route(ctx, stationID, sessionID, model.PathStill, res)
}

// ReportLive ingests a detection the client-side scanner already
// decoded.
func (o *Orchestrator) ReportLive(ctx context.Context, stationID int64, sessionID, text string) RouteResult {
	return o.route(ctx, stationID, sessionID, model.PathLive, model.DecodedSymbol(text))
}

func (o *Orchestrator) route(ctx context.Context, stationID int64, sessionID string, path model.ScanPath, res model.DecodeResult) RouteResult {
	sess, id := o.session(sessionID)
	out := RouteResult{DecodeResult: res, SessionID: id}

	if !res.Success {
		outcome := model.OutcomeDecodeError
		if res.Error == model.ReasonNoSymbol {
			outcome = model.OutcomeNoSymbol
		}
		metrics.DecodesTotal.WithLabelValues(path.String(), outcome.String()).Inc()
		return out
	}

	if !sess.resolve(res.Text) {
		out.Duplicate = true
		metrics.DecodesTotal.WithLabelValues(path.String(), model.OutcomeDuplicate.String()).Inc()
		o.log.Debug("decode disregarded, session already resolved",
			zap.String("session", id), zap.String("path", path.String()))
		return out
	}

	out.Resolved = true
	metrics.DecodesTotal.WithLabelValues(path.String(), model.OutcomeDecoded.String()).Inc()

	if o.confirmer != nil {
		if err := o.confirmer.Confirm(ctx, ConfirmEvent{
			StationID: stationID,
			SessionID: id,
			Path:      path,
			Code:      res.Text,
		}); err != nil {
			o.log.Error("confirmation failed",
				zap.String("session", id), zap.String("code", res.Text), zap.Error(err))
		}
	}
	return out
}

// session returns the tracked session for id, creating one (and an id)
// when needed. Stale sessions are pruned on access.
func (o *Orchestrator) session(id string) (*session, string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := time.Now()
	for k, s := range o.sessions {
		if now.Sub(s.lastActive) > sessionTTL {
			delete(o.sessions, k)
		}
	}

	if id == "" {
		id = util.NewID()
	}
	s, ok := o.sessions[id]
	if !ok {
		s = &session{}
		o.sessions[id] = s
	}
	s.lastActive = now
	return s, id
}
