// Package bridge exposes the engine to external shells through typed
// requests and responses, served over the JSON-over-TCP RPC layer and HTTP.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/session"
	apperrors "github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/proto"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/rpc"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/tracing"
)

// Service owns the open input sessions of one engine.
type Service struct {
	engine  *session.Engine
	metrics *metrics.Metrics
	logger  *slog.Logger

	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	sess     *session.Session
	lastSeen time.Time
}

// NewService creates a Service over engine. m may be nil.
func NewService(engine *session.Engine, m *metrics.Metrics) *Service {
	return &Service{
		engine:   engine,
		metrics:  m,
		logger:   slog.Default().With("component", "bridge"),
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// OpenSession starts a new input session.
func (s *Service) OpenSession(ctx context.Context) proto.OpenSessionResponse {
	id := uuid.NewString()
	sess := s.engine.NewSession(id)

	s.mu.Lock()
	s.sessions[id] = &entry{sess: sess, lastSeen: s.now()}
	n := len(s.sessions)
	s.mu.Unlock()

	s.reportSessions(n)
	logger.FromContext(logger.WithSessionID(ctx, id)).Debug("session opened")
	return proto.OpenSessionResponse{SessionID: id}
}

// CloseSession discards a session.
func (s *Service) CloseSession(ctx context.Context, req proto.SessionRequest) error {
	s.mu.Lock()
	_, ok := s.sessions[req.SessionID]
	delete(s.sessions, req.SessionID)
	n := len(s.sessions)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", apperrors.ErrSessionNotFound, req.SessionID)
	}
	s.reportSessions(n)
	logger.FromContext(logger.WithSessionID(ctx, req.SessionID)).Debug("session closed")
	return nil
}

// SessionCount returns the number of open sessions.
func (s *Service) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ReapIdle closes sessions untouched for longer than maxIdle and returns
// how many were removed.
func (s *Service) ReapIdle(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	s.mu.Lock()
	removed := 0
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	if removed > 0 {
		s.reportSessions(n)
		s.logger.Info("idle sessions reaped", "removed", removed, "remaining", n)
	}
	return removed
}

// RunReaper calls ReapIdle every interval until ctx is cancelled.
func (s *Service) RunReaper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ReapIdle(maxIdle)
		}
	}
}

func (s *Service) session(id string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrSessionNotFound, id)
	}
	e.lastSeen = s.now()
	return e.sess, nil
}

// SetInput resolves a code in a session.
func (s *Service) SetInput(ctx context.Context, req proto.SetInputRequest) (proto.SetInputResponse, error) {
	sess, err := s.session(req.SessionID)
	if err != nil {
		return proto.SetInputResponse{}, err
	}
	_, span := tracing.StartChildSpan(ctx, "session.set_input")
	chars, ok := sess.SetInput(req.Code)
	span.SetAttr("code_len", len(req.Code))
	span.SetAttr("resolved", ok)
	span.End()
	if chars == nil {
		chars = []string{}
	}
	return proto.SetInputResponse{Resolved: ok, Chars: chars}, nil
}

// CurrentPage returns the session's page at its cursor.
func (s *Service) CurrentPage(_ context.Context, req proto.SessionRequest) (proto.PageResponse, error) {
	sess, err := s.session(req.SessionID)
	if err != nil {
		return proto.PageResponse{}, err
	}
	return PagePayload(sess.CurrentPage(), sess.Symbols()), nil
}

// NextPage advances the session one page.
func (s *Service) NextPage(ctx context.Context, req proto.SessionRequest) (proto.PageResponse, error) {
	sess, err := s.session(req.SessionID)
	if err != nil {
		return proto.PageResponse{}, err
	}
	_, span := tracing.StartChildSpan(ctx, "session.next_page")
	page := sess.NextPage()
	span.SetAttr("page", page.Number)
	span.End()
	return PagePayload(page, sess.Symbols()), nil
}

// PrevPage steps the session back one page.
func (s *Service) PrevPage(ctx context.Context, req proto.SessionRequest) (proto.PageResponse, error) {
	sess, err := s.session(req.SessionID)
	if err != nil {
		return proto.PageResponse{}, err
	}
	_, span := tracing.StartChildSpan(ctx, "session.prev_page")
	page := sess.PrevPage()
	span.SetAttr("page", page.Number)
	span.End()
	return PagePayload(page, sess.Symbols()), nil
}

// Promote reinforces a chosen candidate, through the session when one is
// named so observers see the selection.
func (s *Service) Promote(ctx context.Context, req proto.PromoteRequest) (proto.PromoteResponse, error) {
	pair := toPair(req.Candidate)
	if pair.Word == "" || pair.Path == "" {
		return proto.PromoteResponse{}, fmt.Errorf("%w: candidate needs word and path", apperrors.ErrInvalidInput)
	}
	if req.SessionID == "" {
		return proto.PromoteResponse{Applied: s.engine.Promote(pair)}, nil
	}
	sess, err := s.session(req.SessionID)
	if err != nil {
		return proto.PromoteResponse{}, err
	}
	return proto.PromoteResponse{Applied: sess.Select(logger.WithSessionID(ctx, req.SessionID), pair)}, nil
}

// Suggest returns associative suggestions.
func (s *Service) Suggest(_ context.Context, req proto.SuggestRequest) (proto.SuggestResponse, error) {
	out := s.engine.Suggest(req.Chars)
	if out == nil {
		out = []string{}
	}
	return proto.SuggestResponse{Suggestions: out, Ready: s.engine.SuggestionsReady()}, nil
}

// Score reads one long-term score record.
func (s *Service) Score(_ context.Context, req proto.ScoreRequest) (proto.ScoreResponse, error) {
	store := s.engine.Scores()
	if store == nil {
		return proto.ScoreResponse{}, fmt.Errorf("%w: score store disabled", apperrors.ErrNotReady)
	}
	resp := proto.ScoreResponse{Key: req.Key}
	rec, ok := store.Get(req.Key)
	if !ok {
		return resp, nil
	}
	resp.Found = true
	resp.Score = rec.Score
	resp.LastAccess = rec.LastAccess
	resp.Effective = store.EffectiveScore(req.Key)
	return resp, nil
}

// ExportScores returns the score store snapshot.
func (s *Service) ExportScores(context.Context) (proto.ScoresPayload, error) {
	store := s.engine.Scores()
	if store == nil {
		return proto.ScoresPayload{}, fmt.Errorf("%w: score store disabled", apperrors.ErrNotReady)
	}
	data, err := store.ExportJSON()
	if err != nil {
		return proto.ScoresPayload{}, err
	}
	return proto.ScoresPayload{Snapshot: string(data)}, nil
}

// ImportScores replaces the score store contents.
func (s *Service) ImportScores(_ context.Context, req proto.ScoresPayload) error {
	store := s.engine.Scores()
	if store == nil {
		return fmt.Errorf("%w: score store disabled", apperrors.ErrNotReady)
	}
	return store.ImportJSON([]byte(req.Snapshot))
}

// Stats summarises engine state.
func (s *Service) Stats(context.Context) proto.StatsResponse {
	resp := proto.StatsResponse{
		Enabled:          s.engine.Enabled(),
		Sessions:         s.SessionCount(),
		AssociativeReady: s.engine.SuggestionsReady(),
	}
	if tree := s.engine.Tree(); tree != nil {
		st := tree.Stats()
		resp.Nodes, resp.Terminals, resp.Candidates, resp.MaxDepth = st.Nodes, st.Terminals, st.Candidates, st.MaxDepth
	}
	if store := s.engine.Scores(); store != nil {
		resp.ScoreEntries = store.Len()
	}
	return resp
}

// Register binds every method to srv.
func (s *Service) Register(srv *rpc.Server) {
	srv.Register(proto.MethodOpenSession, func(ctx context.Context, _ json.RawMessage) (any, error) {
		return s.OpenSession(ctx), nil
	})
	srv.Register(proto.MethodCloseSession, handle(func(ctx context.Context, req proto.SessionRequest) (any, error) {
		return struct{}{}, s.CloseSession(ctx, req)
	}))
	srv.Register(proto.MethodSetInput, handle(s.SetInput))
	srv.Register(proto.MethodCurrentPage, handle(s.CurrentPage))
	srv.Register(proto.MethodNextPage, handle(s.NextPage))
	srv.Register(proto.MethodPrevPage, handle(s.PrevPage))
	srv.Register(proto.MethodPromote, handle(s.Promote))
	srv.Register(proto.MethodSuggest, handle(s.Suggest))
	srv.Register(proto.MethodScore, handle(s.Score))
	srv.Register(proto.MethodExportScores, func(ctx context.Context, _ json.RawMessage) (any, error) {
		return s.ExportScores(ctx)
	})
	srv.Register(proto.MethodImportScores, handle(func(ctx context.Context, req proto.ScoresPayload) (any, error) {
		return struct{}{}, s.ImportScores(ctx, req)
	}))
	srv.Register(proto.MethodStats, func(ctx context.Context, _ json.RawMessage) (any, error) {
		return s.Stats(ctx), nil
	})
}

// handle adapts a typed method to an rpc.HandlerFunc.
func handle[Req any, Resp any](fn func(context.Context, Req) (Resp, error)) rpc.HandlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var req Req
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &req); err != nil {
				return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
			}
		}
		resp, err := fn(ctx, req)
		if err != nil {
			return nil, err
		}
		return resp, nil
	}
}

func (s *Service) reportSessions(n int) {
	if s.metrics != nil {
		s.metrics.ActiveSessions.Set(float64(n))
	}
}
