package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/personal"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/search"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/session"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/trie"
	apperrors "github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/proto"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/rpc"
)

func sampleTree() *trie.Tree {
	t := trie.New()
	for _, w := range []string{"a", "b", "c"} {
		t.Insert("124", w)
	}
	t.Insert("125", "d")
	t.Insert("125", "e")
	t.Insert("136", "f")
	t.Insert("137", "g")
	return t
}

func newService(t *testing.T) (*Service, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	engine := session.NewEngine(sampleTree(), session.Options{
		Paging:  search.DefaultPageConfig(),
		Scores:  personal.New(),
		Metrics: m,
	})
	return NewService(engine, m), m
}

func pageWords(p proto.PageResponse) []string {
	out := make([]string, len(p.Words))
	for i, c := range p.Words {
		out[i] = c.Word
	}
	return out
}

func TestEncodePageShape(t *testing.T) {
	data, err := EncodePage(search.Page{}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"words":[],"chars":[],"hasNextPage":false}`, string(data))

	page := search.Page{
		Candidates: []search.CandidateDetail{{Word: "a", Path: []rune("124")}},
		HasNext:    true,
	}
	data, err = EncodePage(page, []string{"*"})
	require.NoError(t, err)
	assert.Equal(t, `{"words":[{"w":"a","p":"124"}],"chars":["*"],"hasNextPage":true}`, string(data))
}

func TestPairCodec(t *testing.T) {
	data, err := EncodePair(search.CandidatePair{Word: "天", Path: "12"})
	require.NoError(t, err)
	assert.Equal(t, `{"w":"天","p":"12"}`, string(data))

	pair, ok := ParsePair(" " + string(data) + "\n")
	require.True(t, ok)
	assert.Equal(t, search.CandidatePair{Word: "天", Path: "12"}, pair)

	for _, raw := range []string{"", "{", `{"w":"a"}`, `{"p":"1"}`, `[1,2]`, `"x"`} {
		_, ok := ParsePair(raw)
		assert.False(t, ok, raw)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s, m := newService(t)
	ctx := context.Background()

	open := s.OpenSession(ctx)
	require.NotEmpty(t, open.SessionID)
	assert.Equal(t, 1, s.SessionCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))

	in, err := s.SetInput(ctx, proto.SetInputRequest{SessionID: open.SessionID, Code: "1"})
	require.NoError(t, err)
	assert.True(t, in.Resolved)
	assert.Equal(t, []string{"2", "3"}, in.Chars)

	page, err := s.CurrentPage(ctx, proto.SessionRequest{SessionID: open.SessionID})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d", "f", "g"}, pageWords(page))
	assert.Equal(t, []string{"2", "3"}, page.Chars)

	miss, err := s.SetInput(ctx, proto.SetInputRequest{SessionID: open.SessionID, Code: "8"})
	require.NoError(t, err)
	assert.False(t, miss.Resolved)
	assert.Equal(t, []string{}, miss.Chars)

	require.NoError(t, s.CloseSession(ctx, proto.SessionRequest{SessionID: open.SessionID}))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveSessions))

	_, err = s.NextPage(ctx, proto.SessionRequest{SessionID: open.SessionID})
	assert.True(t, errors.Is(err, apperrors.ErrSessionNotFound))
	err = s.CloseSession(ctx, proto.SessionRequest{SessionID: open.SessionID})
	assert.True(t, errors.Is(err, apperrors.ErrSessionNotFound))
}

func TestPromoteThroughSession(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	id := s.OpenSession(ctx).SessionID
	_, err := s.SetInput(ctx, proto.SetInputRequest{SessionID: id, Code: "1"})
	require.NoError(t, err)

	resp, err := s.Promote(ctx, proto.PromoteRequest{SessionID: id, Candidate: proto.Candidate{Word: "b", Path: "124"}})
	require.NoError(t, err)
	assert.True(t, resp.Applied)

	page, err := s.CurrentPage(ctx, proto.SessionRequest{SessionID: id})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d", "f", "g"}, pageWords(page))

	score, err := s.Score(ctx, proto.ScoreRequest{Key: "b|124"})
	require.NoError(t, err)
	assert.True(t, score.Found)
	assert.Equal(t, 1, score.Score)
	assert.Positive(t, score.Effective)

	_, err = s.Promote(ctx, proto.PromoteRequest{Candidate: proto.Candidate{Word: "b"}})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	resp, err = s.Promote(ctx, proto.PromoteRequest{Candidate: proto.Candidate{Word: "zz", Path: "124"}})
	require.NoError(t, err)
	assert.False(t, resp.Applied)
}

func TestScoresExportImport(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, s.ImportScores(ctx, proto.ScoresPayload{Snapshot: `{"a|124":{"s":4,"t":100}}`}))
	out, err := s.ExportScores(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a|124":{"s":4,"t":100}}`, out.Snapshot)

	err = s.ImportScores(ctx, proto.ScoresPayload{Snapshot: `{"a":`})
	assert.True(t, errors.Is(err, apperrors.ErrMalformedScores))

	stats := s.Stats(ctx)
	assert.True(t, stats.Enabled)
	assert.Equal(t, 1, stats.ScoreEntries)
	assert.Equal(t, 7, stats.Candidates)
	assert.False(t, stats.AssociativeReady)
}

func TestDisabledEngine(t *testing.T) {
	s := NewService(session.NewEngine(nil, session.Options{}), nil)
	ctx := context.Background()
	id := s.OpenSession(ctx).SessionID

	in, err := s.SetInput(ctx, proto.SetInputRequest{SessionID: id, Code: "1"})
	require.NoError(t, err)
	assert.False(t, in.Resolved)

	sug, err := s.Suggest(ctx, proto.SuggestRequest{Chars: "天"})
	require.NoError(t, err)
	assert.Equal(t, []string{}, sug.Suggestions)
	assert.False(t, sug.Ready)

	_, err = s.ExportScores(ctx)
	assert.True(t, errors.Is(err, apperrors.ErrNotReady))
	assert.False(t, s.Stats(ctx).Enabled)
}

func TestReapIdle(t *testing.T) {
	s, m := newService(t)
	now := time.Unix(1000, 0)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	stale := s.OpenSession(ctx).SessionID
	now = now.Add(10 * time.Minute)
	fresh := s.OpenSession(ctx).SessionID

	assert.Equal(t, 1, s.ReapIdle(5*time.Minute))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))
	_, err := s.CurrentPage(ctx, proto.SessionRequest{SessionID: stale})
	assert.True(t, errors.Is(err, apperrors.ErrSessionNotFound))

	now = now.Add(4 * time.Minute)
	_, err = s.CurrentPage(ctx, proto.SessionRequest{SessionID: fresh})
	require.NoError(t, err)
	now = now.Add(4 * time.Minute)
	assert.Equal(t, 0, s.ReapIdle(5*time.Minute))
}

func TestHTTPRoutes(t *testing.T) {
	s, _ := newService(t)
	mux := http.NewServeMux()
	s.Routes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	do := func(method, path, body string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
		require.NoError(t, err)
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := do(http.MethodPost, "/v1/sessions", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var open proto.OpenSessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&open))
	base := "/v1/sessions/" + open.SessionID

	resp = do(http.MethodPost, base+"/input", `{"code":"124"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var in proto.SetInputResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&in))
	assert.Equal(t, []string{"*"}, in.Chars)

	resp = do(http.MethodGet, base+"/page", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page proto.PageResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Equal(t, []string{"a", "b", "c"}, pageWords(page))
	assert.False(t, page.HasNextPage)

	resp = do(http.MethodPost, base+"/select", `{"w":"c","p":"124"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var promoted proto.PromoteResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&promoted))
	assert.True(t, promoted.Applied)

	resp = do(http.MethodPost, base+"/select", `not json`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	promoted = proto.PromoteResponse{Applied: true}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&promoted))
	assert.False(t, promoted.Applied)

	resp = do(http.MethodGet, "/v1/scores/c|124", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = do(http.MethodGet, "/v1/scores/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(http.MethodPut, "/v1/scores", `{"x":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(http.MethodPost, base+"/input", `{`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(http.MethodGet, base+"/page", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRPCRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)
	s, _ := newService(t)
	srv := rpc.NewServer()
	s.Register(srv)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- srv.ServeListener(ln) }()

	c, err := rpc.Dial(ln.Addr().String())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var open proto.OpenSessionResponse
	require.NoError(t, c.Call(ctx, proto.MethodOpenSession, nil, &open))

	var in proto.SetInputResponse
	require.NoError(t, c.Call(ctx, proto.MethodSetInput, proto.SetInputRequest{SessionID: open.SessionID, Code: "13"}, &in))
	assert.Equal(t, []string{"6", "7"}, in.Chars)

	var page proto.PageResponse
	require.NoError(t, c.Call(ctx, proto.MethodNextPage, proto.SessionRequest{SessionID: open.SessionID}, &page))
	assert.Equal(t, []string{"f", "g"}, pageWords(page))

	var stats proto.StatsResponse
	require.NoError(t, c.Call(ctx, proto.MethodStats, nil, &stats))
	assert.Equal(t, 1, stats.Sessions)

	err = c.Call(ctx, proto.MethodCurrentPage, proto.SessionRequest{SessionID: "missing"}, &page)
	var rpcErr *rpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, http.StatusNotFound, rpcErr.Code)

	require.NoError(t, c.Call(ctx, proto.MethodCloseSession, proto.SessionRequest{SessionID: open.SessionID}, nil))
	assert.Equal(t, 0, s.SessionCount())

	require.NoError(t, c.Close())
	srv.Stop()
	require.NoError(t, <-done)
}

func TestPayloadsKeepMarkupCharacters(t *testing.T) {
	data, err := EncodePair(search.CandidatePair{Word: "&", Path: "<"})
	require.NoError(t, err)
	assert.Equal(t, `{"w":"&","p":"<"}`, string(data))

	page := search.Page{Candidates: []search.CandidateDetail{{Word: "<&>", Path: []rune("1")}}}
	data, err = EncodePage(page, []string{"*"})
	require.NoError(t, err)
	assert.Equal(t, `{"words":[{"w":"<&>","p":"1"}],"chars":["*"],"hasNextPage":false}`, string(data))

	tree := trie.New()
	tree.Insert("1", "&")
	s := NewService(session.NewEngine(tree, session.Options{Paging: search.DefaultPageConfig()}), nil)
	mux := http.NewServeMux()
	s.Routes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := srv.Client().Post(srv.URL+"/v1/sessions", "application/json", nil)
	require.NoError(t, err)
	var open proto.OpenSessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&open))
	resp.Body.Close()
	base := srv.URL + "/v1/sessions/" + open.SessionID

	resp, err = srv.Client().Post(base+"/input", "application/json", strings.NewReader(`{"code":"1"}`))
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = srv.Client().Get(base + "/page")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"words":[{"w":"&","p":"1"}],"chars":["*"],"hasNextPage":false}`+"\n", string(body))
}
