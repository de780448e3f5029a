package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/associative"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/personal"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/search"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/trie"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/metrics"
)

type recordingObserver struct {
	mu   sync.Mutex
	seen []Selection
}

func (r *recordingObserver) ObserveSelection(_ context.Context, sel Selection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, sel)
}

func sampleTree() *trie.Tree {
	t := trie.New()
	for _, w := range []string{"a", "b", "c"} {
		t.Insert("124", w)
	}
	t.Insert("125", "d")
	t.Insert("125", "e")
	t.Insert("136", "f")
	t.Insert("137", "g")
	for i := 0; i < 20; i++ {
		t.Insert("9", fmt.Sprintf("w%02d", i))
	}
	return t
}

func words(p search.Page) []string {
	out := make([]string, len(p.Candidates))
	for i, c := range p.Candidates {
		out[i] = c.Word
	}
	return out
}

func TestSetInputSymbols(t *testing.T) {
	s := NewEngine(sampleTree(), Options{Paging: search.DefaultPageConfig()}).NewSession("s1")

	symbols, ok := s.SetInput("1")
	require.True(t, ok)
	assert.Equal(t, []string{"2", "3"}, symbols)

	symbols, ok = s.SetInput("124")
	require.True(t, ok)
	assert.Equal(t, []string{trie.Wildcard}, symbols)
	assert.Equal(t, "124", s.Input())

	symbols, ok = s.SetInput("8")
	assert.False(t, ok)
	assert.Nil(t, symbols)
	assert.Equal(t, search.Page{}, s.CurrentPage())

	_, ok = s.SetInput("")
	assert.False(t, ok)
}

func TestPaginationCycle(t *testing.T) {
	s := NewEngine(sampleTree(), Options{Paging: search.DefaultPageConfig()}).NewSession("s1")
	_, ok := s.SetInput("9")
	require.True(t, ok)

	first := s.CurrentPage()
	assert.Len(t, first.Candidates, 9)
	assert.True(t, first.HasNext)

	second := s.NextPage()
	assert.Equal(t, 1, second.Number)
	assert.Len(t, second.Candidates, 9)

	third := s.NextPage()
	assert.Equal(t, 2, third.Number)
	assert.Len(t, third.Candidates, 2)
	assert.False(t, third.HasNext)

	wrapped := s.NextPage()
	assert.Equal(t, first, wrapped)

	assert.Equal(t, first, s.PrevPage())
	assert.Equal(t, first, s.PrevPage())
}

func TestPrevPageStepsBack(t *testing.T) {
	s := NewEngine(sampleTree(), Options{Paging: search.DefaultPageConfig()}).NewSession("s1")
	s.SetInput("9")

	first := s.CurrentPage()
	second := s.NextPage()
	s.NextPage()

	assert.Equal(t, second, s.PrevPage())
	assert.Equal(t, first, s.PrevPage())
}

func TestNextPageWithoutCurrent(t *testing.T) {
	s := NewEngine(sampleTree(), Options{Paging: search.DefaultPageConfig()}).NewSession("s1")
	s.SetInput("9")
	assert.Equal(t, 1, s.NextPage().Number)
}

func TestBestFirstPageThroughSession(t *testing.T) {
	s := NewEngine(sampleTree(), Options{Paging: search.DefaultPageConfig()}).NewSession("s1")
	s.SetInput("1")
	p := s.CurrentPage()
	assert.Equal(t, []string{"a", "d", "f", "g"}, words(p))
	assert.False(t, p.HasNext)
}

func TestSetInputResetsCursor(t *testing.T) {
	s := NewEngine(sampleTree(), Options{Paging: search.DefaultPageConfig()}).NewSession("s1")
	s.SetInput("9")
	s.CurrentPage()
	s.NextPage()

	s.SetInput("9")
	assert.Equal(t, 0, s.CurrentPage().Number)

	s.SetInput("13")
	assert.Equal(t, []string{"f", "g"}, words(s.CurrentPage()))
}

func TestSelectPromotesAndRecords(t *testing.T) {
	tree := sampleTree()
	scores := personal.New()
	obs := &recordingObserver{}
	engine := NewEngine(tree, Options{
		Paging:   search.DefaultPageConfig(),
		Scores:   scores,
		Observer: obs,
	})
	s := engine.NewSession("s1")
	s.SetInput("1")
	s.CurrentPage()

	require.True(t, s.Select(context.Background(), search.CandidatePair{Word: "b", Path: "124"}))
	for _, code := range []string{"124", "12", "1"} {
		assert.Equal(t, []string{"b", "a", "c"}, tree.DescendCandidates(code, 0, 0), code)
	}
	assert.Equal(t, []string{"b", "d", "f", "g"}, words(s.CurrentPage()))

	rec, ok := scores.Get("b|124")
	require.True(t, ok)
	assert.Equal(t, 1, rec.Score)

	require.Len(t, obs.seen, 1)
	assert.Equal(t, "s1", obs.seen[0].SessionID)
	assert.Equal(t, "b", obs.seen[0].Pair.Word)
}

func TestSelectUnknownPairIsIgnored(t *testing.T) {
	scores := personal.New()
	obs := &recordingObserver{}
	engine := NewEngine(sampleTree(), Options{Scores: scores, Observer: obs})
	s := engine.NewSession("s1")

	assert.False(t, s.Select(context.Background(), search.CandidatePair{Word: "zz", Path: "124"}))
	assert.Equal(t, 0, scores.Len())
	assert.Empty(t, obs.seen)
}

func TestDisabledEngineReturnsDefaults(t *testing.T) {
	engine := NewEngine(nil, Options{})
	assert.False(t, engine.Enabled())

	s := engine.NewSession("s1")
	symbols, ok := s.SetInput("1")
	assert.False(t, ok)
	assert.Nil(t, symbols)
	assert.Equal(t, search.Page{}, s.CurrentPage())
	assert.Equal(t, search.Page{}, s.NextPage())
	assert.Equal(t, search.Page{}, s.PrevPage())
	assert.False(t, s.Select(context.Background(), search.CandidatePair{Word: "a", Path: "124"}))
	assert.Nil(t, engine.Suggest("天"))
}

func TestEngineSuggest(t *testing.T) {
	b := associative.NewBuilder(1)
	b.Add("天氣", 10)
	b.Add("天空", 20)
	tree := b.Build()
	mgr := associative.NewManager(func(context.Context) (*associative.Tree, error) { return tree, nil }, nil)
	require.NoError(t, mgr.Load(context.Background()))

	engine := NewEngine(sampleTree(), Options{Associative: mgr})
	assert.Equal(t, []string{"空", "氣"}, engine.Suggest("天"))
}

func TestLookupMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	s := NewEngine(sampleTree(), Options{Metrics: m}).NewSession("s1")

	s.SetInput("1")
	s.SetInput("124")
	s.SetInput("x")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.LookupsTotal.WithLabelValues("internal")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LookupsTotal.WithLabelValues("terminal")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LookupsTotal.WithLabelValues("miss")))
}

func TestScoreKey(t *testing.T) {
	assert.Equal(t, "測|124", ScoreKey(search.CandidatePair{Word: "測", Path: "124"}))
}

func wideTree() *trie.Tree {
	t := trie.New()
	for d := 0; d < 10; d++ {
		for w := 0; w < 10; w++ {
			t.Insert(fmt.Sprintf("1%d", d), fmt.Sprintf("w%d-%d", d, w))
		}
	}
	return t
}

func TestSelectRebuildsCurrentPageFromNewRanking(t *testing.T) {
	cfg := search.PageConfig{PageSize: 4, MaxPerNode: 2}
	for d := 0; d < 10; d++ {
		t.Run(fmt.Sprintf("target_%d", d), func(t *testing.T) {
			engine := NewEngine(wideTree(), Options{Paging: cfg})
			s := engine.NewSession("s1")
			s.SetInput("1")
			s.NextPage()
			s.NextPage()

			pair := search.CandidatePair{Word: fmt.Sprintf("w%d-0", d), Path: fmt.Sprintf("1%d", d)}
			require.True(t, s.Select(context.Background(), pair))
			got := s.CurrentPage()

			fresh := engine.NewSession("s2")
			fresh.SetInput("1")
			fresh.NextPage()
			want := fresh.NextPage()

			assert.Equal(t, 2, got.Number)
			assert.Equal(t, words(want), words(got))
		})
	}
}
