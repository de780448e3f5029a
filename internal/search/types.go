package search

// CandidateDetail is one ranked candidate with the metadata needed to
// reinforce the path that produced it.
type CandidateDetail struct {
	Word      string `json:"word"`
	Path      []rune `json:"-"`
	WordIndex int    `json:"word_index"`
	NodeIndex int    `json:"node_index"`
}

// Pair reduces the detail to its transferable form.
func (d CandidateDetail) Pair() CandidatePair {
	return CandidatePair{Word: d.Word, Path: string(d.Path)}
}

// CandidatePair is the minimal (word, path) form exchanged at the boundary.
type CandidatePair struct {
	Word string `json:"w"`
	Path string `json:"p"`
}

// Cursor is a resumable offset into the ranked candidate sequence: the index
// of the node in the enumeration, how many of that node's candidates have
// already been emitted, and the page number.
type Cursor struct {
	NodeIndex int `json:"node_index"`
	Emitted   int `json:"emitted"`
	Page      int `json:"page"`
}

// PageConfig controls page size and the per-node contribution bound of the
// best-first strategy.
type PageConfig struct {
	PageSize   int `json:"page_size"`
	MaxPerNode int `json:"max_per_node"`
}

// DefaultPageConfig matches the keyboard's candidate bar.
func DefaultPageConfig() PageConfig {
	return PageConfig{PageSize: 9, MaxPerNode: 2}
}

func (c PageConfig) normalized() PageConfig {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageConfig().PageSize
	}
	return c
}

// Page is one page of ranked candidates. Next is the cursor that continues
// after this page.
type Page struct {
	Candidates []CandidateDetail `json:"candidates"`
	HasNext    bool              `json:"has_next"`
	Number     int               `json:"page"`
	Next       Cursor            `json:"next"`
}

// Pairs returns the page's candidates in boundary form.
func (p Page) Pairs() []CandidatePair {
	out := make([]CandidatePair, len(p.Candidates))
	for i, c := range p.Candidates {
		out[i] = c.Pair()
	}
	return out
}

// Strategy names the algorithm used to produce a page.
type Strategy string

const (
	StrategyDirect    Strategy = "direct"
	StrategyBestFirst Strategy = "best_first"
)
