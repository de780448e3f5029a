// Package proto defines the request and response messages exchanged with the
// engine over the JSON-over-TCP RPC layer (see pkg/rpc) and the HTTP bridge.
//
// Candidate and page payloads keep the compact field names the keyboard
// front end already parses, so their tags must not change.
package proto

// Method names served by the bridge.
const (
	MethodOpenSession  = "Input.OpenSession"
	MethodCloseSession = "Input.CloseSession"
	MethodSetInput     = "Input.SetInput"
	MethodCurrentPage  = "Input.CurrentPage"
	MethodNextPage     = "Input.NextPage"
	MethodPrevPage     = "Input.PrevPage"
	MethodPromote      = "Input.Promote"
	MethodSuggest      = "Associative.Suggest"
	MethodScore        = "Scores.Get"
	MethodExportScores = "Scores.Export"
	MethodImportScores = "Scores.Import"
	MethodStats        = "Engine.Stats"
)

// ---------- Candidates ----------

// Candidate is a (word, path) pair.
type Candidate struct {
	Word string `json:"w"`
	Path string `json:"p"`
}

// PageResponse is one page of candidates plus the next-symbol hint. Chars
// is ["*"] once the input resolves to a terminal node.
type PageResponse struct {
	Words       []Candidate `json:"words"`
	Chars       []string    `json:"chars"`
	HasNextPage bool        `json:"hasNextPage"`
}

// ---------- Sessions ----------

// OpenSessionResponse carries the new session's identifier.
type OpenSessionResponse struct {
	SessionID string `json:"session_id"`
}

// SessionRequest addresses an existing session.
type SessionRequest struct {
	SessionID string `json:"session_id"`
}

// SetInputRequest resolves Code in a session.
type SetInputRequest struct {
	SessionID string `json:"session_id"`
	Code      string `json:"code"`
}

// SetInputResponse reports whether Code resolved and the next-symbol hint.
type SetInputResponse struct {
	Resolved bool     `json:"resolved"`
	Chars    []string `json:"chars"`
}

// PromoteRequest reinforces a chosen candidate. SessionID is optional.
type PromoteRequest struct {
	SessionID string    `json:"session_id,omitempty"`
	Candidate Candidate `json:"candidate"`
}

// PromoteResponse reports whether the ranking changed.
type PromoteResponse struct {
	Applied bool `json:"applied"`
}

// ---------- Associative ----------

// SuggestRequest asks for characters likely to follow Chars.
type SuggestRequest struct {
	Chars string `json:"chars"`
}

// SuggestResponse lists suggestions best first. Ready is false while the
// associative tree is still loading.
type SuggestResponse struct {
	Suggestions []string `json:"suggestions"`
	Ready       bool     `json:"ready"`
}

// ---------- Scores ----------

// ScoreRequest reads the long-term score of Key.
type ScoreRequest struct {
	Key string `json:"key"`
}

// ScoreResponse is a stored record and its decayed effective score.
type ScoreResponse struct {
	Key        string `json:"key"`
	Found      bool   `json:"found"`
	Score      int    `json:"score"`
	LastAccess int64  `json:"last_access"`
	Effective  int    `json:"effective"`
}

// ScoresPayload carries a score store snapshot as raw JSON text.
type ScoresPayload struct {
	Snapshot string `json:"snapshot"`
}

// ---------- Engine ----------

// StatsResponse summarises engine state.
type StatsResponse struct {
	Enabled          bool `json:"enabled"`
	Nodes            int  `json:"nodes"`
	Terminals        int  `json:"terminals"`
	Candidates       int  `json:"candidates"`
	MaxDepth         int  `json:"max_depth"`
	Sessions         int  `json:"sessions"`
	ScoreEntries     int  `json:"score_entries"`
	AssociativeReady bool `json:"associative_ready"`
}
