package bridge

import (
	"encoding/json"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/search"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/proto"
)

// PagePayload converts a page and next-symbol hint into the front-end
// payload. Nil slices become empty arrays.
func PagePayload(page search.Page, chars []string) proto.PageResponse {
	words := make([]proto.Candidate, len(page.Candidates))
	for i, c := range page.Pairs() {
		words[i] = proto.Candidate{Word: c.Word, Path: c.Path}
	}
	if chars == nil {
		chars = []string{}
	}
	return proto.PageResponse{
		Words:       words,
		Chars:       chars,
		HasNextPage: page.HasNext,
	}
}

// EncodePage renders {"words":[...],"chars":[...],"hasNextPage":bool}.
func EncodePage(page search.Page, chars []string) ([]byte, error) {
	return proto.Marshal(PagePayload(page, chars))
}

// EncodePair renders {"w":word,"p":path}.
func EncodePair(pair search.CandidatePair) ([]byte, error) {
	return proto.Marshal(proto.Candidate{Word: pair.Word, Path: pair.Path})
}

// ParsePair decodes a {"w","p"} payload. It reports false for malformed
// input or a missing word or path.
func ParsePair(raw string) (search.CandidatePair, bool) {
	var c proto.Candidate
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &c); err != nil {
		return search.CandidatePair{}, false
	}
	if c.Word == "" || c.Path == "" {
		return search.CandidatePair{}, false
	}
	return search.CandidatePair{Word: c.Word, Path: c.Path}, true
}

func toPair(c proto.Candidate) search.CandidatePair {
	return search.CandidatePair{Word: c.Word, Path: c.Path}
}
