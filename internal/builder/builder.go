// Package builder turns source dictionaries into in-memory trees ready for
// the asset codec: .cin phonetic tables into prefix trees and tab-separated
// character n-gram counts into associative trees.
package builder

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/associative"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/trie"
)

// ToneMarks are the keys that end a syllable with an explicit tone. Codes
// without one are first tone and get FirstTone appended.
const ToneMarks = "6347"

// FirstTone terminates first-tone codes.
const FirstTone = " "

const maxLineBytes = 1 << 20

// NormalizeCode appends FirstTone to code unless it already ends in a tone
// mark.
func NormalizeCode(code string) string {
	if code == "" {
		return code
	}
	last, _ := utf8.DecodeLastRuneInString(code)
	if strings.ContainsRune(ToneMarks, last) {
		return code
	}
	return code + FirstTone
}

// DictionaryStats summarises a dictionary parse.
type DictionaryStats struct {
	Lines   int `json:"lines"`
	Entries int `json:"entries"`
	Skipped int `json:"skipped"`
}

// ParseDictionary reads "code word" lines into tree. Blank lines, '#'
// comments and '%' directives are ignored; only the %chardef section is read
// when one is present.
func ParseDictionary(r io.Reader, tree *trie.Tree) (DictionaryStats, error) {
	logger := slog.Default().With("component", "dictionary-builder")
	var (
		st      DictionaryStats
		section string
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		st.Lines++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "%") {
			fields := strings.Fields(line)
			if len(fields) == 2 && fields[1] == "begin" {
				section = strings.TrimPrefix(fields[0], "%")
			} else if len(fields) == 2 && fields[1] == "end" {
				section = ""
			}
			continue
		}
		if section != "" && section != "chardef" {
			continue
		}
		// The word is the rest of the line after the code, inner spacing kept.
		split := strings.IndexFunc(line, unicode.IsSpace)
		if split < 0 {
			st.Skipped++
			logger.Debug("skipping malformed dictionary line", "line", st.Lines)
			continue
		}
		code := NormalizeCode(line[:split])
		word := strings.TrimSpace(line[split:])
		tree.Insert(code, word)
		st.Entries++
	}
	if err := scanner.Err(); err != nil {
		return st, fmt.Errorf("reading dictionary: %w", err)
	}
	logger.Info("dictionary parsed", "lines", st.Lines, "entries", st.Entries, "skipped", st.Skipped)
	return st, nil
}

// TrigramStats summarises an n-gram corpus parse.
type TrigramStats struct {
	Lines          int `json:"lines"`
	Kept           int `json:"kept"`
	BelowThreshold int `json:"below_threshold"`
	Invalid        int `json:"invalid"`
}

// ParseTrigrams reads "sequence<TAB>frequency" lines into b. Lines without
// a tab or with a non-numeric frequency are counted as invalid.
func ParseTrigrams(r io.Reader, b *associative.Builder) (TrigramStats, error) {
	logger := slog.Default().With("component", "trigram-builder")
	var st TrigramStats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		st.Lines++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		seq, freqText, ok := strings.Cut(line, "\t")
		if !ok || seq == "" {
			st.Invalid++
			logger.Debug("invalid trigram line", "line", st.Lines)
			continue
		}
		if i := strings.IndexByte(freqText, '\t'); i >= 0 {
			freqText = freqText[:i]
		}
		freq, err := strconv.Atoi(strings.TrimSpace(freqText))
		if err != nil {
			st.Invalid++
			logger.Debug("invalid trigram frequency", "line", st.Lines, "value", freqText)
			continue
		}
		if b.Add(seq, freq) {
			st.Kept++
		} else {
			st.BelowThreshold++
		}
	}
	if err := scanner.Err(); err != nil {
		return st, fmt.Errorf("reading trigram corpus: %w", err)
	}
	logger.Info("trigram corpus parsed",
		"lines", st.Lines,
		"kept", st.Kept,
		"below_threshold", st.BelowThreshold,
		"invalid", st.Invalid,
	)
	return st, nil
}
