package asset

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/associative"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/trie"
	apperrors "github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/errors"
)

// maxDepth bounds recursion when decoding untrusted payloads.
const maxDepth = 256

// WritePrefixTree encodes t, including candidate and edge scores.
//
// Each node is written as its candidates (word, score), followed by its
// child edges (symbol, score), followed by each child's subtree in insertion
// order.
func WritePrefixTree(w io.Writer, t *trie.Tree) error {
	var (
		buf   []byte
		nodes int
	)
	t.Walk(func(_ *trie.Node, snap trie.NodeSnapshot) bool {
		nodes++
		buf = binary.AppendUvarint(buf, uint64(len(snap.Candidates)))
		for i, word := range snap.Candidates {
			buf = binary.AppendUvarint(buf, uint64(len(word)))
			buf = append(buf, word...)
			buf = binary.AppendVarint(buf, int64(snap.CandidateScores[i]))
		}
		buf = binary.AppendUvarint(buf, uint64(len(snap.Children)))
		for _, edge := range snap.Children {
			buf = binary.AppendUvarint(buf, uint64(edge.Key))
			buf = binary.AppendVarint(buf, int64(edge.Score))
		}
		return true
	})
	return writeBlob(w, PrefixTreeMagic, nodes, buf)
}

// ReadPrefixTree decodes a blob written by WritePrefixTree. Any structural
// problem is reported as ErrCorruptAsset.
func ReadPrefixTree(r io.Reader) (*trie.Tree, error) {
	h, raw, err := readBlob(r, PrefixTreeMagic)
	if err != nil {
		return nil, err
	}
	t := trie.New()
	c := &cursor{buf: raw}
	nodes := 0
	if err := readPrefixNode(c, t.Root(), 0, &nodes); err != nil {
		return nil, err
	}
	if err := c.done(); err != nil {
		return nil, err
	}
	if uint32(nodes) != h.NodeCount {
		return nil, fmt.Errorf("%w: decoded %d nodes, header says %d", apperrors.ErrCorruptAsset, nodes, h.NodeCount)
	}
	return t, nil
}

type edgeRecord struct {
	key   rune
	score int
}

func readPrefixNode(c *cursor, n *trie.Node, depth int, nodes *int) error {
	if depth > maxDepth {
		return fmt.Errorf("%w: tree deeper than %d", apperrors.ErrCorruptAsset, maxDepth)
	}
	*nodes++

	candidates, err := c.count()
	if err != nil {
		return err
	}
	for i := 0; i < candidates; i++ {
		word, err := c.str()
		if err != nil {
			return err
		}
		score, err := c.varint()
		if err != nil {
			return err
		}
		n.AddCandidate(word)
		n.SetCandidateScore(word, int(score))
	}

	children, err := c.count()
	if err != nil {
		return err
	}
	edges := make([]edgeRecord, children)
	for i := range edges {
		key, err := c.rune()
		if err != nil {
			return err
		}
		score, err := c.varint()
		if err != nil {
			return err
		}
		edges[i] = edgeRecord{key: key, score: int(score)}
	}
	for _, e := range edges {
		child := n.AddChild(e.key)
		n.SetChildScore(e.key, e.score)
		if err := readPrefixNode(c, child, depth+1, nodes); err != nil {
			return err
		}
	}
	return nil
}

// WriteAssociative encodes a frozen associative tree with its aggregate
// scores.
func WriteAssociative(w io.Writer, t *associative.Tree) error {
	var buf []byte
	nodes := 0
	var encode func(n *associative.Node)
	encode = func(n *associative.Node) {
		nodes++
		buf = binary.AppendVarint(buf, int64(n.Score()))
		children := n.Children()
		buf = binary.AppendUvarint(buf, uint64(len(children)))
		for _, child := range children {
			buf = binary.AppendUvarint(buf, uint64(child.Key()))
		}
		for _, child := range children {
			encode(child)
		}
	}
	encode(t.Root())
	return writeBlob(w, AssociativeMagic, nodes, buf)
}

// ReadAssociative decodes a blob written by WriteAssociative and returns the
// frozen tree.
func ReadAssociative(r io.Reader) (*associative.Tree, error) {
	h, raw, err := readBlob(r, AssociativeMagic)
	if err != nil {
		return nil, err
	}
	root := associative.NewRoot()
	c := &cursor{buf: raw}
	if err := readAssociativeNode(c, root, 0); err != nil {
		return nil, err
	}
	if err := c.done(); err != nil {
		return nil, err
	}
	t := associative.Freeze(root)
	if uint32(t.NodeCount()) != h.NodeCount {
		return nil, fmt.Errorf("%w: decoded %d nodes, header says %d", apperrors.ErrCorruptAsset, t.NodeCount(), h.NodeCount)
	}
	return t, nil
}

func readAssociativeNode(c *cursor, n *associative.Node, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("%w: tree deeper than %d", apperrors.ErrCorruptAsset, maxDepth)
	}
	score, err := c.varint()
	if err != nil {
		return err
	}
	n.SetScore(int(score))

	count, err := c.count()
	if err != nil {
		return err
	}
	keys := make([]rune, count)
	for i := range keys {
		if keys[i], err = c.rune(); err != nil {
			return err
		}
	}
	for _, key := range keys {
		if err := readAssociativeNode(c, n.AddChild(key), depth+1); err != nil {
			return err
		}
	}
	return nil
}
