package builder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/associative"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/trie"
)

func TestNormalizeCode(t *testing.T) {
	tests := map[string]string{
		"2k7": "2k7",
		"2u4": "2u4",
		"2u6": "2u6",
		"g3":  "g3",
		"g":   "g ",
		"ji":  "ji ",
		"":    "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeCode(in), in)
	}
}

func TestParseDictionary(t *testing.T) {
	src := `# sample
%gen_inp
%keyname begin
1 ㄅ
q ㄆ
%keyname end
%chardef begin
2k7 的
2u4 的
g4 是
g 詩
j3 你 好
bad
%chardef end
`
	tree := trie.New()
	st, err := ParseDictionary(strings.NewReader(src), tree)
	require.NoError(t, err)
	assert.Equal(t, 5, st.Entries)
	assert.Equal(t, 1, st.Skipped)

	n, ok := tree.Lookup("g ")
	require.True(t, ok)
	assert.Equal(t, []string{"詩"}, n.OrderedCandidates(0, 0))

	n, ok = tree.Lookup("j3")
	require.True(t, ok)
	assert.Equal(t, []string{"你 好"}, n.OrderedCandidates(0, 0))

	_, ok = tree.Lookup("1 ")
	assert.False(t, ok, "keyname section must not be read as entries")
}

func TestParseDictionaryWithoutSections(t *testing.T) {
	tree := trie.New()
	st, err := ParseDictionary(strings.NewReader("a4 阿\n\na4 啊\na4 阿\n"), tree)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Entries)

	n, _ := tree.Lookup("a4")
	assert.Equal(t, []string{"阿", "啊"}, n.OrderedCandidates(0, 0))
}

func TestParseDictionaryKeepsWordSpacing(t *testing.T) {
	tree := trie.New()
	st, err := ParseDictionary(strings.NewReader("  j3\t你  好 \nk4   a\tb\n"), tree)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Entries)

	n, ok := tree.Lookup("j3")
	require.True(t, ok)
	assert.Equal(t, []string{"你  好"}, n.OrderedCandidates(0, 0))

	n, ok = tree.Lookup("k4")
	require.True(t, ok)
	assert.Equal(t, []string{"a\tb"}, n.OrderedCandidates(0, 0))
}

func TestParseTrigrams(t *testing.T) {
	src := "天氣好\t300\n天氣壞\t150\r\n天使\t99\nnotab\n天才\tabc\n\n的人\t1000\textra\n"
	b := associative.NewBuilder(associative.DefaultThreshold)
	st, err := ParseTrigrams(strings.NewReader(src), b)
	require.NoError(t, err)

	assert.Equal(t, TrigramStats{Lines: 7, Kept: 3, BelowThreshold: 1, Invalid: 2}, st)
	tree := b.Build()
	assert.Equal(t, []string{"好", "壞"}, tree.Suggest("天氣"))
	assert.Equal(t, []string{"人"}, tree.Suggest("的"))
}
