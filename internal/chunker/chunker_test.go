package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultConfig(t *testing.T) {
	s, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultChunkSize, s.config.ChunkSize)
	assert.Equal(t, DefaultOverlap, s.config.Overlap)
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"overlap equals chunk size", Config{ChunkSize: 100, Overlap: 100}},
		{"overlap exceeds chunk size", Config{ChunkSize: 100, Overlap: 150}},
		{"negative overlap", Config{ChunkSize: 100, Overlap: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestSplit_EmptyText(t *testing.T) {
	s, err := New(Config{})
	require.NoError(t, err)
	assert.Nil(t, s.Split(""))
}

func TestSplit_ShortText(t *testing.T) {
	s, err := New(Config{ChunkSize: 100, Overlap: 20})
	require.NoError(t, err)

	chunks := s.Split("a short document")
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short document", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	s, err := New(Config{ChunkSize: 50, Overlap: 10})
	require.NoError(t, err)

	text := strings.Repeat("para one text here.", 2) + "\n\n" + strings.Repeat("para two text here.", 2)
	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)

	// First chunk ends on the paragraph separator when one falls in the
	// latter half of the window.
	if idx := strings.Index(text[:50], "\n\n"); idx > 25 {
		assert.True(t, strings.HasSuffix(chunks[0].Text, "\n\n"))
	}
}

func TestSplit_CoversEveryPosition(t *testing.T) {
	s, err := New(Config{ChunkSize: 80, Overlap: 20})
	require.NoError(t, err)

	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 30)
	chunks := s.Split(text)
	require.NotEmpty(t, chunks)

	covered := make([]bool, len(text))
	for _, c := range chunks {
		assert.Equal(t, text[c.Start:c.Start+len(c.Text)], c.Text)
		for p := c.Start; p < c.Start+len(c.Text); p++ {
			covered[p] = true
		}
	}
	for p, ok := range covered {
		require.True(t, ok, "position %d not covered by any chunk", p)
	}
}

func TestSplit_ChunkSizeBound(t *testing.T) {
	s, err := New(Config{ChunkSize: 64, Overlap: 16})
	require.NoError(t, err)

	text := strings.Repeat("word ", 200)
	for _, c := range s.Split(text) {
		assert.LessOrEqual(t, len(c.Text), 64)
	}
}

func TestSplit_SequentialIndexes(t *testing.T) {
	s, err := New(Config{ChunkSize: 64, Overlap: 16})
	require.NoError(t, err)

	for i, c := range s.Split(strings.Repeat("word ", 100)) {
		assert.Equal(t, i, c.Index)
	}
}

func TestSplit_NoSeparators(t *testing.T) {
	s, err := New(Config{ChunkSize: 50, Overlap: 10})
	require.NoError(t, err)

	// Continuous text with no break opportunities still terminates and
	// covers everything via hard cuts.
	text := strings.Repeat("x", 500)
	chunks := s.Split(text)
	require.NotEmpty(t, chunks)

	last := chunks[len(chunks)-1]
	assert.Equal(t, len(text), last.Start+len(last.Text))
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 50)
	}
}

func TestSplit_MultiByteRunesStayIntact(t *testing.T) {
	s, err := New(Config{ChunkSize: 50, Overlap: 10})
	require.NoError(t, err)

	// Three-byte runes with no separators force hard cuts; 50 is not a
	// multiple of 3, so a byte-offset cut would land mid-rune.
	text := strings.Repeat("少人数学級は学力を高める", 20)
	chunks := s.Split(text)
	require.NotEmpty(t, chunks)

	covered := make([]bool, len(text))
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c.Text), "chunk %d splits a rune: %q", c.Index, c.Text)
		assert.LessOrEqual(t, len(c.Text), 50)
		for p := c.Start; p < c.Start+len(c.Text); p++ {
			covered[p] = true
		}
	}
	for p, ok := range covered {
		require.True(t, ok, "position %d not covered by any chunk", p)
	}
}

func TestSplit_OverlapBetweenChunks(t *testing.T) {
	s, err := New(Config{ChunkSize: 50, Overlap: 10})
	require.NoError(t, err)

	text := strings.Repeat("x", 200)
	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		assert.Less(t, chunks[i].Start, prev.Start+len(prev.Text),
			"chunk %d does not overlap its predecessor", i)
	}
}
