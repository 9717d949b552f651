// Package chunker splits document bodies into bounded, overlapping chunks
// for embedding.
//
// The splitter is recursive-character style: within each window it prefers
// to break at a paragraph boundary, then a line break, then a space, so
// semantic boundaries win over mid-word cuts. Successive chunks overlap by
// a fixed amount and carry start offsets, so the union of chunks always
// covers the full source text.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Default chunking parameters.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// separators in priority order. The empty string is the hard-cut fallback.
var separators = []string{"\n\n", "\n", " "}

// Chunk is a contiguous substring of a document body.
type Chunk struct {
	// Text is the chunk content.
	Text string

	// Start is the byte offset of Text within the source.
	Start int

	// Index is the ordinal position of this chunk (0-based).
	Index int
}

// Config holds splitter parameters.
type Config struct {
	// ChunkSize is the maximum chunk length in bytes.
	ChunkSize int

	// Overlap is the number of bytes shared with the previous chunk.
	// Must be smaller than ChunkSize.
	Overlap int
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.Overlap == 0 {
		c.Overlap = DefaultOverlap
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("overlap cannot be negative, got %d", c.Overlap)
	}
	if c.Overlap >= c.ChunkSize {
		return fmt.Errorf("overlap %d must be smaller than chunk size %d", c.Overlap, c.ChunkSize)
	}
	return nil
}

// Splitter splits text into overlapping chunks.
type Splitter struct {
	config Config
}

// New creates a Splitter with the given configuration.
func New(config Config) (*Splitter, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &Splitter{config: config}, nil
}

// Split splits text into chunks of at most ChunkSize bytes.
//
// Invariant: for every position p in text there is a chunk c with
// c.Start <= p < c.Start+len(c.Text) - concatenating chunks minus the
// declared overlap reconstructs the full source with no gaps.
func (s *Splitter) Split(text string) []Chunk {
	if text == "" {
		return nil
	}
	if len(text) <= s.config.ChunkSize {
		return []Chunk{{Text: text, Start: 0, Index: 0}}
	}

	var chunks []Chunk
	pos := 0
	for pos < len(text) {
		end := pos + s.config.ChunkSize
		if end >= len(text) {
			chunks = append(chunks, Chunk{Text: text[pos:], Start: pos, Index: len(chunks)})
			break
		}

		// Cuts and advances land on rune boundaries so no chunk carries
		// a split multi-byte sequence.
		end = runeStart(text, end)
		if end <= pos {
			_, size := utf8.DecodeRuneInString(text[pos:])
			end = pos + size
		} else {
			end = pos + s.breakPoint(text[pos:end])
		}
		chunks = append(chunks, Chunk{Text: text[pos:end], Start: pos, Index: len(chunks)})

		next := runeStart(text, end-s.config.Overlap)
		if next <= pos {
			_, size := utf8.DecodeRuneInString(text[pos:])
			next = pos + size
		}
		pos = next
	}
	return chunks
}

// runeStart backs i up to the first byte of the rune containing it.
func runeStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// breakPoint returns the cut position within window, preferring the last
// occurrence of the highest-priority separator. The cut lands after the
// separator so chunks end on the boundary. Falls back to a hard cut at the
// window edge when no separator is found in the latter half.
func (s *Splitter) breakPoint(window string) int {
	// Only accept breaks past the midpoint; a break earlier than that
	// degenerates into many tiny chunks on separator-dense text.
	min := len(window) / 2
	for _, sep := range separators {
		if idx := strings.LastIndex(window, sep); idx > min {
			return idx + len(sep)
		}
	}
	return len(window)
}
