// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/poiesic/fundlens/core"
)

const (
	DefaultChunkSize         = 1000
	DefaultChunkOverlap      = 200
	DefaultBoundaryThreshold = 0.5
)

// PageText is the narrative text of one page.
type PageText struct {
	Number int
	Text   string
}

// Chunker splits page text into bounded, overlapping spans. Lengths are
// counted in runes. A Chunker is immutable and safe for concurrent use.
type Chunker struct {
	size      int
	overlap   int
	threshold float64
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker) error

// WithChunkSize sets the target chunk length.
// Default is DefaultChunkSize.
func WithChunkSize(size int) ChunkerOption {
	return func(c *Chunker) error {
		if size < 1 {
			return fmt.Errorf("%w: chunk size %d", ErrInvalidChunker, size)
		}
		c.size = size
		return nil
	}
}

// WithOverlap sets how many runes consecutive chunks share.
// Default is DefaultChunkOverlap.
func WithOverlap(overlap int) ChunkerOption {
	return func(c *Chunker) error {
		if overlap < 0 {
			return fmt.Errorf("%w: overlap %d", ErrInvalidChunker, overlap)
		}
		c.overlap = overlap
		return nil
	}
}

// WithBoundaryThreshold sets how far into a window, as a fraction of the
// chunk size, a sentence break must fall to end the chunk early.
// Default is DefaultBoundaryThreshold.
func WithBoundaryThreshold(fraction float64) ChunkerOption {
	return func(c *Chunker) error {
		if math.IsNaN(fraction) || fraction < 0 || fraction > 1 {
			return fmt.Errorf("%w: boundary threshold %v", ErrInvalidChunker, fraction)
		}
		c.threshold = fraction
		return nil
	}
}

// NewChunker creates a chunker. An overlap that is not smaller than the
// chunk size is reduced to a quarter of it.
func NewChunker(opts ...ChunkerOption) (*Chunker, error) {
	c := &Chunker{
		size:      DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		threshold: DefaultBoundaryThreshold,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}
	return c, nil
}

// Chunk splits each page in order. Chunk text is trimmed of surrounding
// whitespace. Chunk indexes run from 0 across the whole document;
// whitespace-only spans are dropped without using an index.
func (c *Chunker) Chunk(documentID, fundID core.ID, pages []PageText) []core.TextChunk {
	var chunks []core.TextChunk
	index := 0
	for _, page := range pages {
		for _, span := range c.split(page.Text) {
			text := strings.TrimFunc(span, unicode.IsSpace)
			if text == "" {
				continue
			}
			chunks = append(chunks, core.TextChunk{
				Text:       text,
				PageNumber: page.Number,
				ChunkIndex: index,
				DocumentID: documentID,
				FundID:     fundID,
			})
			index++
		}
	}
	return chunks
}

// split returns the windows of one page's text. Each window is a
// contiguous substring of text.
func (c *Chunker) split(text string) []string {
	runes := []rune(text)
	minBreak := int(math.Ceil(c.threshold * float64(c.size)))

	var spans []string
	start := 0
	for start < len(runes) {
		end := min(start+c.size, len(runes))
		if end < len(runes) {
			if at := lastBreak(runes[start:end]); at >= 0 && at >= minBreak {
				end = start + at + 1
			}
		}
		spans = append(spans, string(runes[start:end]))

		if end >= len(runes) {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return spans
}

// lastBreak returns the index of the last period or newline, or -1.
func lastBreak(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] == '.' || window[i] == '\n' {
			return i
		}
	}
	return -1
}
