package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

// StaticSource serves pages that were extracted ahead of time.
type StaticSource struct {
	FileName string `json:"file_name,omitempty"`
	Pages    []Page `json:"pages"`
}

var _ Source = (*StaticSource)(nil)

// LoadManifest reads a StaticSource from a JSON manifest file.
func LoadManifest(path string) (*StaticSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseManifest(f)
}

// ParseManifest decodes a JSON manifest. Pages without a number are
// numbered by position; numbers must then run 1..n in order.
func ParseManifest(r io.Reader) (*StaticSource, error) {
	var src StaticSource
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&src); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	for i := range src.Pages {
		if src.Pages[i].Number == 0 {
			src.Pages[i].Number = i + 1
		}
		if src.Pages[i].Number != i+1 {
			return nil, fmt.Errorf("%w: page %d at position %d", ErrInvalidManifest, src.Pages[i].Number, i+1)
		}
	}
	return &src, nil
}

// Open returns a document over the source's pages.
func (s *StaticSource) Open(ctx context.Context) (Document, error) {
	return &staticDocument{pages: s.Pages}, nil
}

type staticDocument struct {
	pages  []Page
	closed atomic.Bool
}

func (d *staticDocument) PageCount() int {
	return len(d.pages)
}

func (d *staticDocument) Page(ctx context.Context, number int) (*Page, error) {
	if d.closed.Load() {
		return nil, ErrDocumentClosed
	}
	if number < 1 || number > len(d.pages) {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, number, len(d.pages))
	}
	page := d.pages[number-1]
	return &page, nil
}

func (d *staticDocument) Close() error {
	d.closed.Store(true)
	return nil
}
