package extract

import (
	"context"
	"errors"

	"github.com/poiesic/fundlens/core"
)

var (
	// ErrPageOutOfRange indicates a page number outside 1..PageCount.
	ErrPageOutOfRange = errors.New("page out of range")

	// ErrDocumentClosed indicates use of a document after Close.
	ErrDocumentClosed = errors.New("document is closed")

	// ErrService indicates the extraction service reported a failure.
	ErrService = errors.New("extraction service error")

	// ErrInvalidManifest indicates a manifest that cannot be served.
	ErrInvalidManifest = errors.New("invalid manifest")
)

// Page is the extracted content of one page.
type Page struct {
	// Number is 1-based.
	Number int             `json:"number"`
	Text   string          `json:"text"`
	Tables []core.RawTable `json:"tables,omitempty"`
}

// Document is an opened report. Pages are numbered from 1.
type Document interface {
	PageCount() int
	Page(ctx context.Context, number int) (*Page, error)
	Close() error
}

// Source opens a report for extraction.
type Source interface {
	Open(ctx context.Context) (Document, error)
}
