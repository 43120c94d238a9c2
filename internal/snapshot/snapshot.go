// Package snapshot saves a loaded document minus its marker elements.
//
// The saver reads the output filename from the filename marker, removes the
// filename and footer markers, serializes what is left, and hands the result
// to a Downloader.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Default marker ids.
const (
	FileNameID = "fileName"
	FooterID   = "footer"
)

// ContentType is the media type attached to every saved blob.
const ContentType = "text/plain"

var (
	// ErrNotFound is wrapped by Document implementations when an element
	// cannot be found where it is expected.
	ErrNotFound = errors.New("element not found")

	// ErrFooterMissing is returned when the footer marker is not a child of body.
	ErrFooterMissing = errors.New("snapshot: footer marker missing")
)

// Document is the live tree the saver works on.
type Document interface {
	// ElementText returns the text content of the element with the given id.
	// ok is false when there is no such element.
	ElementText(ctx context.Context, id string) (text string, ok bool, err error)
	// RemoveElement detaches the element with the given id from its parent.
	RemoveElement(ctx context.Context, id string) error
	// RemoveBodyChild detaches the element with the given id from body. It
	// fails when the element does not exist or is not a direct child of body.
	RemoveBodyChild(ctx context.Context, id string) error
	// OuterHTML serializes the document element.
	OuterHTML(ctx context.Context) (string, error)
}

// Blob is a named chunk of bytes ready to be downloaded.
type Blob struct {
	Name string
	Type string
	Data []byte
}

// Downloader delivers a blob as a file.
type Downloader interface {
	Download(ctx context.Context, b Blob) error
}

// TransformFunc rewrites the serialized markup before it is wrapped.
type TransformFunc func(markup string) (string, error)

// Result describes a completed save.
type Result struct {
	FileName string
	Size     int
}

// Options configures a Saver.
type Options struct {
	FileNameID string
	FooterID   string
	Transform  TransformFunc
	Logger     *slog.Logger
}

func (o *Options) defaults() {
	if o.FileNameID == "" {
		o.FileNameID = FileNameID
	}
	if o.FooterID == "" {
		o.FooterID = FooterID
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Saver runs the strip-serialize-download sequence.
type Saver struct {
	opts Options
}

// New returns a Saver.
func New(opts Options) *Saver {
	opts.defaults()
	return &Saver{opts: opts}
}

// Save strips the markers from doc and downloads the rest under the name read
// from the filename marker. A document without a filename marker is left
// untouched and Save returns (nil, nil).
func (s *Saver) Save(ctx context.Context, doc Document, dl Downloader) (*Result, error) {
	log := s.opts.Logger

	name, ok, err := doc.ElementText(ctx, s.opts.FileNameID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", s.opts.FileNameID, err)
	}
	if !ok {
		log.Debug("snapshot: no filename marker, skipping", "id", s.opts.FileNameID)
		return nil, nil
	}

	if err := doc.RemoveElement(ctx, s.opts.FileNameID); err != nil {
		return nil, fmt.Errorf("snapshot: remove %s: %w", s.opts.FileNameID, err)
	}
	if err := doc.RemoveBodyChild(ctx, s.opts.FooterID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: #%s", ErrFooterMissing, s.opts.FooterID)
		}
		return nil, fmt.Errorf("snapshot: remove %s: %w", s.opts.FooterID, err)
	}

	markup, err := doc.OuterHTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: serialize: %w", err)
	}
	if s.opts.Transform != nil {
		markup, err = s.opts.Transform(markup)
		if err != nil {
			return nil, fmt.Errorf("snapshot: transform: %w", err)
		}
	}

	blob := Blob{Name: name, Type: ContentType, Data: []byte(markup)}
	if err := dl.Download(ctx, blob); err != nil {
		return nil, fmt.Errorf("snapshot: download %q: %w", name, err)
	}

	log.Debug("snapshot: saved", "file", name, "bytes", len(blob.Data))
	return &Result{FileName: name, Size: len(blob.Data)}, nil
}
