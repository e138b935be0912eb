package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dvloznov/financr/internal/domain"
)

// SinkKind names a delivery target.
type SinkKind string

const (
	SinkFile   SinkKind = "file"
	SinkGCS    SinkKind = "gcs"
	SinkAzure  SinkKind = "azure_blob"
	SinkNotion SinkKind = "notion"
)

// Object is one rendered report ready for delivery.
type Object struct {
	UserID   string
	Filename string
	Content  string
	Report   *domain.TaxReport
}

// NewObject renders r into a deliverable object.
func NewObject(r *domain.TaxReport) Object {
	obj := Object{
		Filename: Filename(r),
		Content:  Render(r),
		Report:   r,
	}
	if r != nil {
		obj.UserID = r.UserID
	}
	return obj
}

// Sink delivers a rendered report and returns where it was stored.
type Sink interface {
	Put(ctx context.Context, obj Object) (string, error)
}

// FileSink writes reports into a local directory.
type FileSink struct {
	dir string
}

// NewFileSink creates a sink writing into dir. The directory is created on
// first use.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

// Put implements Sink.
func (s *FileSink) Put(ctx context.Context, obj Object) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("Put: create export dir: %w", err)
	}

	path := filepath.Join(s.dir, filepath.Base(obj.Filename))
	if err := os.WriteFile(path, []byte(obj.Content), 0o644); err != nil {
		return "", fmt.Errorf("Put: write %s: %w", path, err)
	}
	return path, nil
}

// Registry resolves sinks by kind. Only configured sinks are registered.
type Registry map[SinkKind]Sink

// Get returns the sink for kind.
func (r Registry) Get(kind SinkKind) (Sink, error) {
	s, ok := r[kind]
	if !ok {
		return nil, &domain.ValidationError{Field: "sink", Message: fmt.Sprintf("sink %q is not configured", kind)}
	}
	return s, nil
}
