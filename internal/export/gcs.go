package export

import (
	"context"
	"fmt"
	"path"

	"github.com/dvloznov/financr/internal/gcs"
)

const textContentType = "text/plain; charset=utf-8"

// GCSSink stores reports under exports/<user>/<filename> in a bucket.
type GCSSink struct {
	storage gcs.StorageService
	bucket  string
}

// NewGCSSink creates a sink writing to bucket.
func NewGCSSink(storage gcs.StorageService, bucket string) *GCSSink {
	return &GCSSink{storage: storage, bucket: bucket}
}

// Put implements Sink.
func (s *GCSSink) Put(ctx context.Context, obj Object) (string, error) {
	object := path.Join("exports", obj.UserID, obj.Filename)
	if err := s.storage.Upload(ctx, s.bucket, object, []byte(obj.Content), textContentType); err != nil {
		return "", fmt.Errorf("Put: %w", err)
	}
	return gcs.URI(s.bucket, object), nil
}
