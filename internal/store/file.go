package store

import (
	"context"
	"fmt"
	"os"
)

// FileSource reads documents from files on local disk
type FileSource struct {
	paths map[Document]string
}

// NewFileSource creates a source for the given document paths
func NewFileSource(playersPath, metricsPath string) *FileSource {
	return &FileSource{
		paths: map[Document]string{
			PlayersDocument: playersPath,
			MetricsDocument: metricsPath,
		},
	}
}

// ReadDocument reads the whole file backing doc
func (f *FileSource) ReadDocument(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, ok := f.paths[doc]
	if !ok {
		return nil, fmt.Errorf("unknown document %q", doc)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
