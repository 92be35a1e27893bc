package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Microgramix/Motoristas.ranking/pkg/types"
)

// File reads team documents from a JSON or YAML file on every fetch. The
// format follows the extension: .yaml and .yml are YAML, anything else JSON.
type File struct {
	path string
}

// NewFile returns a File source for path.
func NewFile(path string) *File { return &File{path: path} }

// Name implements Source.
func (f *File) Name() string { return "file" }

// Fetch implements Source.
func (f *File) Fetch(ctx context.Context) ([]types.TeamDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("source file: %w", err)
	}
	defer fh.Close()

	var docs []types.TeamDocument
	switch strings.ToLower(filepath.Ext(f.path)) {
	case ".yaml", ".yml":
		docs, err = DecodeYAML(fh)
	default:
		docs, err = DecodeJSON(fh)
	}
	if err != nil {
		return nil, fmt.Errorf("source file %q: %w", f.path, err)
	}
	return docs, nil
}
