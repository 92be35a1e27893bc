package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Microgramix/Motoristas.ranking/pkg/types"
	"github.com/Microgramix/Motoristas.ranking/server/internal/config"
)

// Source is implemented by every team document backend.
type Source interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	Fetch(ctx context.Context) ([]types.TeamDocument, error)
}

// New returns the Source selected by cfg.Type.
func New(cfg config.SourceConfig) (Source, error) {
	switch strings.ToLower(cfg.Type) {
	case "file":
		return &File{path: cfg.Path}, nil
	case "http":
		client, err := buildHTTPClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("source: build http client: %w", err)
		}
		return &HTTP{endpoint: cfg.Endpoint, client: client}, nil
	case "sqlite":
		s, err := OpenSQLite(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("source: unsupported type %q", cfg.Type)
	}
}

// wire is the decoded form of the shared document shape.
type wire map[string]map[string]map[string]any

func (w wire) documents() []types.TeamDocument {
	ids := make([]string, 0, len(w))
	for id := range w {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	docs := make([]types.TeamDocument, 0, len(ids))
	for _, id := range ids {
		days := w[id]
		if days == nil {
			days = map[string]map[string]any{}
		}
		docs = append(docs, types.TeamDocument{ID: id, Days: days})
	}
	return docs
}

// DecodeJSON parses the shared shape from r. Numbers stay json.Number so no
// precision is lost before validation.
func DecodeJSON(r io.Reader) ([]types.TeamDocument, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var w wire
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return w.documents(), nil
}

// DecodeYAML parses the shared shape from r.
func DecodeYAML(r io.Reader) ([]types.TeamDocument, error) {
	var w wire
	if err := yaml.NewDecoder(r).Decode(&w); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return w.documents(), nil
}

// EncodeJSON writes docs in the shared shape.
func EncodeJSON(w io.Writer, docs []types.TeamDocument) error {
	out := make(wire, len(docs))
	for _, d := range docs {
		out[d.ID] = d.Days
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
