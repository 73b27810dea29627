// Package schemaservice loads schema sources, keeps the parsed catalog and
// derives validation schemas from it.
package schemaservice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/starford/schemafill/internal/apperr"
	"github.com/starford/schemafill/internal/checksum"
	"github.com/starford/schemafill/internal/generator"
	"github.com/starford/schemafill/internal/models"
	"github.com/starford/schemafill/internal/naming"
	"github.com/starford/schemafill/internal/parser"
	"github.com/starford/schemafill/internal/storage"
)

// ModelSummary is a lightweight item in a model list response.
type ModelSummary struct {
	Name       string   `json:"name"`
	MapName    string   `json:"map_name,omitempty"`
	Fields     int      `json:"fields"`
	Required   []string `json:"required"`
	Defaults   []string `json:"defaults"`
	Collection []string `json:"collection_candidates,omitempty"`
}

// WriteResult lists the output documents touched by WriteSchemas.
type WriteResult struct {
	Written   []string `json:"written"`
	Unchanged []string `json:"unchanged"`
}

// Service coordinates schema sources, parsing and generation. It is safe
// for concurrent use; Load swaps the cached schema atomically.
type Service struct {
	src    storage.Provider
	opts   parser.Options
	logger *slog.Logger

	mu       sync.RWMutex
	schema   *models.Schema
	sources  []models.SourceMetadata
	loadedAt time.Time
}

// NewService creates a schema service reading from src.
func NewService(src storage.Provider, opts parser.Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{src: src, opts: opts, logger: logger}
}

// Load reads every schema source in path order, concatenates them and
// parses the result. The parsed schema replaces the cached one only when
// it declares at least one model or enum.
func (s *Service) Load(ctx context.Context) (*models.Schema, error) {
	sources, err := s.src.List("")
	if err != nil {
		return nil, fmt.Errorf("schemaservice: list sources: %w", err)
	}
	if len(sources) == 0 {
		return nil, apperr.ErrNoSchema
	}

	var buf bytes.Buffer
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := s.src.Read(src.Path)
		if err != nil {
			return nil, fmt.Errorf("schemaservice: read %s: %w", src.Path, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}

	schema := parser.ParseWith(buf.String(), s.opts)
	if schema.Empty() {
		return nil, fmt.Errorf("schemaservice: no model or enum blocks in %d source(s): %w", len(sources), apperr.ErrNoSchema)
	}

	s.mu.Lock()
	s.schema = schema
	s.sources = sources
	s.loadedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("schema loaded",
		slog.Int("sources", len(sources)),
		slog.Int("models", len(schema.Models)),
		slog.Int("enums", len(schema.Enums)))
	return schema, nil
}

// Schema returns the cached schema or ErrNoSchema before the first
// successful Load.
func (s *Service) Schema() (*models.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.schema == nil {
		return nil, apperr.ErrNoSchema
	}
	return s.schema, nil
}

// Sources returns the sources of the cached schema.
func (s *Service) Sources() []models.SourceMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.SourceMetadata(nil), s.sources...)
}

// LoadedAt returns when the cached schema was parsed.
func (s *Service) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// ResolveModels returns the models named in names, in schema order. An
// empty filter selects every model. Unknown names yield ErrNotFound.
func (s *Service) ResolveModels(names []string) ([]*models.Model, error) {
	schema, err := s.Schema()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return schema.Models, nil
	}

	want := make(map[string]bool, len(names))
	var missing []string
	for _, n := range names {
		if !schema.IsModel(n) {
			missing = append(missing, n)
			continue
		}
		want[n] = true
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("schemaservice: unknown model(s) %v: %w", missing, apperr.ErrNotFound)
	}

	out := make([]*models.Model, 0, len(want))
	for _, m := range schema.Models {
		if want[m.Name] {
			out = append(out, m)
		}
	}
	return out, nil
}

// Model returns the named model.
func (s *Service) Model(name string) (*models.Model, error) {
	schema, err := s.Schema()
	if err != nil {
		return nil, err
	}
	m := schema.Model(name)
	if m == nil {
		return nil, fmt.Errorf("schemaservice: model %q: %w", name, apperr.ErrNotFound)
	}
	return m, nil
}

// ValidationSchema generates the validation schema of the named model.
func (s *Service) ValidationSchema(name string) (*generator.ValidationSchema, error) {
	schema, err := s.Schema()
	if err != nil {
		return nil, err
	}
	m := schema.Model(name)
	if m == nil {
		return nil, fmt.Errorf("schemaservice: model %q: %w", name, apperr.ErrNotFound)
	}
	return generator.Generate(schema, m), nil
}

// Summaries returns one summary per model in declaration order.
func (s *Service) Summaries() ([]ModelSummary, error) {
	schema, err := s.Schema()
	if err != nil {
		return nil, err
	}
	out := make([]ModelSummary, 0, len(schema.Models))
	for _, m := range schema.Models {
		vs := generator.Generate(schema, m)
		defaults := make([]string, 0)
		for _, d := range vs.Defaults() {
			defaults = append(defaults, d.Field)
		}
		out = append(out, ModelSummary{
			Name:       m.Name,
			MapName:    m.MapName,
			Fields:     len(m.Fields),
			Required:   vs.Required,
			Defaults:   defaults,
			Collection: naming.Candidates(m),
		})
	}
	return out, nil
}

// Enums returns every declared enum.
func (s *Service) Enums() ([]*models.Enum, error) {
	schema, err := s.Schema()
	if err != nil {
		return nil, err
	}
	if schema.Enums == nil {
		return []*models.Enum{}, nil
	}
	return schema.Enums, nil
}

// OutputName returns the file name of the validation document of a model.
func OutputName(model string) string {
	return model + ".json"
}

// WriteSchemas renders the validation schema of every selected model into
// out. Documents whose content is unchanged are not rewritten.
func (s *Service) WriteSchemas(ctx context.Context, out storage.Provider, names []string) (*WriteResult, error) {
	schema, err := s.Schema()
	if err != nil {
		return nil, err
	}
	selected, err := s.ResolveModels(names)
	if err != nil {
		return nil, err
	}

	res := &WriteResult{Written: []string{}, Unchanged: []string{}}
	for _, m := range selected {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		data, err := generator.Generate(schema, m).MarshalIndent()
		if err != nil {
			return res, fmt.Errorf("schemaservice: encode %s: %w", m.Name, err)
		}
		name := OutputName(m.Name)

		existing, err := out.Read(name)
		switch {
		case err == nil && checksum.Same(existing, data):
			res.Unchanged = append(res.Unchanged, name)
			continue
		case err != nil && !errors.Is(err, os.ErrNotExist):
			return res, fmt.Errorf("schemaservice: read %s: %w", name, err)
		}

		if err := out.Write(name, data); err != nil {
			return res, fmt.Errorf("schemaservice: write %s: %w", name, err)
		}
		res.Written = append(res.Written, name)
		s.logger.Debug("validation schema written", slog.String("model", m.Name), slog.String("file", name))
	}
	return res, nil
}
