// Package backfill fills missing fields of stored records with the
// defaults declared in a generated validation schema.
package backfill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/schemafill/internal/apperr"
	"github.com/starford/schemafill/internal/generator"
	"github.com/starford/schemafill/internal/models"
	"github.com/starford/schemafill/internal/naming"
)

// Status is the outcome of one BackfillCollection call.
type Status string

const (
	StatusSkipped   Status = "skipped"
	StatusNotFound  Status = "not_found"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Result reports what a BackfillCollection call did.
type Result struct {
	Model      string   `json:"model"`
	Collection string   `json:"collection,omitempty"`
	Fields     []string `json:"fields"`
	Status     Status   `json:"status"`
	Scanned    int64    `json:"scanned"`
	Modified   int64    `json:"modified"`
	DryRun     bool     `json:"dry_run,omitempty"`
}

// Engine applies default-value backfills against a Store.
type Engine struct {
	store         Store
	logger        *slog.Logger
	batchSize     int
	dryRun        bool
	fillGenerated bool
	now           func() time.Time
	newID         func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithBatchSize groups updates into bulk writes of n records. Values below
// 2 apply every update on its own.
func WithBatchSize(n int) Option {
	return func(e *Engine) { e.batchSize = n }
}

// WithDryRun counts records that would change without writing.
func WithDryRun(dry bool) Option {
	return func(e *Engine) { e.dryRun = dry }
}

// WithFillGenerated also fills fields whose default is now() or uuid(),
// synthesizing the value at backfill time.
func WithFillGenerated(fill bool) Option {
	return func(e *Engine) { e.fillGenerated = fill }
}

// WithClock overrides the time source used for now() defaults.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine on top of store.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		logger:    slog.Default(),
		batchSize: 1,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// target is one field to fill and the value source for it.
type target struct {
	field string
	value func() any
}

// targets lists the fields to fill in property order.
func (e *Engine) targets(m *models.Model, vs *generator.ValidationSchema) []target {
	var out []target
	for _, d := range vs.Defaults() {
		v := d.Value
		out = append(out, target{field: d.Field, value: func() any { return v }})
	}
	if !e.fillGenerated {
		return out
	}

	for _, name := range vs.PropertyNames() {
		f := m.Field(name)
		if f == nil || f.HasDefault() || f.DefaultFunc == "" {
			continue
		}
		switch f.DefaultFunc {
		case "now":
			out = append(out, target{field: name, value: func() any { return e.now() }})
		case "uuid":
			out = append(out, target{field: name, value: func() any { return e.newID() }})
		default:
			e.logger.Debug("backfill: generated default not supported",
				slog.String("model", m.Name),
				slog.String("field", name),
				slog.String("func", f.DefaultFunc))
		}
	}
	return out
}

// BackfillCollection resolves the collection of m and sets every defaulted
// field that is absent or null on each stored record. Existing values are
// never overwritten. The store connection is released on every exit path.
func (e *Engine) BackfillCollection(ctx context.Context, m *models.Model, vs *generator.ValidationSchema) (res *Result, err error) {
	res = &Result{Model: m.Name, Fields: []string{}, DryRun: e.dryRun}

	targets := e.targets(m, vs)
	for _, t := range targets {
		res.Fields = append(res.Fields, t.field)
	}
	if len(targets) == 0 {
		res.Status = StatusSkipped
		e.logger.Info("backfill: no defaults to apply", slog.String("model", m.Name))
		return res, nil
	}

	conn, err := e.store.Connect(ctx)
	if err != nil {
		res.Status = StatusFailed
		return res, fmt.Errorf("backfill %s: connect: %w", m.Name, err)
	}
	defer func() {
		if cerr := conn.Close(context.WithoutCancel(ctx)); cerr != nil {
			e.logger.Warn("backfill: close failed", slog.String("model", m.Name), slog.String("error", cerr.Error()))
			if err == nil {
				err = fmt.Errorf("backfill %s: close: %w", m.Name, cerr)
			}
		}
	}()

	coll, err := e.resolveCollection(ctx, conn, m)
	if err != nil {
		if errors.Is(err, apperr.ErrCollectionNotFound) {
			res.Status = StatusNotFound
			e.logger.Warn("backfill: collection not found",
				slog.String("model", m.Name),
				slog.Any("candidates", naming.Candidates(m)))
			return res, nil
		}
		res.Status = StatusFailed
		return res, fmt.Errorf("backfill %s: resolve collection: %w", m.Name, err)
	}
	res.Collection = coll

	e.logger.Info("backfill: streaming",
		slog.String("model", m.Name),
		slog.String("collection", coll),
		slog.Any("fields", res.Fields),
		slog.Bool("dry_run", e.dryRun))

	if err := e.stream(ctx, conn, coll, targets, res); err != nil {
		res.Status = StatusFailed
		return res, fmt.Errorf("backfill %s: collection %s: %w", m.Name, coll, err)
	}

	res.Status = StatusCompleted
	e.logger.Info("backfill: done",
		slog.String("model", m.Name),
		slog.String("collection", coll),
		slog.Int64("scanned", res.Scanned),
		slog.Int64("modified", res.Modified))
	return res, nil
}

// resolveCollection returns the first candidate name whose index metadata
// can be read.
func (e *Engine) resolveCollection(ctx context.Context, conn Conn, m *models.Model) (string, error) {
	for _, name := range naming.Candidates(m) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := conn.Probe(ctx, name); err != nil {
			e.logger.Debug("backfill: candidate rejected",
				slog.String("model", m.Name),
				slog.String("collection", name),
				slog.String("error", err.Error()))
			continue
		}
		return name, nil
	}
	return "", apperr.ErrCollectionNotFound
}

// stream walks every record and applies the gap-filling updates, one at a
// time or in batches.
func (e *Engine) stream(ctx context.Context, conn Conn, coll string, targets []target, res *Result) error {
	var pending []Update

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		n, err := conn.Apply(ctx, coll, pending)
		if err != nil {
			return fmt.Errorf("apply: %w", err)
		}
		res.Modified += n
		pending = nil
		return nil
	}

	err := conn.Scan(ctx, coll, func(doc Document) error {
		res.Scanned++
		set := gaps(doc, targets)
		if len(set) == 0 {
			return nil
		}
		if e.dryRun {
			res.Modified++
			return nil
		}
		pending = append(pending, Update{ID: doc[IDField], Set: set})
		if len(pending) >= e.batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	return flush()
}

// gaps returns the fields of doc that are absent or null, mapped to their
// fill values.
func gaps(doc Document, targets []target) map[string]any {
	var set map[string]any
	for _, t := range targets {
		if v, ok := doc[t.field]; ok && v != nil {
			continue
		}
		if set == nil {
			set = make(map[string]any, len(targets))
		}
		set[t.field] = t.value()
	}
	return set
}
