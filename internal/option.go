package internal

import (
	"io"
	"log/slog"

	"github.com/starford/schemafill/internal/backfill"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config       *Config
	logger       *slog.Logger
	version      string
	out          io.Writer
	logOut       io.Writer
	store        backfill.Store
	models       []string
	watch        bool
	historyLimit int
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported by the servers.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithOutput sets where console reports are printed.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.out = w
	}
}

// WithLogOutput sets where log records are written.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOut = w
	}
}

// WithStore replaces the MongoDB store built from the configuration.
func WithStore(s backfill.Store) Option {
	return func(a *application) {
		a.store = s
	}
}

// WithModels restricts convert and backfill to the named models.
func WithModels(names ...string) Option {
	return func(a *application) {
		a.models = names
	}
}

// WithWatch keeps convert running and regenerates on source changes.
func WithWatch(watch bool) Option {
	return func(a *application) {
		a.watch = watch
	}
}

// WithHistoryLimit sets how many journaled runs history prints.
func WithHistoryLimit(n int) Option {
	return func(a *application) {
		a.historyLimit = n
	}
}
