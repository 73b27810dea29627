package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/schemafill/internal"
	pkgconfig "github.com/starford/schemafill/pkg/config"
)

var version = "dev"

// loadConfig reads the optional config file and applies flag overrides.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("log-level") {
		if err := cfg.App.LogLevel.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
			return nil, fmt.Errorf("log-level: %w", err)
		}
	}
	setString(cmd, "log-format", &cfg.App.LogFormat)
	setString(cmd, "schema", &cfg.Schema.Path)
	setString(cmd, "output", &cfg.Schema.Output)
	setBool(cmd, "strict-optional", &cfg.Schema.StrictOptional)
	setString(cmd, "uri", &cfg.Mongo.URI)
	setString(cmd, "database", &cfg.Mongo.Database)
	setBool(cmd, "dry-run", &cfg.Backfill.DryRun)
	setBool(cmd, "fill-generated", &cfg.Backfill.FillGenerated)
	setString(cmd, "journal", &cfg.Journal.Path)
	if cmd.IsSet("batch-size") {
		cfg.Backfill.BatchSize = int(cmd.Int("batch-size"))
	}
	if cmd.IsSet("port") {
		cfg.App.HTTP.Port = int(cmd.Int("port"))
	}
	return cfg, nil
}

func setString(cmd *cli.Command, name string, dst *string) {
	if cmd.IsSet(name) {
		*dst = cmd.String(name)
	}
}

func setBool(cmd *cli.Command, name string, dst *bool) {
	if cmd.IsSet(name) {
		*dst = cmd.Bool(name)
	}
}

type runFunc func(context.Context, ...internal.Option) error

// action adapts an internal.Run* function into a command action.
func action(run runFunc, extra func(*cli.Command) []internal.Option) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithVersion(version),
		}
		if extra != nil {
			opts = append(opts, extra(cmd)...)
		}
		if err := run(ctx, opts...); err != nil {
			return fmt.Errorf("%s: %w", cmd.Name, err)
		}
		return nil
	}
}

func modelFilter(cmd *cli.Command) []internal.Option {
	return []internal.Option{internal.WithModels(cmd.StringSlice("model")...)}
}

var (
	schemaFlag = &cli.StringFlag{
		Name:    "schema",
		Aliases: []string{"s"},
		Usage:   "Schema file or directory of .prisma files",
		Sources: cli.EnvVars("SCHEMAFILL_SCHEMA"),
	}
	strictOptionalFlag = &cli.BoolFlag{
		Name:  "strict-optional",
		Usage: "Only treat ? directly after the type as the optional marker",
	}
	outputFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Directory for generated <Model>.json documents",
		Sources: cli.EnvVars("SCHEMAFILL_OUTPUT"),
	}
	modelFlag = &cli.StringSliceFlag{
		Name:    "model",
		Aliases: []string{"m"},
		Usage:   "Restrict to the named model (repeatable)",
	}
	mongoFlags = []cli.Flag{
		&cli.StringFlag{
			Name:    "uri",
			Usage:   "MongoDB connection string",
			Sources: cli.EnvVars("SCHEMAFILL_MONGO_URI", "DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "database",
			Aliases: []string{"d"},
			Usage:   "Database name (defaults to the connection string path)",
			Sources: cli.EnvVars("SCHEMAFILL_DATABASE"),
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Count records that would change without writing",
		},
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "Apply updates in bulk batches of this size",
		},
		&cli.BoolFlag{
			Name:  "fill-generated",
			Usage: "Also fill fields defaulting to now() or uuid()",
		},
		&cli.StringFlag{
			Name:    "journal",
			Usage:   "SQLite file recording backfill runs",
			Sources: cli.EnvVars("SCHEMAFILL_JOURNAL"),
		},
	}
)

func flags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func main() {
	cmd := &cli.Command{
		Name:    "schemafill",
		Usage:   "Generate validation schemas from Prisma models and backfill defaults into MongoDB",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				Sources: cli.EnvVars("SCHEMAFILL_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "text or json",
				Sources: cli.EnvVars("SCHEMAFILL_LOG_FORMAT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "convert",
				Usage: "Write one validation schema document per model",
				Flags: flags([]cli.Flag{schemaFlag, outputFlag, strictOptionalFlag, modelFlag,
					&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "Regenerate when schema sources change"},
				}),
				Action: action(internal.RunConvert, func(cmd *cli.Command) []internal.Option {
					return append(modelFilter(cmd), internal.WithWatch(cmd.Bool("watch")))
				}),
			},
			{
				Name:   "backfill",
				Usage:  "Set missing defaulted fields on stored records",
				Flags:  flags([]cli.Flag{schemaFlag, strictOptionalFlag, modelFlag}, mongoFlags),
				Action: action(internal.RunBackfill, modelFilter),
			},
			{
				Name:   "sync",
				Usage:  "Run convert, then backfill",
				Flags:  flags([]cli.Flag{schemaFlag, outputFlag, strictOptionalFlag, modelFlag}, mongoFlags),
				Action: action(internal.RunSync, modelFilter),
			},
			{
				Name:  "serve",
				Usage: "Serve a read-only HTTP browser of models and validation schemas",
				Flags: []cli.Flag{schemaFlag, strictOptionalFlag,
					&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "HTTP port", Sources: cli.EnvVars("PORT")},
				},
				Action: action(internal.RunServe, nil),
			},
			{
				Name:   "mcp",
				Usage:  "Serve the schema catalog to MCP clients over stdio",
				Flags:  []cli.Flag{schemaFlag, strictOptionalFlag},
				Action: action(internal.RunMCP, nil),
			},
			{
				Name:  "history",
				Usage: "List journaled backfill runs",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "journal", Usage: "SQLite journal file", Sources: cli.EnvVars("SCHEMAFILL_JOURNAL")},
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "Number of runs to show"},
				},
				Action: action(internal.RunHistory, func(cmd *cli.Command) []internal.Option {
					return []internal.Option{internal.WithHistoryLimit(int(cmd.Int("limit")))}
				}),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
