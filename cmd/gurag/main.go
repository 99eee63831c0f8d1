// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/gurag"
	"github.com/poiesic/gurag/ai"
	"github.com/poiesic/gurag/cache"
	"github.com/poiesic/gurag/fallback"
	"github.com/poiesic/gurag/search"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
)

const defaultHost = "https://api.openai.com/v1"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "gurag",
		Usage: "Tiered retrieval over a semantic cache, a knowledge base and external sources",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"GURAG_LOG_LEVEL"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Answer a query",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags:     databaseFlags(),
			},
			{
				Name:   "ingest",
				Usage:  "Add a passage to the knowledge base",
				Action: ingestCommand,
				Flags: append(databaseFlags(),
					&cli.StringFlag{
						Name:     "content",
						Aliases:  []string{"c"},
						Usage:    "Passage text",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "source-type",
						Usage: "Source type (expert_insight, arxiv_paper, huggingface, manual)",
						Value: "manual",
					},
					&cli.StringFlag{
						Name:  "url",
						Usage: "Source URL",
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Source title",
					},
					&cli.StringFlag{
						Name:  "author",
						Usage: "Source author",
					},
					&cli.StringFlag{
						Name:  "metadata",
						Usage: "Metadata as a JSON object",
					},
				),
			},
			{
				Name:   "import",
				Usage:  "Ingest passages from a file, one JSON object or plain text passage per line",
				Action: importCommand,
				Flags: append(databaseFlags(),
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to the file to import",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "source-type",
						Usage: "Source type for plain text lines",
						Value: "manual",
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N passages",
						Value: 100,
					},
				),
			},
			{
				Name:   "status",
				Usage:  "Show store connectivity and cache statistics",
				Action: statusCommand,
				Flags:  databaseFlags(),
			},
			{
				Name:   "clear-cache",
				Usage:  "Delete every cached answer",
				Action: clearCacheCommand,
				Flags:  databaseFlags(),
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: append(databaseFlags(),
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "Listen address",
						Value:   ":8000",
						EnvVars: []string{"GURAG_ADDR"},
					},
					&cli.DurationFlag{
						Name:  "shutdown-timeout",
						Usage: "Time allowed for in-flight requests on shutdown",
						Value: 10 * time.Second,
					},
				),
			},
		},
	}
}

// databaseFlags returns the flags every command uses to open a deployment.
func databaseFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory",
			Value:   "./gurag_db",
			EnvVars: []string{"GURAG_DB"},
		},
		&cli.StringFlag{
			Name:    "postgres-dsn",
			Usage:   "PostgreSQL connection string; overrides --db when set",
			EnvVars: []string{"GURAG_POSTGRES_DSN", "DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			Value:   defaultHost,
			EnvVars: []string{"GURAG_EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   "text-embedding-3-small",
			EnvVars: []string{"GURAG_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "generation-host",
			Usage:   "Chat completion service host URL",
			Value:   defaultHost,
			EnvVars: []string{"GURAG_GENERATION_HOST"},
		},
		&cli.StringFlag{
			Name:    "generation-model",
			Usage:   "Chat model name",
			Value:   "gpt-4o-mini",
			EnvVars: []string{"GURAG_GENERATION_MODEL"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "API key for the embedding and chat services",
			EnvVars: []string{"GURAG_API_KEY", "OPENAI_API_KEY"},
		},
		&cli.IntFlag{
			Name:    "dimension",
			Usage:   "Embedding dimension",
			Value:   1536,
			EnvVars: []string{"GURAG_DIMENSION"},
		},
		&cli.Float64Flag{
			Name:    "cache-threshold",
			Usage:   "Minimum similarity for a semantic cache hit",
			Value:   cache.DefaultThreshold,
			EnvVars: []string{"GURAG_CACHE_THRESHOLD"},
		},
		&cli.Float64Flag{
			Name:    "min-similarity",
			Usage:   "Minimum similarity for a knowledge base match",
			Value:   search.DefaultMinSimilarity,
			EnvVars: []string{"GURAG_MIN_SIMILARITY"},
		},
		&cli.IntFlag{
			Name:    "max-results-per-source",
			Usage:   "Results taken from each external source",
			Value:   fallback.DefaultMaxResultsPerSource,
			EnvVars: []string{"GURAG_MAX_RESULTS_PER_SOURCE"},
		},
		&cli.BoolFlag{
			Name:  "no-fallback",
			Usage: "Disable external search",
		},
		&cli.IntFlag{
			Name:    "embedding-cache-size",
			Usage:   "Number of query embeddings to memoize (0 disables)",
			Value:   1024,
			EnvVars: []string{"GURAG_EMBEDDING_CACHE_SIZE"},
		},
		&cli.DurationFlag{
			Name:    "embedding-cache-ttl",
			Usage:   "Lifetime of memoized embeddings",
			Value:   10 * time.Minute,
			EnvVars: []string{"GURAG_EMBEDDING_CACHE_TTL"},
		},
		&cli.IntFlag{
			Name:  "pool-size",
			Usage: "Write-back worker pool size (0 uses half the CPUs)",
		},
	}
}

// aiConfigFromFlags builds the AI configuration from the command flags.
func aiConfigFromFlags(c *cli.Context) *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithGenerationHost(c.String("generation-host")),
		ai.WithGenerationModel(c.String("generation-model")),
		ai.WithAPIKey(c.String("api-key")),
		ai.WithDimension(c.Int("dimension")),
	)
}

// databaseOptions translates the command flags into database options.
func databaseOptions(c *cli.Context) []gurag.DatabaseOption {
	opts := []gurag.DatabaseOption{
		gurag.WithAIConfig(aiConfigFromFlags(c)),
		gurag.WithCacheThreshold(c.Float64("cache-threshold")),
		gurag.WithMinSimilarity(c.Float64("min-similarity")),
		gurag.WithMaxResultsPerSource(c.Int("max-results-per-source")),
		gurag.WithEmbeddingCache(c.Int("embedding-cache-size"), c.Duration("embedding-cache-ttl")),
		gurag.WithPoolSize(c.Int("pool-size")),
		gurag.WithLogger(slog.Default()),
	}
	if dsn := c.String("postgres-dsn"); dsn != "" {
		opts = append(opts, gurag.WithPostgres(dsn))
	}
	if c.Bool("no-fallback") {
		opts = append(opts, gurag.WithFallbackProviders())
	}
	return opts
}

// openDatabase opens the deployment described by the command flags.
func openDatabase(c *cli.Context, extra ...gurag.DatabaseOption) (*gurag.Database, error) {
	opts := append(databaseOptions(c), extra...)
	db, err := gurag.NewDatabase(c.String("db"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// newRegistry returns a registry carrying the Go runtime and process collectors.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
