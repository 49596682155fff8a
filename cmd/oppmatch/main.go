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
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/poiesic/oppmatch/ai"
	"github.com/urfave/cli/v2"
)

const envPrefix = "OPPMATCH_"

func envVar(name string) []string {
	return []string{envPrefix + name}
}

// runner carries what commands write to and, in tests, a provider that
// replaces the configured embedding service.
type runner struct {
	stdout   io.Writer
	stderr   io.Writer
	provider ai.Provider
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := newApp(&runner{stdout: os.Stdout, stderr: os.Stderr})
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(r *runner) *cli.App {
	return &cli.App{
		Name:      "oppmatch",
		Usage:     "Match contracting opportunities to capabilities with text embeddings",
		Writer:    r.stdout,
		ErrWriter: r.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: envVar("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load OPPMATCH_* settings from this file before running",
				Value: ".env",
			},
		},
		Before: func(c *cli.Context) error {
			if err := loadEnvFile(c); err != nil {
				return err
			}
			return setupLogger(c, r.stderr)
		},
		Commands: []*cli.Command{
			{
				Name:   "embed",
				Usage:  "Embed opportunities missing from the cache",
				Action: r.embedCommand,
				Flags: concat(cacheFlags(), embeddingFlags(), documentFlags(true), batchFlags(), []cli.Flag{
					&cli.StringFlag{
						Name:    "capabilities",
						Usage:   "Capabilities file whose best matches are added to the filtered output",
						EnvVars: envVar("CAPABILITIES"),
					},
					&cli.StringFlag{
						Name:  "filtered-output",
						Usage: "Write this run's embeddings (and capability points) to a JSON file",
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Matched documents per capability in the filtered output",
						Value: 1,
					},
				}),
			},
			{
				Name:   "reembed",
				Usage:  "Recompute cached embeddings after a model or cleaning change",
				Action: r.reembedCommand,
				Flags:  concat(cacheFlags(), embeddingFlags(), documentFlags(true), batchFlags()),
			},
			{
				Name:   "search",
				Usage:  "Rank cached opportunities against a free-text query",
				Action: r.searchCommand,
				Flags: concat(cacheFlags(), embeddingFlags(), []cli.Flag{
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "Query text",
						Required: true,
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum cosine similarity, in [-1, 1]",
						Value: 0.5,
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Maximum number of results (0 for no limit)",
					},
					&cli.StringFlag{
						Name:    "titles",
						Usage:   "Opportunities CSV used to label results with titles",
						EnvVars: envVar("OPPORTUNITIES"),
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write results CSV to this file instead of stdout",
					},
				}),
			},
			{
				Name:   "match",
				Usage:  "Find the best matching opportunities for each capability",
				Action: r.matchCommand,
				Flags: concat(cacheFlags(), embeddingFlags(), documentFlags(false), []cli.Flag{
					&cli.StringFlag{
						Name:     "capabilities",
						Usage:    "Newline-delimited capabilities file",
						EnvVars:  envVar("CAPABILITIES"),
						Required: true,
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Matched documents per capability",
						Value: 1,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write matches CSV to this file instead of stdout",
					},
				}),
			},
			{
				Name:   "hierarchy",
				Usage:  "Extract the agency hierarchy of each opportunity",
				Action: r.hierarchyCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Opportunities CSV",
						EnvVars:  envVar("OPPORTUNITIES"),
						Required: true,
					},
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "Hierarchy CSV to write",
						Required: true,
					},
				},
			},
		},
	}
}

func cacheFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "cache",
			Aliases:  []string{"c"},
			Usage:    "Embedding cache: a .json file or a BadgerDB directory",
			EnvVars:  envVar("CACHE"),
			Required: true,
		},
		&cli.StringFlag{
			Name:    "cache-format",
			Usage:   "Force the cache format (json, badger)",
			EnvVars: envVar("CACHE_FORMAT"),
		},
	}
}

func embeddingFlags() []cli.Flag {
	defaults := ai.DefaultConfig()
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			Value:   defaults.EmbeddingHost,
			EnvVars: envVar("EMBEDDING_HOST"),
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   defaults.EmbeddingModel,
			EnvVars: envVar("EMBEDDING_MODEL"),
		},
		&cli.StringFlag{
			Name:    "embedding-token",
			Usage:   "API token for the embedding service",
			EnvVars: envVar("EMBEDDING_TOKEN"),
		},
		&cli.IntFlag{
			Name:    "dimensions",
			Usage:   "Expected vector width (0 to accept what the model returns)",
			EnvVars: envVar("DIMENSIONS"),
		},
	}
}

func documentFlags(required bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "opportunities",
			Usage:    "Opportunities CSV",
			EnvVars:  envVar("OPPORTUNITIES"),
			Required: required,
		},
		&cli.StringFlag{
			Name:    "boilerplate",
			Usage:   "CSV of boilerplate phrases removed before embedding",
			EnvVars: envVar("BOILERPLATE"),
		},
		&cli.StringSliceFlag{
			Name:    "category",
			Usage:   "Keep only opportunities with this NAICS code (repeatable)",
			EnvVars: envVar("CATEGORIES"),
		},
	}
}

func batchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "Number of texts sent to the embedding service per request",
			Value: 16,
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Number of concurrent embedding requests",
			Value: 4,
		},
		&cli.IntFlag{
			Name:  "min-length",
			Usage: "Minimum cleaned text length for a document to be embedded",
			Value: 10,
		},
		&cli.IntFlag{
			Name:  "max-attempts",
			Usage: "Attempts per embedding request before the run fails",
			Value: 1,
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "Base delay for exponential backoff",
			Value: 1 * time.Second,
		},
		&cli.BoolFlag{
			Name:  "normalize-vectors",
			Usage: "Store unit-length vectors",
		},
	}
}

func concat(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// loadEnvFile loads the --env-file. A missing default file is not an error.
func loadEnvFile(c *cli.Context) error {
	path := c.String("env-file")
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !c.IsSet("env-file") {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func setupLogger(c *cli.Context, w io.Writer) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
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

	// Every line of one invocation carries the same run id.
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})).With("run", uuid.NewString())
	slog.SetDefault(logger)

	return nil
}
