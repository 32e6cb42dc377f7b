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

	"github.com/joho/godotenv"
	"github.com/poiesic/fundlens"
	"github.com/poiesic/fundlens/ai"
	"github.com/poiesic/fundlens/tables"
	"github.com/urfave/cli/v2"
)

func main() {
	// Environment from .env must be in place before flags read EnvVars.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// newApp builds the CLI. extra options are applied to every opened
// database after those derived from flags.
func newApp(extra ...fundlens.DatabaseOption) *cli.App {
	cmd := &commands{extra: extra}

	return &cli.App{
		Name:  "fundlens",
		Usage: "Fund report ingestion, metrics and question answering",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"FUNDLENS_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:     "db",
				Aliases:  []string{"d"},
				Usage:    "Path to BadgerDB database directory",
				EnvVars:  []string{"FUNDLENS_DB"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "keywords",
				Usage:   "YAML file overriding the table classification keywords",
				EnvVars: []string{"FUNDLENS_KEYWORDS"},
			},
			&cli.IntFlag{
				Name:    "pool-size",
				Usage:   "Maximum concurrent embedding, search and LLM calls",
				EnvVars: []string{"FUNDLENS_POOL_SIZE"},
			},
			&cli.StringFlag{
				Name:    "openai-api-key",
				Usage:   "OpenAI API key; enables remote embeddings",
				EnvVars: []string{"OPENAI_API_KEY"},
			},
			&cli.StringFlag{
				Name:    "openai-base-url",
				Usage:   "OpenAI-compatible endpoint override",
				EnvVars: []string{"OPENAI_BASE_URL"},
			},
			&cli.StringFlag{
				Name:    "openai-embedding-model",
				Usage:   "Remote embedding model",
				Value:   "text-embedding-3-small",
				EnvVars: []string{"OPENAI_EMBEDDING_MODEL"},
			},
			&cli.IntFlag{
				Name:    "openai-embedding-dimensions",
				Usage:   "Vector size of the remote embedding model",
				Value:   1536,
				EnvVars: []string{"OPENAI_EMBEDDING_DIMENSIONS"},
			},
			&cli.StringFlag{
				Name:    "openai-model",
				Usage:   "OpenAI chat model",
				Value:   "gpt-4o-mini",
				EnvVars: []string{"OPENAI_MODEL"},
			},
			&cli.StringFlag{
				Name:    "ollama-host",
				Usage:   "Ollama server URL",
				Value:   "http://localhost:11434",
				EnvVars: []string{"OLLAMA_HOST"},
			},
			&cli.StringFlag{
				Name:    "local-embedding-model",
				Usage:   "Local embedding model",
				Value:   "all-minilm",
				EnvVars: []string{"LOCAL_EMBEDDING_MODEL"},
			},
			&cli.IntFlag{
				Name:    "local-embedding-dimensions",
				Usage:   "Vector size of the local embedding model",
				Value:   384,
				EnvVars: []string{"LOCAL_EMBEDDING_DIMENSIONS"},
			},
			&cli.StringFlag{
				Name:    "ollama-model",
				Usage:   "Ollama chat model",
				Value:   "llama3.2",
				EnvVars: []string{"OLLAMA_MODEL"},
			},
			&cli.StringFlag{
				Name:    "llm-provider",
				Usage:   "Answer generation provider (groq, openai, ollama)",
				Value:   ai.ProviderGroq,
				EnvVars: []string{"LLM_PROVIDER"},
			},
			&cli.StringFlag{
				Name:    "groq-api-key",
				Usage:   "Groq API key",
				EnvVars: []string{"GROQ_API_KEY"},
			},
			&cli.StringFlag{
				Name:    "groq-model",
				Usage:   "Groq chat model",
				Value:   "llama-3.1-8b-instant",
				EnvVars: []string{"GROQ_MODEL"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Extract, store and index a fund report",
				ArgsUsage: "[report file]",
				Action:    cmd.ingest,
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:    "fund",
						Aliases: []string{"f"},
						Usage:   "Fund the report belongs to (required unless --document)",
					},
					&cli.StringFlag{
						Name:  "manifest",
						Usage: "JSON manifest of pre-extracted pages",
					},
					&cli.StringFlag{
						Name:    "extract-url",
						Usage:   "Base URL of the extraction service",
						EnvVars: []string{"FUNDLENS_EXTRACT_URL"},
					},
					&cli.Float64Flag{
						Name:  "rate-limit",
						Usage: "Extraction service requests per second (0 disables)",
						Value: 10,
					},
					&cli.Uint64Flag{
						Name:  "document",
						Usage: "Re-ingest this existing document instead of creating one",
					},
					&cli.IntFlag{
						Name:  "jobs",
						Usage: "Documents processed concurrently",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Maximum characters per text chunk",
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Characters shared by consecutive chunks",
						Value: -1,
					},
				},
			},
			{
				Name:      "status",
				Usage:     "Show a document's processing status",
				ArgsUsage: "<document id>",
				Action:    cmd.status,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print JSON"},
				},
			},
			{
				Name:   "documents",
				Usage:  "List documents",
				Action: cmd.documents,
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:    "fund",
						Aliases: []string{"f"},
						Usage:   "Only documents of this fund",
					},
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a document with its transactions and text",
				ArgsUsage: "<document id>",
				Action:    cmd.delete,
			},
			{
				Name:      "search",
				Usage:     "Find report text similar to a query",
				ArgsUsage: "<text>",
				Action:    cmd.search,
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:    "fund",
						Aliases: []string{"f"},
						Usage:   "Only text of this fund",
					},
					&cli.IntFlag{
						Name:    "k",
						Aliases: []string{"n"},
						Usage:   "Number of results",
						Value:   5,
					},
				},
			},
			{
				Name:      "query",
				Usage:     "Answer a question about fund performance",
				ArgsUsage: "<question>",
				Action:    cmd.query,
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:    "fund",
						Aliases: []string{"f"},
						Usage:   "Fund the question is about",
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Chunks retrieved as context",
						Value: 5,
					},
					&cli.BoolFlag{Name: "json", Usage: "Print JSON"},
				},
			},
			{
				Name:   "metrics",
				Usage:  "Calculate a fund's performance metrics",
				Action: cmd.metrics,
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:     "fund",
						Aliases:  []string{"f"},
						Usage:    "Fund to calculate",
						Required: true,
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Re-embed every stored chunk with the configured embedding provider",
				Action: cmd.reembed,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per embedding request",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}
}

// aiConfig builds the provider configuration from global flags.
func aiConfig(c *cli.Context) *ai.Config {
	return ai.NewConfig(
		ai.WithOpenAIAPIKey(c.String("openai-api-key")),
		ai.WithOpenAIBaseURL(c.String("openai-base-url")),
		ai.WithOpenAIEmbeddingModel(c.String("openai-embedding-model"), c.Int("openai-embedding-dimensions")),
		ai.WithOpenAIModel(c.String("openai-model")),
		ai.WithOllamaHost(c.String("ollama-host")),
		ai.WithLocalEmbeddingModel(c.String("local-embedding-model"), c.Int("local-embedding-dimensions")),
		ai.WithOllamaModel(c.String("ollama-model")),
		ai.WithLLMProvider(c.String("llm-provider")),
		ai.WithGroq(c.String("groq-api-key"), c.String("groq-model")),
	)
}

// databaseOptions derives the options shared by every command.
func databaseOptions(c *cli.Context) ([]fundlens.DatabaseOption, error) {
	opts := []fundlens.DatabaseOption{
		fundlens.WithAIConfig(aiConfig(c)),
		fundlens.WithLogger(slog.Default()),
	}
	if size := c.Int("pool-size"); size > 0 {
		opts = append(opts, fundlens.WithPoolSize(size))
	}
	if path := c.String("keywords"); path != "" {
		keywords, err := tables.LoadKeywordsFile(path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, fundlens.WithKeywords(keywords))
	}
	return opts, nil
}

func setupLogger(c *cli.Context) error {
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
