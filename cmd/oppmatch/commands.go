package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/poiesic/oppmatch"
	"github.com/poiesic/oppmatch/ai"
	"github.com/poiesic/oppmatch/core"
	"github.com/poiesic/oppmatch/ingestion"
	"github.com/poiesic/oppmatch/search"
	"github.com/poiesic/oppmatch/source"
	"github.com/urfave/cli/v2"
)

// openWorkspace opens the cache named by --cache with the configured
// embedding service. Configuration errors are reported before any work.
func (r *runner) openWorkspace(c *cli.Context) (*oppmatch.Workspace, error) {
	opts := []oppmatch.WorkspaceOption{
		oppmatch.WithStoreFormat(oppmatch.StoreFormat(c.String("cache-format"))),
		oppmatch.WithLogger(slog.Default()),
	}
	if r.provider != nil {
		opts = append(opts, oppmatch.WithProvider(r.provider))
	} else {
		aiConfig := ai.NewConfig(
			ai.WithEmbeddingHost(c.String("embedding-host")),
			ai.WithEmbeddingModel(c.String("embedding-model")),
			ai.WithToken(c.String("embedding-token")),
			ai.WithDimensions(c.Int("dimensions")),
		)
		if err := aiConfig.Validate(); err != nil {
			return nil, fmt.Errorf("invalid AI configuration: %w", err)
		}
		opts = append(opts, oppmatch.WithAIConfig(aiConfig))
	}

	ws, err := oppmatch.OpenWorkspace(c.Context, c.String("cache"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return ws, nil
}

func loadDocuments(c *cli.Context) ([]core.Document, error) {
	docs, _, err := source.LoadDocuments(c.String("opportunities"),
		source.WithCategories(c.StringSlice("category")...),
		source.WithLogger(slog.Default()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load opportunities: %w", err)
	}
	return docs, nil
}

func loadNormalizer(c *cli.Context) (*ingestion.Normalizer, error) {
	path := c.String("boilerplate")
	if path == "" {
		return ingestion.NewNormalizer(nil), nil
	}
	phrases, err := source.LoadBoilerplate(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load boilerplate: %w", err)
	}
	return ingestion.NewNormalizer(phrases), nil
}

func (r *runner) newPipeline(c *cli.Context, ws *oppmatch.Workspace, normalizer ingestion.TextNormalizer) (*ingestion.Pipeline, error) {
	return ws.NewPipeline(normalizer,
		ingestion.WithBatchSize(c.Int("batch-size")),
		ingestion.WithWorkers(c.Int("workers")),
		ingestion.WithMinTextLength(c.Int("min-length")),
		ingestion.WithRetry(c.Int("max-attempts"), c.Duration("retry-delay")),
		ingestion.WithNormalizedVectors(c.Bool("normalize-vectors")),
		ingestion.WithProgress(r.stderr),
		ingestion.WithLogger(slog.Default()),
	)
}

// prepareRun loads every input of an embed or reembed run before the cache
// is opened, so a missing file fails without side effects.
func (r *runner) prepareRun(c *cli.Context) ([]core.Document, *ingestion.Normalizer, *oppmatch.Workspace, error) {
	docs, err := loadDocuments(c)
	if err != nil {
		return nil, nil, nil, err
	}
	normalizer, err := loadNormalizer(c)
	if err != nil {
		return nil, nil, nil, err
	}
	ws, err := r.openWorkspace(c)
	if err != nil {
		return nil, nil, nil, err
	}
	return docs, normalizer, ws, nil
}

func (r *runner) embedCommand(c *cli.Context) error {
	ctx := c.Context

	var capabilities []core.Capability
	if path := c.String("capabilities"); path != "" {
		var err error
		if capabilities, err = source.LoadCapabilities(path); err != nil {
			return fmt.Errorf("failed to load capabilities: %w", err)
		}
	}

	docs, normalizer, ws, err := r.prepareRun(c)
	if err != nil {
		return err
	}
	defer ws.Close()

	pipeline, err := r.newPipeline(c, ws, normalizer)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	report, err := pipeline.EmbedMissing(ctx, docs, ws.Cache())
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}
	if err := ws.Save(ctx); err != nil {
		return fmt.Errorf("failed to save cache: %w", err)
	}
	fmt.Fprintf(r.stderr, "Embedded %d of %d documents (%d cached, %d too short); cache holds %d\n",
		report.Embedded, report.Documents, report.AlreadyCached, report.TooShort, ws.Cache().Len())

	output := c.String("filtered-output")
	if output == "" {
		return nil
	}

	var matches []core.MatchResult
	if len(capabilities) > 0 {
		matcher, err := ws.NewMatcher(search.WithLogger(slog.Default()))
		if err != nil {
			return err
		}
		matches, err = matcher.Match(ctx, capabilities, ws.RunCache(docs), c.Int("top-k"))
		if err != nil {
			return fmt.Errorf("capability matching failed: %w", err)
		}
	}
	return ws.WriteFilteredEmbeddings(ctx, output, docs, matches)
}

func (r *runner) reembedCommand(c *cli.Context) error {
	ctx := c.Context

	docs, normalizer, ws, err := r.prepareRun(c)
	if err != nil {
		return err
	}
	defer ws.Close()

	pipeline, err := r.newPipeline(c, ws, normalizer)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	report, err := pipeline.Reembed(ctx, docs, ws.Cache())
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	if err := ws.Save(ctx); err != nil {
		return fmt.Errorf("failed to save cache: %w", err)
	}
	fmt.Fprintf(r.stderr, "Recomputed %d documents (%d not cached)\n", report.Embedded, report.NotCached)
	return nil
}

func (r *runner) searchCommand(c *cli.Context) error {
	opts := search.QueryOptions{
		Threshold: c.Float64("threshold"),
		TopK:      c.Int("top-k"),
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	searchOpts := []search.Option{search.WithLogger(slog.Default())}
	if path := c.String("titles"); path != "" {
		titles, err := source.LoadTitles(path, source.WithLogger(slog.Default()))
		if err != nil {
			return fmt.Errorf("failed to load titles: %w", err)
		}
		searchOpts = append(searchOpts, search.WithLabeler(titles.Label))
	}

	ws, err := r.openWorkspace(c)
	if err != nil {
		return err
	}
	defer ws.Close()

	searcher, err := ws.NewSearcher(searchOpts...)
	if err != nil {
		return err
	}
	results, err := searcher.Query(c.Context, ws.Cache(), c.String("query"), opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	fmt.Fprintf(r.stderr, "Found %d matches >= threshold %v\n", len(results), opts.Threshold)

	return r.writeOutput(c.String("output"), func(w io.Writer) error {
		return source.WriteSearchResults(w, results)
	})
}

func (r *runner) matchCommand(c *cli.Context) error {
	capabilities, err := source.LoadCapabilities(c.String("capabilities"))
	if err != nil {
		return fmt.Errorf("failed to load capabilities: %w", err)
	}

	var docs []core.Document
	if c.String("opportunities") != "" {
		if docs, err = loadDocuments(c); err != nil {
			return err
		}
	}

	ws, err := r.openWorkspace(c)
	if err != nil {
		return err
	}
	defer ws.Close()

	cache := ws.Cache()
	if docs != nil {
		cache = ws.RunCache(docs)
	}

	matcher, err := ws.NewMatcher(search.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	matches, err := matcher.Match(c.Context, capabilities, cache, c.Int("top-k"))
	if err != nil {
		return fmt.Errorf("capability matching failed: %w", err)
	}

	return r.writeOutput(c.String("output"), func(w io.Writer) error {
		return source.WriteMatches(w, matches)
	})
}

func (r *runner) hierarchyCommand(c *cli.Context) error {
	return r.writeOutput(c.String("output"), func(w io.Writer) error {
		n, err := source.ExtractHierarchy(c.String("input"), w, source.WithLogger(slog.Default()))
		if err != nil {
			return err
		}
		fmt.Fprintf(r.stderr, "Extracted hierarchy for %d opportunities to %s\n", n, c.String("output"))
		return nil
	})
}

// writeOutput runs write against the file at path, or stdout when path is
// empty.
func (r *runner) writeOutput(path string, write func(w io.Writer) error) error {
	if path == "" {
		return write(r.stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
