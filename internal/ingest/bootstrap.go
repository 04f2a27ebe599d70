package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lotbot/internal/domain"
	"lotbot/internal/metrics"
)

// BootstrapConfig carries the collaborators Build wires into a Pipeline.
type BootstrapConfig struct {
	Sink          domain.RowSink
	Ledger        domain.DedupStore
	Resolver      domain.SectionResolver
	Authoritative string
	Timezone      string
	Logger        *slog.Logger
	Metrics       *metrics.Registry
}

// Build performs the startup sequence: validate the destination header,
// reload the dedup ledger, seed the category cache from existing rows.
// Any failure here is fatal; the process must not start half-wired.
func Build(ctx context.Context, cfg BootstrapConfig) (*Pipeline, error) {
	header, err := cfg.Sink.ReadHeaderMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("read sheet header: %w", err)
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	seen, err := cfg.Ledger.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dedup ledger: %w", err)
	}

	rows, err := cfg.Sink.ReadRowsForCache(ctx)
	if err != nil {
		return nil, fmt.Errorf("read rows for category cache: %w", err)
	}
	cache := NewCategoryCache()
	cache.Seed(rows, cfg.Authoritative)

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	cfg.Logger.Info("pipeline initialized",
		"processed", len(seen),
		"cache_size", cache.Len(),
		"timezone", cfg.Timezone,
	)

	return NewPipeline(PipelineConfig{
		Sink:          cfg.Sink,
		Ledger:        cfg.Ledger,
		Resolver:      cfg.Resolver,
		Cache:         cache,
		Header:        header,
		Seen:          seen,
		Authoritative: cfg.Authoritative,
		Location:      location,
		Logger:        cfg.Logger,
		Metrics:       cfg.Metrics,
	}), nil
}

func validateHeader(header map[string]int) error {
	var missing []string
	for _, name := range domain.RequiredColumns {
		if _, ok := header[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("sheet is missing required columns: %s", strings.Join(missing, "; "))
	}
	return nil
}
