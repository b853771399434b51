// Package ingestion loads DATANORM sources into a catalog store
package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"datanorm-pricing/decision/catalog"
	"datanorm-pricing/decision/datanorm"
	apperrors "datanorm-pricing/pkg/errors"
)

// Loader feeds parsed records into a catalog writer
type Loader struct {
	store  catalog.Writer
	logger zerolog.Logger
}

// NewLoader creates a loader writing into store
func NewLoader(store catalog.Writer) *Loader {
	return &Loader{store: store, logger: zerolog.Nop()}
}

// WithLogger sets the loader logger
func (l *Loader) WithLogger(logger zerolog.Logger) *Loader {
	l.logger = logger
	return l
}

// LoadResult tracks the result of one load
type LoadResult struct {
	ID         uuid.UUID     `json:"id"`
	Source     string        `json:"source"`
	Lines      int           `json:"lines"`
	Articles   int           `json:"articles"`
	PriceSteps int           `json:"price_steps"`
	Ignored    int           `json:"ignored"`
	Duration   time.Duration `json:"duration"`
}

// Load consumes every line of r. The first malformed A or Z record aborts
// the load and the store must then be discarded.
func (l *Loader) Load(ctx context.Context, r *datanorm.Reader, source string) (*LoadResult, error) {
	startTime := time.Now()
	result := &LoadResult{
		ID:     uuid.New(),
		Source: source,
	}
	logger := l.logger.With().Str("load_id", result.ID.String()).Str("source", source).Logger()

	for {
		line, ok := r.Next()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Lines++

		rec, err := datanorm.ParseLine(line.Raw)
		if err != nil {
			logger.Error().Err(err).Int("line", line.No).Msg("malformed record")
			return result, apperrors.NewParseError(line.No, line.Raw, err)
		}

		switch {
		case rec.Article != nil:
			if err := l.store.UpsertArticle(ctx, *rec.Article); err != nil {
				return result, fmt.Errorf("line %d: %w", line.No, apperrors.NewStoreError("upsert article", err))
			}
			result.Articles++
		case rec.PriceStep != nil:
			if err := l.store.UpsertPriceStep(ctx, *rec.PriceStep); err != nil {
				return result, fmt.Errorf("line %d: %w", line.No, apperrors.NewStoreError("upsert price step", err))
			}
			result.PriceSteps++
		default:
			logger.Debug().Int("line", line.No).Str("record_type", string(rec.Type)).Msg("record type ignored")
			result.Ignored++
		}
	}
	if err := r.Err(); err != nil {
		return result, err
	}

	result.Duration = time.Since(startTime)
	logger.Info().
		Int("lines", result.Lines).
		Int("articles", result.Articles).
		Int("price_steps", result.PriceSteps).
		Int("ignored", result.Ignored).
		Dur("duration", result.Duration).
		Msg("datanorm source loaded")

	return result, nil
}

// LoadFile opens path with the given charset and loads it
func (l *Loader) LoadFile(ctx context.Context, path, encodingName string) (*LoadResult, error) {
	r, f, err := datanorm.OpenFile(path, encodingName)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return l.Load(ctx, r, path)
}
