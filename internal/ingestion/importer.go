package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"portfolio-sim/internal/domain"
	"portfolio-sim/internal/logging"
	"portfolio-sim/internal/observability"
	"portfolio-sim/internal/storage"
	"portfolio-sim/internal/tracing"
)

// Importer writes parsed price bars for one symbol into storage.
type Importer struct {
	instruments storage.InstrumentStore
	bars        storage.PriceBarStore
	metrics     *observability.Metrics
	logger      *zap.Logger
	batchSize   int
}

// ImporterOptions contains configuration for creating an Importer.
type ImporterOptions struct {
	Instruments storage.InstrumentStore
	Bars        storage.PriceBarStore
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	BatchSize   int // bars per Upsert call, default 1000
}

// NewImporter creates a new price bar importer.
func NewImporter(opts ImporterOptions) *Importer {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}

	m := opts.Metrics
	if m == nil {
		m = observability.DefaultMetrics
	}

	return &Importer{
		instruments: opts.Instruments,
		bars:        opts.Bars,
		metrics:     m,
		logger:      logging.OrNop(opts.Logger),
		batchSize:   batchSize,
	}
}

// ImportResult contains statistics from an import.
type ImportResult struct {
	Instrument        *domain.Instrument
	InstrumentCreated bool
	RowsRead          int
	BarsStored        int
	DuplicatesSkipped int
	Duration          time.Duration
}

// Import parses a price CSV and stores its bars under symbol.
// Steps:
//  1. Parse the CSV (nothing is written if any row is invalid)
//  2. Resolve the instrument, creating it when missing
//  3. Deduplicate by date, last row wins, and sort ascending
//  4. Upsert in batches
func (im *Importer) Import(ctx context.Context, symbol string, r io.Reader) (res *ImportResult, err error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", storage.ErrInvalidInput)
	}

	ctx, span := tracing.StartSpan(ctx, "ingestion.Import", trace.WithAttributes(
		attribute.String("symbol", symbol),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	start := time.Now()
	res = &ImportResult{}

	// 1. Parse
	parsed, err := ParseBarsCSV(r)
	if err != nil {
		im.metrics.RecordImportError("parse")
		return nil, err
	}
	res.RowsRead = len(parsed)

	// 2. Resolve instrument
	inst, created, err := im.ensureInstrument(ctx, symbol)
	if err != nil {
		im.metrics.RecordImportError("instrument")
		return nil, err
	}
	res.Instrument = inst
	res.InstrumentCreated = created

	// 3. Deduplicate
	for _, b := range parsed {
		b.InstrumentID = inst.ID
	}
	bars := DedupeBars(parsed)
	res.DuplicatesSkipped = len(parsed) - len(bars)

	// 4. Upsert in batches
	for i := 0; i < len(bars); i += im.batchSize {
		end := min(i+im.batchSize, len(bars))
		queryStart := time.Now()
		err := im.bars.Upsert(ctx, bars[i:end])
		im.metrics.RecordDBQuery("price_bars", "upsert", time.Since(queryStart).Seconds(), err)
		if err != nil {
			im.metrics.RecordImportError("store")
			return nil, fmt.Errorf("store bars for %s: %w", symbol, err)
		}
		res.BarsStored = end
	}

	res.Duration = time.Since(start)
	im.metrics.RecordImport(symbol, res.BarsStored)
	span.SetAttributes(attribute.Int("bars", res.BarsStored))

	im.logger.Info("import completed",
		zap.String("symbol", symbol),
		zap.Int64("instrument_id", inst.ID),
		zap.Bool("instrument_created", created),
		zap.Int("rows", res.RowsRead),
		zap.Int("bars", res.BarsStored),
		zap.Int("duplicates", res.DuplicatesSkipped),
		zap.Duration("duration", res.Duration),
	)

	return res, nil
}

// ensureInstrument returns the instrument for symbol, inserting it if needed.
// A concurrent insert of the same symbol is resolved by re-reading it.
func (im *Importer) ensureInstrument(ctx context.Context, symbol string) (*domain.Instrument, bool, error) {
	inst, err := im.instruments.GetBySymbol(ctx, symbol)
	if err == nil {
		return inst, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, fmt.Errorf("lookup instrument %s: %w", symbol, err)
	}

	inst = &domain.Instrument{Symbol: symbol}
	err = im.instruments.Insert(ctx, inst)
	switch {
	case err == nil:
		return inst, true, nil
	case errors.Is(err, storage.ErrDuplicateKey):
		inst, err = im.instruments.GetBySymbol(ctx, symbol)
		if err != nil {
			return nil, false, fmt.Errorf("lookup instrument %s: %w", symbol, err)
		}
		return inst, false, nil
	default:
		return nil, false, fmt.Errorf("create instrument %s: %w", symbol, err)
	}
}
