package ai

import (
	"context"
	"time"

	"github.com/garyjia/scanpaie/internal/domain/entity"
)

// ScanPaieDetector scores payroll entries against fixed heuristic rules.
// It holds only configuration and is safe for concurrent use.
type ScanPaieDetector struct {
	locale       string
	now          func() time.Time
	workers      int
	chunkSize    int
	salaryRanges SalaryRangeTable
	taxBrackets  TaxBracketTable
}

// Option configures a ScanPaieDetector
type Option func(*ScanPaieDetector)

// WithLocale sets the language of descriptions, suggestions and
// recommendations. Unknown locales fall back to French.
func WithLocale(locale string) Option {
	return func(d *ScanPaieDetector) {
		if IsSupportedLocale(locale) {
			d.locale = locale
		}
	}
}

// WithClock overrides the detection timestamp source
func WithClock(now func() time.Time) Option {
	return func(d *ScanPaieDetector) {
		if now != nil {
			d.now = now
		}
	}
}

// WithParallelism sets how many chunks of chunkSize entries are evaluated
// concurrently. workers <= 1 disables parallel evaluation.
func WithParallelism(workers, chunkSize int) Option {
	return func(d *ScanPaieDetector) {
		d.workers = workers
		if chunkSize > 0 {
			d.chunkSize = chunkSize
		}
	}
}

// WithSalaryRanges replaces the position salary table
func WithSalaryRanges(table SalaryRangeTable) Option {
	return func(d *ScanPaieDetector) {
		d.salaryRanges = table
	}
}

// WithTaxBrackets replaces the expected tax rate table
func WithTaxBrackets(table TaxBracketTable) Option {
	return func(d *ScanPaieDetector) {
		d.taxBrackets = table
	}
}

// NewScanPaieDetector creates a detector with the built-in tables
func NewScanPaieDetector(opts ...Option) *ScanPaieDetector {
	d := &ScanPaieDetector{
		locale:       LocaleFR,
		now:          time.Now,
		workers:      DefaultWorkers,
		chunkSize:    DefaultChunkSize,
		salaryRanges: DefaultSalaryRanges(),
		taxBrackets:  DefaultTaxBrackets(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var defaultDetector = NewScanPaieDetector()

// Default returns the shared detector with default settings
func Default() *ScanPaieDetector {
	return defaultDetector
}

// Analyze runs the default detector
func Analyze(ctx context.Context, entries, historical []entity.PayrollEntry) (*entity.ScanPaieAnalysis, error) {
	return defaultDetector.Analyze(ctx, entries, historical)
}

// Locale returns the report locale
func (d *ScanPaieDetector) Locale() string {
	return d.locale
}

// runContext is computed once per Analyze call and shared read-only by all workers
type runContext struct {
	baseline   historicalBaseline
	detectedAt time.Time
	messages   *catalogue
}

// Analyze evaluates every entry against all rules and aggregates the findings.
// When historical is non-empty, salary spikes are measured against its mean
// gross salary instead of the position table. Inputs are never modified.
// An invalid entry fails the whole call with *entity.InvalidEntryError.
func (d *ScanPaieDetector) Analyze(ctx context.Context, entries, historical []entity.PayrollEntry) (*entity.ScanPaieAnalysis, error) {
	if err := ValidateEntries(entries); err != nil {
		return nil, err
	}

	run := runContext{
		baseline:   newHistoricalBaseline(historical),
		detectedAt: d.now(),
		messages:   catalogueFor(d.locale),
	}

	anomalies, err := d.evaluateAll(ctx, entries, run)
	if err != nil {
		return nil, err
	}
	if anomalies == nil {
		anomalies = []entity.Anomaly{}
	}

	return aggregate(anomalies, run.messages), nil
}
