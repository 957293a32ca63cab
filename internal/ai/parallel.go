package ai

import (
	"context"
	"fmt"

	"github.com/garyjia/scanpaie/internal/domain/entity"
	"golang.org/x/sync/errgroup"
)

// Parallelism defaults
const (
	DefaultWorkers   = 4
	DefaultChunkSize = 500
)

// evaluateAll runs the rules over every entry and returns anomalies in
// entry order. Large batches are split into chunks evaluated concurrently;
// chunk results are concatenated in input order so the output matches the
// sequential path exactly.
func (d *ScanPaieDetector) evaluateAll(ctx context.Context, entries []entity.PayrollEntry, run runContext) ([]entity.Anomaly, error) {
	if d.workers <= 1 || len(entries) <= d.chunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return d.evaluateChunk(entries, run), nil
	}

	chunkCount := (len(entries) + d.chunkSize - 1) / d.chunkSize
	results := make([][]entity.Anomaly, chunkCount)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	for i := 0; i < chunkCount; i++ {
		i := i
		start := i * d.chunkSize
		end := min(start+d.chunkSize, len(entries))

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = d.evaluateChunk(entries[start:end], run)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluate payroll entries: %w", err)
	}

	var all []entity.Anomaly
	for _, chunk := range results {
		all = append(all, chunk...)
	}
	return all, nil
}

func (d *ScanPaieDetector) evaluateChunk(entries []entity.PayrollEntry, run runContext) []entity.Anomaly {
	var found []entity.Anomaly
	for i := range entries {
		ev := &evaluation{
			entry:      &entries[i],
			baseline:   run.baseline,
			detectedAt: run.detectedAt,
			messages:   run.messages,
		}
		found = append(found, d.evaluateEntry(ev)...)
	}
	return found
}
