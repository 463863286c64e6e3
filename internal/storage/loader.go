package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"bankledger/internal/logger"
)

// BatchFn writes one batch of rows and reports how many were written.
type BatchFn func(ctx context.Context, rows [][]any) (int64, error)

// InsertBatches splits rows into chunks of batchSize and hands each chunk to
// fn, logging a progress line per flushed batch. It stops at the first error
// and returns the total written so far. Batches already flushed stay written.
func InsertBatches(ctx context.Context, label string, rows [][]any, batchSize int, fn BatchFn) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if fn == nil {
		return 0, fmt.Errorf("batch fn must not be nil")
	}

	log := logger.FromContext(ctx)
	var (
		total   int64
		batches int
		start   = time.Now()
	)
	for lo := 0; lo < len(rows); lo += batchSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		hi := lo + batchSize
		if hi > len(rows) {
			hi = len(rows)
		}
		n, err := fn(ctx, rows[lo:hi])
		total += n
		if err != nil {
			log.Error().Err(err).
				Str("target", label).
				Int("batch", batches+1).
				Int64("total_written", total).
				Msg("loader: batch failed")
			return total, err
		}
		batches++
		log.Debug().
			Str("target", label).
			Int("batch", batches).
			Int64("written", n).
			Str("total_written", humanize.Comma(total)).
			Dur("elapsed", time.Since(start).Truncate(time.Millisecond)).
			Msg("loader: batch flushed")
	}
	return total, nil
}
