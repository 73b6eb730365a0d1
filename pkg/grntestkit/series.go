package grntestkit

import (
	"context"
	"time"
)

// SeriesBatchSize is the number of records GenerateSeries loads at once.
const SeriesBatchSize = 1000

// GenerateSeries builds the records value(from) ... value(to-1) and passes
// them to load in batches of SeriesBatchSize.
func GenerateSeries(from, to int, value func(i int) any, load func(values []any) error) error {
	values := make([]any, 0, SeriesBatchSize)
	for i := from; i < to; i++ {
		values = append(values, value(i))
		if len(values) >= SeriesBatchSize {
			if err := load(values); err != nil {
				return err
			}
			values = make([]any, 0, SeriesBatchSize)
		}
	}
	if len(values) > 0 {
		return load(values)
	}
	return nil
}

// Sleep pauses for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
