package accountingsync

import (
	"context"
	"fmt"
)

type stepResult int

const (
	stepSucceeded stepResult = iota
	stepSkipped
)

// recordFold is the running total of a sequential pass over candidate records.
type recordFold struct {
	Succeeded int
	Skipped   int
	Retryable int
	Errors    []string
}

// foldRecords applies step to every record in order. A failing or panicking step
// adds one labelled error and the pass moves on to the next record.
func foldRecords[T any](ctx context.Context, records []T, label func(T) string, step func(context.Context, T) (stepResult, error)) recordFold {
	acc := recordFold{Errors: []string{}}
	for _, rec := range records {
		res, err := runStep(ctx, rec, step)
		if err != nil {
			acc.Errors = append(acc.Errors, fmt.Sprintf("%s: %s", label(rec), err.Error()))
			if IsRetryable(err) {
				acc.Retryable++
			}
			continue
		}
		if res == stepSkipped {
			acc.Skipped++
			continue
		}
		acc.Succeeded++
	}
	return acc
}

func runStep[T any](ctx context.Context, rec T, step func(context.Context, T) (stepResult, error)) (res stepResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return step(ctx, rec)
}
