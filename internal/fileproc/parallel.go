// Package fileproc runs a per-file function over many files on a bounded pool.
package fileproc

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// DefaultWorkerMultiplier scales NumCPU when no worker count is given.
const DefaultWorkerMultiplier = 2

// ProcessingError ties a failure to the file that caused it.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e ProcessingError) Unwrap() error {
	return e.Err
}

// ProcessingErrors lists failed files in input order.
type ProcessingErrors struct {
	Errors []ProcessingError
}

func (e *ProcessingErrors) HasErrors() bool {
	return e != nil && len(e.Errors) > 0
}

func (e *ProcessingErrors) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	default:
		return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
	}
}

// Unwrap exposes every file error to errors.Is and errors.As.
func (e *ProcessingErrors) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, pe := range e.Errors {
		errs[i] = pe
	}
	return errs
}

// MapFiles calls fn for every file and returns the results in input order.
// A failed or cancelled file leaves the zero value in its slot and shows up
// in the returned errors. onProgress, when set, runs once per file whether it
// failed or not. maxWorkers <= 0 means DefaultWorkerMultiplier x NumCPU.
func MapFiles[T any](
	ctx context.Context,
	files []string,
	maxWorkers int,
	fn func(ctx context.Context, path string) (T, error),
	onProgress func(),
) ([]T, *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU() * DefaultWorkerMultiplier
	}

	results := make([]T, len(files))
	failures := make([]error, len(files)) // one slot per file, written by one goroutine

	p := pool.New().WithMaxGoroutines(maxWorkers).WithContext(ctx)
	for i, path := range files {
		p.Go(func(ctx context.Context) error {
			if onProgress != nil {
				defer onProgress()
			}
			if err := ctx.Err(); err != nil {
				failures[i] = err
				return nil
			}
			results[i], failures[i] = fn(ctx, path)
			return nil
		})
	}
	_ = p.Wait()

	var errs ProcessingErrors
	for i, err := range failures {
		if err != nil {
			var zero T
			results[i] = zero
			errs.Errors = append(errs.Errors, ProcessingError{Path: files[i], Err: err})
		}
	}
	if !errs.HasErrors() {
		return results, nil
	}
	return results, &errs
}
