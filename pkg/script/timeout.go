package script

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/partforge/pkg/ir"
)

// EvalTimeout is the default hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when an evaluation runs past its limit.
	ErrTimeout = errors.New("script: evaluation timed out")
	// ErrSuperseded is returned when a newer evaluation started on the same
	// engine before this one finished.
	ErrSuperseded = errors.New("script: evaluation superseded by newer request")
)

// evalResult passes evaluation results through channels.
type evalResult struct {
	part   *ir.Part
	errors []EvalError
	err    error
}

// waitWithTimeout waits for a result from ch, giving up after timeout or
// when ctx is done. Results of a generation older than currentGen are
// discarded.
//
// On timeout the goroutine may still be running; the generation check
// discards its result when it eventually completes.
func waitWithTimeout(
	ctx context.Context,
	ch <-chan evalResult,
	timeout time.Duration,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
) (*ir.Part, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return nil, nil, ErrSuperseded
		}
		return res.part, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)

	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}
