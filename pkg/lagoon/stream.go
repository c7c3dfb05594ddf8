package lagoon

import (
	"context"
	"errors"
	"time"
)

// Done is returned by OutputIterator.Next once the prediction is terminal
// and every increment has been drained.
var Done = errors.New("lagoon: no more output")

// OutputIterator is a pull-based, forward-only view of a prediction's
// output as it accumulates. Each Next call either drains a buffered
// increment or re-polls the prediction and diffs the new output snapshot
// against what was already emitted. The sequence ends when the prediction
// reaches a terminal state; it imposes no timeout of its own, so bound it
// with the ctx passed to Next. It is not restartable: a second iterator
// picks up from the current remote state, not from history.
type OutputIterator struct {
	svc      *PredictionsService
	p        *Prediction
	interval time.Duration

	seen          int
	emittedScalar bool
	buf           []interface{}
	finished      bool
}

// Stream returns an iterator over p's incremental output. Output present
// on p at call time is emitted first. The iterator shares the single-owner
// rule of the prediction handle it wraps.
func (s *PredictionsService) Stream(p *Prediction) *OutputIterator {
	it := &OutputIterator{svc: s, p: p, interval: s.client.pollInterval}
	it.collect()
	if p.Status.Terminal() {
		it.finished = true
	}
	return it
}

// Next returns the next output increment. It returns Done after the final
// increment of a terminal prediction, a *ModelError if the prediction
// terminated in status "failed", and the ctx error if the caller cancels
// while the iterator is waiting on a poll.
func (it *OutputIterator) Next(ctx context.Context) (interface{}, error) {
	for {
		if len(it.buf) > 0 {
			v := it.buf[0]
			it.buf = it.buf[1:]
			return v, nil
		}
		if it.finished {
			if it.p.Status == StatusFailed {
				return nil, &ModelError{Prediction: it.p}
			}
			return nil, Done
		}

		timer := time.NewTimer(it.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		if err := it.svc.Reload(ctx, it.p); err != nil {
			return nil, err
		}
		it.collect()
		if it.p.Status.Terminal() {
			it.finished = true
		}
	}
}

// collect diffs the current output snapshot against what was already
// emitted and buffers anything new. Sequence outputs grow append-only; a
// single replaced value is emitted exactly once, at first observation.
func (it *OutputIterator) collect() {
	switch out := it.p.Output.(type) {
	case nil:
	case []interface{}:
		if len(out) > it.seen {
			it.buf = append(it.buf, out[it.seen:]...)
			it.seen = len(out)
		}
	default:
		if !it.emittedScalar {
			it.buf = append(it.buf, out)
			it.emittedScalar = true
		}
	}
}
