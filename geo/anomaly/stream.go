package anomaly

import (
	"context"

	"github.com/rotblauer/trackfix/types/sample"
)

// StreamCorrector applies the same pass as Corrector.Process to a stream of samples,
// holding a window of three original samples.
// Its counters are safe to read once the output channel is closed.
type StreamCorrector struct {
	*Corrector

	Detected  int
	Corrected int
	Indices   []int
}

func NewStreamCorrector(c *Corrector) *StreamCorrector {
	if c == nil {
		c = defaultCorrector
	}
	return &StreamCorrector{Corrector: c}
}

// Correct emits exactly one sample for each sample received, in order.
// The first sample is sent as soon as it arrives. The last is held
// until the input closes, since it can't be told from an interior sample before then.
func (s *StreamCorrector) Correct(ctx context.Context, in <-chan sample.Sample) <-chan sample.Sample {
	out := make(chan sample.Sample)

	go func() {
		defer close(out)

		send := func(smp sample.Sample) bool {
			select {
			case <-ctx.Done():
				return false
			case out <- smp:
				return true
			}
		}

		var prev, cur *sample.Sample
		i := 0
		for next := range in {
			next := next

			// The first sample is always sent.
			if prev == nil {
				if !send(next) {
					return
				}
				prev = &next
				i++
				continue
			}
			if cur == nil {
				cur = &next
				continue
			}

			emit := *cur
			if s.IsAnomalous(*prev, *cur, next) {
				s.Detected++
				emit = Interpolate(*prev, *cur, next)
				s.Indices = append(s.Indices, i)
				s.Corrected++
			}
			if !send(emit) {
				return
			}
			i++
			prev, cur = cur, &next
		}

		// Any held last sample is sent unchanged.
		if cur != nil {
			send(*cur)
		}
	}()
	return out
}

// Result assembles a Result from the collected output of Correct.
func (s *StreamCorrector) Result(corrected sample.Trace) sample.Result {
	if corrected == nil {
		corrected = sample.Trace{}
	}
	return sample.Result{
		CorrectedPoints:    corrected,
		AnomaliesDetected:  s.Detected,
		AnomaliesCorrected: s.Corrected,
		CorrectedIndices:   s.Indices,
	}
}
