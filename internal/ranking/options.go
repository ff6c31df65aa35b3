package ranking

import "time"

const defaultConcurrency = 10

// Recorder receives ranking pass telemetry.
type Recorder interface {
	ObservePass(elapsed time.Duration, scored, failed int)
	ObserveFetchFailure(aggregate string)
}

type nopRecorder struct{}

func (nopRecorder) ObservePass(time.Duration, int, int) {}
func (nopRecorder) ObserveFetchFailure(string)          {}

// Option configures a Builder.
type Option func(*Builder)

// WithConcurrency bounds how many books are scored at once.
func WithConcurrency(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithRecorder attaches a telemetry sink.
func WithRecorder(r Recorder) Option {
	return func(b *Builder) {
		if r != nil {
			b.recorder = r
		}
	}
}
