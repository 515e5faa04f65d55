package eventbus

const (
	DefaultWorkers   = 4
	DefaultQueueSize = 256
)

type options struct {
	workers       int
	queueSize     int
	faultReporter FaultReporter
}

func defaultOptions() options {
	return options{
		workers:   DefaultWorkers,
		queueSize: DefaultQueueSize,
	}
}

// Option configures the bus.
type Option func(*options)

// WithWorkers sets the number of goroutines running async emissions.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithQueueSize sets how many async emissions may wait for a worker before
// the overflow path is taken.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.queueSize = n
		}
	}
}

// WithFaultReporter registers a callback for handler faults.
func WithFaultReporter(r FaultReporter) Option {
	return func(o *options) {
		o.faultReporter = r
	}
}
