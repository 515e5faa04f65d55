package eventbus

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/husheng0/Rocket/internal/core/domain"
	"github.com/husheng0/Rocket/internal/core/ports"
	"github.com/rs/zerolog"
)

// asyncJob is one asynchronous emission waiting for a worker.
type asyncJob struct {
	ctx      context.Context
	emitter  ports.Emitter
	event    domain.Event
	key      string
	snapshot []*Binding
}

// Dispatcher runs the bindings of an emission, inline for sync events and on
// a worker pool for async ones.
type Dispatcher struct {
	registry  *Registry
	log       zerolog.Logger
	onFault   FaultReporter
	workers   int
	queueSize int

	mu       sync.RWMutex // guards jobs and running against Stop
	jobs     chan asyncJob
	running  atomic.Bool
	workerWG sync.WaitGroup
	inflight sync.WaitGroup

	// Stats
	emitted    atomic.Uint64
	invoked    atomic.Uint64
	skipped    atomic.Uint64
	faulted    atomic.Uint64
	overflowed atomic.Uint64
}

// Stats is a point-in-time view of the dispatcher counters.
type Stats struct {
	Emitted    uint64
	Invoked    uint64
	Skipped    uint64
	Faulted    uint64
	Overflowed uint64
	QueueDepth int
}

// NewDispatcher creates a stopped dispatcher reading bindings from registry.
func NewDispatcher(registry *Registry, baseLogger *zerolog.Logger, opts ...Option) *Dispatcher {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Dispatcher{
		registry:  registry,
		log:       baseLogger.With().Str("component", "event_dispatcher").Logger(),
		onFault:   o.faultReporter,
		workers:   o.workers,
		queueSize: o.queueSize,
	}
}

// Start launches the async worker pool.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return ErrAlreadyRunning
	}

	d.jobs = make(chan asyncJob, d.queueSize)
	for w := 1; w <= d.workers; w++ {
		d.workerWG.Add(1)
		go d.worker(w, d.jobs)
	}
	d.running.Store(true)
	d.log.Info().Int("workers", d.workers).Int("queue_size", d.queueSize).Msg("Dispatcher started")
	return nil
}

// Stop rejects new emissions and waits until every queued async emission ran
// or ctx is done.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running.Load() {
		d.mu.Unlock()
		return ErrNotRunning
	}
	d.running.Store(false)
	close(d.jobs)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.workerWG.Wait()
		d.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Info().Msg("Dispatcher stopped gracefully")
		return nil
	case <-ctx.Done():
		d.log.Warn().Err(ctx.Err()).Msg("Dispatcher stop timed out with emissions in flight")
		return ctx.Err()
	}
}

// isNilEvent reports whether ev is nil, a typed nil pointer or an event
// without its embedded base.
func isNilEvent(ev domain.Event) bool {
	if ev == nil {
		return true
	}
	if v := reflect.ValueOf(ev); v.Kind() == reflect.Pointer && v.IsNil() {
		return true
	}
	return ev.Base() == nil
}

// Dispatch emits ev to every binding resolved for its key.
// Sync events are finished when Dispatch returns; async ones are queued.
func (d *Dispatcher) Dispatch(ctx context.Context, emitter ports.Emitter, ev domain.Event) error {
	if isNilEvent(ev) {
		return ErrNilEvent
	}
	if ev.ExecutionTarget() == domain.ExecutionAsync {
		return d.dispatchAsync(ctx, emitter, ev)
	}

	if !d.running.Load() {
		return ErrNotRunning
	}
	if !ev.Base().MarkEmitted() {
		return ErrEventReused
	}
	key := domain.KeyOf(ev)
	d.emitted.Add(1)
	d.run(ctx, emitter, ev, key, d.registry.Resolve(key))
	return nil
}

func (d *Dispatcher) dispatchAsync(ctx context.Context, emitter ports.Emitter, ev domain.Event) error {
	// The read lock keeps Stop from closing jobs while we send.
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.running.Load() {
		return ErrNotRunning
	}
	if !ev.Base().MarkEmitted() {
		return ErrEventReused
	}

	key := domain.KeyOf(ev)
	job := asyncJob{
		ctx:      context.WithoutCancel(ctx),
		emitter:  emitter,
		event:    ev,
		key:      key,
		snapshot: d.registry.Resolve(key),
	}
	d.emitted.Add(1)
	d.inflight.Add(1)

	select {
	case d.jobs <- job:
	default:
		// Queue full: the caller must not block, so the emission gets its own goroutine.
		d.overflowed.Add(1)
		d.log.Warn().Str("event", key).Msg("Async queue full, dispatching on a dedicated goroutine")
		go d.runJob(job)
	}
	return nil
}

// worker processes async emissions until the jobs channel is closed.
func (d *Dispatcher) worker(id int, jobs <-chan asyncJob) {
	defer d.workerWG.Done()

	log := d.log.With().Int("worker_id", id).Logger()
	log.Debug().Msg("Starting dispatch worker")
	for job := range jobs {
		d.runJob(job)
	}
	log.Debug().Msg("Stopping dispatch worker (channel closed)")
}

func (d *Dispatcher) runJob(job asyncJob) {
	defer d.inflight.Done()
	d.run(job.ctx, job.emitter, job.event, job.key, job.snapshot)
}

// run invokes the snapshot in order. Cancellation is checked before each
// binding, so a later binding with IgnoreCancelled still runs.
func (d *Dispatcher) run(ctx context.Context, emitter ports.Emitter, ev domain.Event, key string, snapshot []*Binding) {
	defer ev.Base().MarkFinished()

	for _, b := range snapshot {
		if ev.IsCancelled() && !b.IgnoreCancelled {
			d.skipped.Add(1)
			continue
		}
		d.invoked.Add(1)
		if fault := d.invoke(ctx, emitter, ev, key, b); fault != nil {
			d.report(fault)
		}
	}
}

// invoke calls one handler, turning an error or a panic into a fault.
func (d *Dispatcher) invoke(ctx context.Context, emitter ports.Emitter, ev domain.Event, key string, b *Binding) (fault *HandlerFault) {
	defer func() {
		if r := recover(); r != nil {
			fault = d.newFault(key, b, fmt.Errorf("panic: %v", r))
			fault.Panicked = true
			fault.Stack = debug.Stack()
		}
	}()

	if err := b.Handler(ctx, emitter, ev); err != nil {
		return d.newFault(key, b, err)
	}
	return nil
}

func (d *Dispatcher) newFault(key string, b *Binding, err error) *HandlerFault {
	return &HandlerFault{
		Key:       key,
		OwnerID:   b.Owner.ListenerID(),
		OwnerName: b.Owner.Name(),
		BindingID: b.ID,
		Err:       err,
	}
}

func (d *Dispatcher) report(fault *HandlerFault) {
	d.faulted.Add(1)
	d.log.Error().
		Err(fault.Err).
		Str("event", fault.Key).
		Str("owner", fault.OwnerName).
		Str("owner_id", fault.OwnerID.String()).
		Str("binding_id", fault.BindingID.String()).
		Bool("panicked", fault.Panicked).
		Msg("Event handler failed")

	if d.onFault == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Msg("Fault reporter panicked")
		}
	}()
	d.onFault(fault)
}

// IsRunning reports whether the dispatcher accepts emissions.
func (d *Dispatcher) IsRunning() bool { return d.running.Load() }

// Stats returns the dispatch counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.RLock()
	depth := 0
	if d.running.Load() {
		depth = len(d.jobs)
	}
	d.mu.RUnlock()

	return Stats{
		Emitted:    d.emitted.Load(),
		Invoked:    d.invoked.Load(),
		Skipped:    d.skipped.Load(),
		Faulted:    d.faulted.Load(),
		Overflowed: d.overflowed.Load(),
		QueueDepth: depth,
	}
}
