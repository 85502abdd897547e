package sampler

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Worker owns the measurement loop.
type Worker struct {
	cfg     Config
	reqQ    chan Request
	results chan Result

	pending map[string]*job
	want    map[string]bool
	jobs    []*job
	timer   *time.Timer

	wg sync.WaitGroup
}

type job struct {
	id      string
	adaptor Adaptor
	due     time.Time
	retries int
}

func New(cfg Config) *Worker {
	if cfg.TriggerTimeout <= 0 {
		cfg.TriggerTimeout = 100 * time.Millisecond
	}
	if cfg.CollectTimeout <= 0 {
		cfg.CollectTimeout = 250 * time.Millisecond
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 15 * time.Millisecond
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 6
	}
	if cfg.InputQueueSize <= 0 {
		cfg.InputQueueSize = 16
	}
	if cfg.ResultsQueueSz <= 0 {
		cfg.ResultsQueueSz = 16
	}
	return &Worker{
		cfg:     cfg,
		reqQ:    make(chan Request, cfg.InputQueueSize),
		results: make(chan Result, cfg.ResultsQueueSz),
		pending: map[string]*job{},
		want:    map[string]bool{},
		timer:   time.NewTimer(time.Hour),
	}
}

// Results delivers one Result per cycle. It must be drained.
func (w *Worker) Results() <-chan Result { return w.results }

// Submit queues a request without blocking. Prio requests wait briefly for
// queue space.
func (w *Worker) Submit(req Request) bool {
	select {
	case w.reqQ <- req:
		return true
	default:
		if req.Prio {
			select {
			case w.reqQ <- req:
				return true
			case <-time.After(5 * time.Millisecond):
			}
		}
		return false
	}
}

// Start runs the loop until ctx is done.
func (w *Worker) Start(ctx context.Context) {
	if !w.timer.Stop() {
		drainTimer(w.timer)
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Wait blocks until the loop and every Every goroutine have returned. After
// Wait no adaptor is called again.
func (w *Worker) Wait() { w.wg.Wait() }

func (w *Worker) run(ctx context.Context) {
	for ctx.Err() == nil {
		if next := w.nextDue(); next.IsZero() {
			resetTimer(w.timer, time.Hour)
		} else {
			resetTimer(w.timer, time.Until(next))
		}
		select {
		case <-ctx.Done():
			return
		case req := <-w.reqQ:
			w.request(ctx, req)
		case <-w.timer.C:
			w.collectDue(ctx, time.Now())
		}
	}
}

func (w *Worker) request(ctx context.Context, req Request) {
	if _, ok := w.pending[req.ID]; ok {
		if req.Prio {
			w.want[req.ID] = true
		}
		return
	}
	j := &job{id: req.ID, adaptor: req.Adaptor}
	if err := w.trigger(ctx, j); err != nil {
		w.emit(ctx, Result{ID: req.ID, Err: err})
		return
	}
	w.pending[j.id] = j
	w.jobs = append(w.jobs, j)
}

func (w *Worker) trigger(ctx context.Context, j *job) error {
	tctx, cancel := context.WithTimeout(ctx, w.cfg.TriggerTimeout)
	after, err := j.adaptor.Trigger(tctx)
	cancel()
	if err != nil {
		return err
	}
	j.retries = 0
	j.due = time.Now().Add(after)
	return nil
}

func (w *Worker) collectDue(ctx context.Context, now time.Time) {
	var keep []*job
	for _, j := range w.jobs {
		if now.Before(j.due) {
			keep = append(keep, j)
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, w.cfg.CollectTimeout)
		s, err := j.adaptor.Collect(cctx)
		cancel()
		switch {
		case err == nil:
			delete(w.pending, j.id)
			delete(w.want, j.id)
			w.emit(ctx, Result{ID: j.id, Sample: s})
		case errors.Is(err, ErrNotReady) && j.retries < w.cfg.MaxRetries:
			j.retries++
			j.due = now.Add(w.cfg.RetryBackoff)
			keep = append(keep, j)
		default:
			delete(w.pending, j.id)
			w.emit(ctx, Result{ID: j.id, Err: err})
			if w.want[j.id] {
				delete(w.want, j.id)
				if err := w.trigger(ctx, j); err != nil {
					w.emit(ctx, Result{ID: j.id, Err: err})
				} else {
					w.pending[j.id] = j
					keep = append(keep, j)
				}
			}
		}
	}
	w.jobs = keep
}

func (w *Worker) emit(ctx context.Context, r Result) {
	select {
	case w.results <- r:
		return
	default:
	}
	println("[sampler] results queue full, blocking on", r.ID)
	select {
	case w.results <- r:
	case <-ctx.Done():
	}
}

func (w *Worker) nextDue() time.Time {
	var next time.Time
	for _, j := range w.jobs {
		if next.IsZero() || j.due.Before(next) {
			next = j.due
		}
	}
	return next
}

// Every submits a request for each adaptor once per period until ctx is
// done. Submissions that find the queue full are dropped and logged.
func (w *Worker) Every(ctx context.Context, period time.Duration, ads ...Adaptor) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			for _, a := range ads {
				if !w.Submit(Request{ID: a.ID(), Adaptor: a}) {
					println("[sampler] queue full, dropped", a.ID())
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
	}()
}
