package poller

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"

	"github.com/HarshitVashisht11/Transly/internal/app/transcription/api"
	"github.com/HarshitVashisht11/Transly/internal/pkg/cmdapp"
	errs "github.com/HarshitVashisht11/Transly/internal/pkg/err"
	"github.com/HarshitVashisht11/Transly/internal/pkg/progress"
	"github.com/HarshitVashisht11/Transly/internal/pkg/status"
)

// JobGetter fetches the current job state from the service
type JobGetter interface {
	GetJob(id string) (*api.Job, error)
}

// Events keeps subscriber callbacks. Nil callbacks are skipped.
// OnProgress carries the heuristic estimate, it is not the authoritative status
type Events struct {
	OnProgress  func(progress int32)
	OnCompleted func(job *api.Job)
	OnFailed    func(id string, err error)
}

type backoffProvider interface {
	Get() backoff.BackOff
}

type defaultBackoffProvider struct {
}

func (p defaultBackoffProvider) Get() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2)
}

// Poller tracks submitted jobs by repeated status reads.
// Each job gets its own cancellable subscription, keyed by job ID
type Poller struct {
	getter      JobGetter
	interval    time.Duration
	maxFailures int
	bp          backoffProvider

	m    sync.Mutex // guards subs
	subs map[string]*Subscription
}

// NewPoller creates Poller instance with the reference 3 s cadence
func NewPoller(getter JobGetter) (*Poller, error) {
	if getter == nil {
		return nil, errors.New("No job getter")
	}
	return &Poller{getter: getter, interval: 3 * time.Second, maxFailures: 5,
		bp: defaultBackoffProvider{}, subs: make(map[string]*Subscription)}, nil
}

// Subscription is one active polling task
type Subscription struct {
	id   string
	done chan struct{}
	once sync.Once
	est  progress.Estimator
}

// Cancel stops polling. Server side work is not affected
func (s *Subscription) Cancel() {
	s.once.Do(func() { close(s.done) })
}

// ID returns the tracked job ID
func (s *Subscription) ID() string {
	return s.id
}

// Start begins polling the job until a terminal status is observed.
// A previous subscription for the same ID is stopped first
func (p *Poller) Start(id string, events Events) (*Subscription, error) {
	if id == "" {
		return nil, errors.New("No job ID")
	}
	p.m.Lock()
	defer p.m.Unlock()
	if old, found := p.subs[id]; found {
		old.Cancel()
	}
	s := &Subscription{id: id, done: make(chan struct{})}
	p.subs[id] = s
	go p.run(s, events)
	return s, nil
}

// Cancel stops the subscription for the ID if any
func (p *Poller) Cancel(id string) {
	p.m.Lock()
	s, found := p.subs[id]
	p.m.Unlock()
	if found {
		s.Cancel()
	}
}

// Tracked returns the count of active subscriptions
func (p *Poller) Tracked() int {
	p.m.Lock()
	defer p.m.Unlock()
	return len(p.subs)
}

func (p *Poller) run(s *Subscription, events Events) {
	defer p.remove(s)
	cmdapp.Log.Infof("Waiting for transcription to complete, ID: %s", s.id)
	failures := 0
	// fixed delay timer, rearmed only after the fetch settles
	timer := time.NewTimer(p.interval)
	defer timer.Stop()
	for {
		select {
		case <-s.done:
			cmdapp.Log.Infof("Polling cancelled, ID: %s", s.id)
			return
		case <-timer.C:
		}

		job, err := p.fetch(s.id)
		if err != nil {
			if errs.Code(err) == errs.NotFoundCode {
				events.failed(s.id, err)
				return
			}
			failures++
			cmdapp.LogIf(err)
			if failures >= p.maxFailures {
				events.failed(s.id, errors.Wrap(err, "Can't get status. Give up"))
				return
			}
			timer.Reset(p.interval)
			continue
		}
		failures = 0

		switch status.From(job.Status) {
		case status.Completed:
			events.progress(s.est.Complete())
			if events.OnCompleted != nil {
				events.OnCompleted(job)
			}
			return
		case status.Failed:
			events.failed(s.id, errs.New(errs.EngineFailureCode,
				"There was a problem processing your file").WithJob(s.id))
			return
		case status.Processing:
			events.progress(s.est.Tick())
		}
		timer.Reset(p.interval)
	}
}

func (p *Poller) fetch(id string) (*api.Job, error) {
	var res *api.Job
	op := func() error {
		var err error
		res, err = p.getter.GetJob(id)
		if err != nil && errs.Code(err) == errs.NotFoundCode {
			return backoff.Permanent(err)
		}
		return err
	}
	err := backoff.Retry(op, p.bp.Get())
	return res, err
}

func (p *Poller) remove(s *Subscription) {
	p.m.Lock()
	defer p.m.Unlock()
	if p.subs[s.id] == s {
		delete(p.subs, s.id)
	}
}

func (e Events) progress(value int32) {
	if e.OnProgress != nil {
		e.OnProgress(value)
	}
}

func (e Events) failed(id string, err error) {
	if e.OnFailed != nil {
		e.OnFailed(id, err)
	}
}
