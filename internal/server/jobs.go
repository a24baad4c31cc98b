package server

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/godruoyi/go-snowflake"
	"github.com/patrickmn/go-cache"

	"github.com/copyleftdev/gradfit/internal/optimization"
)

// Job states.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// FitJob tracks one asynchronous fit. It observes its own solver, so the
// status endpoints can report progress while the solve is running.
type FitJob struct {
	mu sync.Mutex

	ID          string
	Method      string
	Status      string
	StartTime   time.Time
	EndTime     *time.Time
	LastUpdated time.Time
	Progress    float64
	Iteration   int
	Params      optimization.Params
	Cost        float64
	Result      *optimization.Result
	Err         error

	cancel context.CancelFunc
}

var _ optimization.Observer = (*FitJob)(nil)

func newFitJob(method string, init optimization.Params, cancel context.CancelFunc) *FitJob {
	now := time.Now()
	return &FitJob{
		ID:          newJobID(),
		Method:      method,
		Status:      StatusPending,
		StartTime:   now,
		LastUpdated: now,
		Params:      init,
		Cost:        math.NaN(),
		cancel:      cancel,
	}
}

func newJobID() string {
	return "fit_" + strconv.FormatUint(snowflake.ID(), 36)
}

// OnProgress implements optimization.Observer.
func (j *FitJob) OnProgress(p optimization.Progress) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.Progress = p.Fraction()
	j.Iteration = p.Iteration
	j.Params = p.Params
	j.Cost = p.Cost
	j.LastUpdated = time.Now()
}

// OnComplete implements optimization.Observer.
func (j *FitJob) OnComplete(r *optimization.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.Result = r
	j.Progress = 1
	j.Params = r.Params
	j.Cost = r.Cost
	j.LastUpdated = time.Now()
}

func (j *FitJob) start() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.Status != StatusPending {
		return false
	}
	j.Status = StatusRunning
	j.LastUpdated = time.Now()
	return true
}

// finish moves the job to its terminal state and returns it. A job that was
// cancelled while running stays cancelled whatever the solver returned.
func (j *FitJob) finish(err error) string {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := time.Now()
	j.LastUpdated = now
	if j.Status == StatusCancelled {
		return j.Status
	}

	j.EndTime = &now
	if err != nil {
		j.Status = StatusFailed
		j.Err = err
	} else {
		j.Status = StatusCompleted
	}
	return j.Status
}

// requestCancel cancels a pending or running job. It reports the status
// the job was in and whether the cancellation took effect.
func (j *FitJob) requestCancel() (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	prev := j.Status
	if isTerminal(prev) {
		return prev, false
	}

	if j.cancel != nil {
		j.cancel()
	}
	now := time.Now()
	j.Status = StatusCancelled
	j.EndTime = &now
	j.LastUpdated = now
	return prev, true
}

func isTerminal(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// jobStore is the fit job table. Live jobs never expire; terminal jobs
// are dropped ttl after they finish.
type jobStore struct {
	items *cache.Cache
}

func newJobStore(ttl time.Duration) *jobStore {
	return &jobStore{items: cache.New(ttl, ttl)}
}

func (s *jobStore) add(j *FitJob) {
	s.items.Set(j.ID, j, cache.NoExpiration)
}

// expire starts the TTL of a finished job.
func (s *jobStore) expire(j *FitJob) {
	s.items.Set(j.ID, j, cache.DefaultExpiration)
}

func (s *jobStore) get(id string) (*FitJob, bool) {
	v, ok := s.items.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*FitJob), true
}

func (s *jobStore) all() []*FitJob {
	items := s.items.Items()
	jobs := make([]*FitJob, 0, len(items))
	for _, it := range items {
		jobs = append(jobs, it.Object.(*FitJob))
	}
	return jobs
}

func (s *jobStore) count() int {
	return s.items.ItemCount()
}
