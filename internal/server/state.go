package server

import (
	"context"
	"sync"
	"time"

	"github.com/JPFrancoia/scipy/internal/optimizer"
)

// RunState is one streamed solve. The solving goroutine writes it; handlers
// read it through snapshot.
type RunState struct {
	ID        string
	Request   optimizer.Request
	CreatedAt time.Time
	Cancel    context.CancelFunc

	mu       sync.Mutex
	lastIter optimizer.Iter
	iters    []optimizer.Iter
	outcome  *optimizer.Outcome
	err      string
	done     bool
	stopped  bool
}

func (rs *RunState) record(it optimizer.Iter) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.lastIter = it
	rs.iters = append(rs.iters, it)
}

func (rs *RunState) finish(out optimizer.Outcome, err error, stopped bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.outcome = &out
	rs.stopped = stopped
	rs.done = true
	if err != nil {
		rs.err = err.Error()
	}
}

// runView is the JSON form of a RunState.
type runView struct {
	ID        string            `json:"id"`
	Request   optimizer.Request `json:"request"`
	CreatedAt time.Time         `json:"created_at"`
	Done      bool              `json:"done"`
	Stopped   bool              `json:"stopped"`
	Error     string            `json:"error,omitempty"`
	Evals     int               `json:"evals"`
	Last      *optimizer.Iter   `json:"last,omitempty"`
	Result    *resultView       `json:"result,omitempty"`
}

func (rs *RunState) snapshot() (runView, []optimizer.Iter) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	v := runView{
		ID:        rs.ID,
		Request:   rs.Request,
		CreatedAt: rs.CreatedAt,
		Done:      rs.done,
		Stopped:   rs.stopped,
		Error:     rs.err,
		Evals:     len(rs.iters),
	}
	if len(rs.iters) > 0 {
		last := rs.lastIter
		v.Last = &last
	}
	if rs.outcome != nil {
		rv := newResultView(rs.ID, rs.outcome.Result, nil)
		v.Result = &rv
	}
	return v, append([]optimizer.Iter(nil), rs.iters...)
}

// runStore keeps the runs of the process by id. A finished run is evicted
// once its retention timer fires.
type runStore struct {
	mu     sync.Mutex
	runs   map[string]*RunState
	timers map[string]*time.Timer
}

func newRunStore() *runStore {
	return &runStore{runs: map[string]*RunState{}, timers: map[string]*time.Timer{}}
}

func (s *runStore) save(rs *RunState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[rs.ID] = rs
}

func (s *runStore) get(id string) *RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

// expire removes id after d and then calls onEvict.
func (s *runStore) expire(id string, d time.Duration, onEvict func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[id]; !ok {
		return
	}
	s.timers[id] = time.AfterFunc(d, func() {
		s.remove(id)
		onEvict()
	})
}

func (s *runStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
	delete(s.timers, id)
}

// cancelAll stops every run and every pending eviction.
func (s *runStore) cancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rs := range s.runs {
		if rs.Cancel != nil {
			rs.Cancel()
		}
	}
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}
