package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JPFrancoia/scipy/internal/metrics"
	"github.com/JPFrancoia/scipy/internal/optimizer"
	"github.com/JPFrancoia/scipy/optimize/zeros"
)

// maxBatch bounds the number of requests in one /batch call.
const maxBatch = 1000

// resultView is the JSON form of a solve. Non-finite roots are written as null.
type resultView struct {
	ID         string       `json:"id,omitempty"`
	Method     zeros.Method `json:"method"`
	Root       *float64     `json:"root"`
	FuncCalls  int          `json:"funcalls"`
	Iterations int          `json:"iterations"`
	Status     zeros.Status `json:"error_num"`
	Flag       string       `json:"flag"`
	Converged  bool         `json:"converged"`
	Error      string       `json:"error,omitempty"`
}

func newResultView(id string, res zeros.Result, err error) resultView {
	v := resultView{
		ID:         id,
		Method:     res.Method,
		Root:       optimizer.Finite(res.Root),
		FuncCalls:  res.FuncCalls,
		Iterations: res.Iterations,
		Status:     res.Status,
		Flag:       res.Status.String(),
		Converged:  res.Converged(),
	}
	if err != nil {
		v.Error = err.Error()
	}
	return v
}

// badRequest reports errors caused by the request itself rather than by the
// function being solved.
func badRequest(err error) bool {
	for _, target := range []error{
		optimizer.ErrExpression,
		zeros.ErrUnknownMethod,
		zeros.ErrMissingCallback,
		zeros.ErrBadTolerance,
		zeros.ErrInvalidInput,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (optimizer.Request, bool) {
	var req optimizer.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad JSON: "+err.Error(), http.StatusBadRequest)
		return req, false
	}
	if req.Method == zeros.MethodUnset {
		http.Error(w, "method is required", http.StatusBadRequest)
		return req, false
	}
	return req.WithDefaults(s.cfg.Solver), true
}

// solve runs req to completion and records metrics.
func (s *Server) solve(ctx context.Context, req optimizer.Request, onIter func(optimizer.Iter) error) (optimizer.Outcome, error) {
	start := time.Now()
	out, err := optimizer.Run(ctx, req, onIter)
	metrics.Observe(out.Result, time.Since(start))
	return out, err
}

// Solve answers one request synchronously.
func (s *Server) Solve(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	id := uuid.NewString()
	out, err := s.solve(r.Context(), req, nil)
	s.log.Info("solve",
		slog.String("run_id", id),
		slog.String("method", req.Method.String()),
		slog.String("status", out.Status.String()),
		slog.Int("funcalls", out.FuncCalls))

	code := http.StatusOK
	if badRequest(err) {
		code = http.StatusBadRequest
	}
	writeJSON(w, code, newResultView(id, out.Result, err))
}

// Batch solves a JSON array of requests concurrently and answers in order.
func (s *Server) Batch(w http.ResponseWriter, r *http.Request) {
	var reqs []optimizer.Request
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		http.Error(w, "bad JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(reqs) > maxBatch {
		http.Error(w, "too many requests in batch (max "+strconv.Itoa(maxBatch)+")", http.StatusRequestEntityTooLarge)
		return
	}

	results := make([]resultView, len(reqs))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(s.cfg.BatchConcurrency)
	for i, req := range reqs {
		req = req.WithDefaults(s.cfg.Solver)
		g.Go(func() error {
			out, err := s.solve(ctx, req, nil)
			results[i] = newResultView(strconv.Itoa(i), out.Result, err)
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info("batch", slog.Int("size", len(reqs)))
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// StartRun starts a streamed solve. Every evaluation is published on the
// run's stream; the response carries the run id and a preview of f.
func (s *Server) StartRun(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	set, err := optimizer.Compile(req.F, req.FPrime, req.FPrime2)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := optimizer.Validate(req, set); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// preview over the bracket, or around the starting point for open methods
	a, b := req.A, req.B
	if !req.Method.Bracketing() {
		a, b = req.X0-1, req.X0+1
	}
	xs, ys := optimizer.Sample(set.F, req.Params, a, b, s.cfg.PreviewPoints)

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	rs := &RunState{
		ID:        id,
		Request:   req,
		CreatedAt: time.Now(),
		Cancel:    cancel,
	}
	s.runs.save(rs)
	s.hub.Open(id)

	go s.run(ctx, rs, set)

	ysView := make([]*float64, len(ys))
	for i, y := range ys {
		ysView[i] = optimizer.Finite(y)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id": id,
		"xs": xs,
		"ys": ysView,
	})
}

func (s *Server) run(ctx context.Context, rs *RunState, set optimizer.Set) {
	defer rs.Cancel()
	log := s.log.With(slog.String("run_id", rs.ID), slog.String("method", rs.Request.Method.String()))
	end := metrics.RunStarted()

	log.Info("run started")
	_ = s.hub.PublishJSON(rs.ID, map[string]any{"type": "start", "id": rs.ID})

	onIter := func(it optimizer.Iter) error {
		select {
		case <-ctx.Done():
			return optimizer.ErrStopped
		default:
		}
		rs.record(it)
		return s.hub.PublishJSON(rs.ID, map[string]any{"type": "iter", "iter": it})
	}

	start := time.Now()
	out, err := optimizer.RunSet(ctx, rs.Request, set, onIter)
	metrics.Observe(out.Result, time.Since(start))

	stopped := errors.Is(err, optimizer.ErrStopped) || errors.Is(err, context.Canceled)
	rs.finish(out, err, stopped)
	end(stopped)

	switch {
	case stopped:
		log.Info("run stopped", slog.Int("evals", out.Evals))
		_ = s.hub.PublishJSON(rs.ID, map[string]any{"type": "stopped"})
	case badRequest(err):
		log.Warn("run failed", slog.String("err", err.Error()))
		_ = s.hub.PublishJSON(rs.ID, map[string]any{"type": "error", "err": err.Error()})
	default:
		log.Info("run done", slog.String("status", out.Status.String()), slog.Int("funcalls", out.FuncCalls))
		_ = s.hub.PublishJSON(rs.ID, map[string]any{"type": "done", "result": newResultView(rs.ID, out.Result, err)})
	}

	s.runs.expire(rs.ID, s.cfg.RunRetention, func() {
		s.hub.Remove(rs.ID)
		log.Debug("run evicted")
	})
}

func (s *Server) lookup(w http.ResponseWriter, id string) *RunState {
	if id == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return nil
	}
	rs := s.runs.get(id)
	if rs == nil {
		http.Error(w, "unknown id", http.StatusNotFound)
	}
	return rs
}

// StopRun cancels a streamed run.
func (s *Server) StopRun(w http.ResponseWriter, r *http.Request) {
	rs := s.lookup(w, r.URL.Query().Get("id"))
	if rs == nil {
		return
	}
	if rs.Cancel != nil {
		rs.Cancel()
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetRun returns the current state of a run.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	rs := s.lookup(w, chi.URLParam(r, "id"))
	if rs == nil {
		return
	}
	v, _ := rs.snapshot()
	writeJSON(w, http.StatusOK, v)
}

// ExportCSV writes the evaluations of a run as CSV.
func (s *Server) ExportCSV(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	rs := s.lookup(w, id)
	if rs == nil {
		return
	}
	_, iters := rs.snapshot()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=evaluations_"+id+".csv")

	cw := csv.NewWriter(w)
	defer cw.Flush()

	_ = cw.Write([]string{"k", "kind", "x", "f(x)"})
	for _, it := range iters {
		_ = cw.Write([]string{
			strconv.Itoa(it.K),
			string(it.Kind),
			fmtFloat(it.X),
			fmtFloat(it.FX),
		})
	}
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 16, 64)
}
