package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/JPFrancoia/scipy/optimize/zeros"
)

func TestObserve(t *testing.T) {
	c := solveTotal.WithLabelValues("ridder", "sign error")
	before := testutil.ToFloat64(c)

	Observe(zeros.Result{Method: zeros.MethodRidder, Stats: zeros.Stats{FuncCalls: 2, Status: zeros.SignError}}, time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestRunStarted(t *testing.T) {
	active := testutil.ToFloat64(runsActive)
	stopped := testutil.ToFloat64(runsStopped)

	done := RunStarted()
	assert.Equal(t, active+1, testutil.ToFloat64(runsActive))

	done(true)
	assert.Equal(t, active, testutil.ToFloat64(runsActive))
	assert.Equal(t, stopped+1, testutil.ToFloat64(runsStopped))
}
