package server_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JPFrancoia/scipy/internal/config"
	"github.com/JPFrancoia/scipy/internal/server"
)

const cubicRoot = 1.5213797068045676

func newTestServer(t *testing.T, opts ...func(*config.Config)) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	cfg.PreviewPoints = 5
	for _, o := range opts {
		o(&cfg)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := server.New(cfg, log)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return ts
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestSolve(t *testing.T) {
	ts := newTestServer(t)

	resp := post(t, ts.URL+"/solve", `{"method":"brentq","f":"x**3 - x - k","params":{"k":2},"a":1,"b":2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode(t, resp)

	assert.InDelta(t, cubicRoot, out["root"], 1e-10)
	assert.Equal(t, "brentq", out["method"])
	assert.Equal(t, "converged", out["flag"])
	assert.Equal(t, true, out["converged"])
	assert.NotEmpty(t, out["id"])
	assert.NotContains(t, out, "error")
}

// TestSolve_SignError answers 200 with a null root: the request was valid.
func TestSolve_SignError(t *testing.T) {
	ts := newTestServer(t)

	resp := post(t, ts.URL+"/solve", `{"method":"bisect","f":"x*x + 1","a":-1,"b":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode(t, resp)

	assert.Nil(t, out["root"])
	assert.Equal(t, float64(-1), out["error_num"])
	assert.Equal(t, "sign error", out["flag"])
	assert.Equal(t, float64(2), out["funcalls"])
	assert.Contains(t, out["error"], "different signs")
}

func TestSolve_BadRequests(t *testing.T) {
	ts := newTestServer(t)
	cases := map[string]string{
		"json":       `{"method":`,
		"method":     `{"method":"regula","f":"x"}`,
		"expression": `{"method":"brentq","f":"x +","a":0,"b":1}`,
		"derivative": `{"method":"newton","f":"x*x - 2","x0":1}`,
		"bracket":    `{"method":"ridder","f":"x","a":1,"b":-1}`,
		"no method":  `{"f":"x - 1","a":0,"b":3}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp := post(t, ts.URL+"/solve", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestBatch(t *testing.T) {
	ts := newTestServer(t)

	resp := post(t, ts.URL+"/batch", `[
		{"method":"newton","f":"x*x - 2","fprime":"2*x","x0":1},
		{"method":"bisect","f":"x*x + 1","a":-1,"b":1},
		{"method":"secant","f":"cos(x) - x","x0":1}
	]`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Results []struct {
			ID        string   `json:"id"`
			Root      *float64 `json:"root"`
			Converged bool     `json:"converged"`
			Flag      string   `json:"flag"`
		} `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Results, 3)

	assert.Equal(t, "0", out.Results[0].ID)
	require.NotNil(t, out.Results[0].Root)
	assert.InDelta(t, 1.4142135623730951, *out.Results[0].Root, 1e-8)

	assert.False(t, out.Results[1].Converged)
	assert.Equal(t, "sign error", out.Results[1].Flag)

	require.NotNil(t, out.Results[2].Root)
	assert.InDelta(t, 0.7390851332151607, *out.Results[2].Root, 1e-8)
}

// events reads the run stream until the terminal event and returns the
// event types in order.
func events(t *testing.T, url string) []map[string]any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var got []map[string]any
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		data, ok := strings.CutPrefix(sc.Text(), "data: ")
		if !ok {
			continue
		}
		var ev map[string]any
		require.NoError(t, json.Unmarshal([]byte(data), &ev))
		got = append(got, ev)
		switch ev["type"] {
		case "done", "stopped", "error":
			return got
		}
	}
	t.Fatalf("stream ended without a terminal event: %v", sc.Err())
	return nil
}

func TestStartRun_StreamsAndExports(t *testing.T) {
	ts := newTestServer(t)

	resp := post(t, ts.URL+"/start", `{"method":"bisect","f":"x**3 - x - 2","a":1,"b":2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	start := decode(t, resp)
	id, _ := start["id"].(string)
	require.NotEmpty(t, id)
	assert.Len(t, start["xs"], 5)
	assert.Len(t, start["ys"], 5)

	evs := events(t, ts.URL+"/stream?stream="+id)
	require.GreaterOrEqual(t, len(evs), 3)
	assert.Equal(t, "start", evs[0]["type"])
	assert.Equal(t, "iter", evs[1]["type"])
	last := evs[len(evs)-1]
	require.Equal(t, "done", last["type"])
	result := last["result"].(map[string]any)
	assert.InDelta(t, cubicRoot, result["root"], 1e-10)

	// every evaluation was streamed
	assert.Equal(t, result["funcalls"], float64(len(evs)-2))

	runResp, err := http.Get(ts.URL + "/runs/" + id)
	require.NoError(t, err)
	defer runResp.Body.Close()
	require.Equal(t, http.StatusOK, runResp.StatusCode)
	run := decode(t, runResp)
	assert.Equal(t, true, run["done"])
	assert.Equal(t, result["funcalls"], run["evals"])

	csvResp, err := http.Get(ts.URL + "/export?id=" + id)
	require.NoError(t, err)
	defer csvResp.Body.Close()
	body, err := io.ReadAll(csvResp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	assert.Equal(t, "k,kind,x,f(x)", lines[0])
	assert.Len(t, lines, len(evs)-1)
	assert.True(t, strings.HasPrefix(lines[1], "1,f,1,"))
}

func TestStartRun_BadExpression(t *testing.T) {
	ts := newTestServer(t)
	resp := post(t, ts.URL+"/start", `{"method":"bisect","f":"((","a":1,"b":2}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// TestStartRun_Invalid rejects a run the solver would refuse before any
// stream is opened.
func TestStartRun_Invalid(t *testing.T) {
	ts := newTestServer(t)
	cases := map[string]string{
		"no method":     `{"f":"x - 1","a":0,"b":3}`,
		"reversed":      `{"method":"brentq","f":"x - 1","a":3,"b":0}`,
		"empty bracket": `{"method":"bisect","f":"x - 1","a":1,"b":1}`,
		"no fprime":     `{"method":"newton","f":"x*x - 2","x0":1}`,
		"no fprime2":    `{"method":"halley","f":"x*x - 2","fprime":"2*x","x0":1}`,
		"tight rtol":    `{"method":"brentq","f":"x - 1","a":0,"b":3,"options":{"rtol":1e-18}}`,
		"secant x1":     `{"method":"secant","f":"x - 1","x0":2,"x1":2}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp := post(t, ts.URL+"/start", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			b, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.NotContains(t, string(b), `"id"`)
		})
	}
}

// TestStartRun_Evicted forgets a finished run and its stream once the
// retention window has passed.
func TestStartRun_Evicted(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.RunRetention = 50 * time.Millisecond })

	resp := post(t, ts.URL+"/start", `{"method":"brentq","f":"x - 1","a":0,"b":3}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	id, _ := decode(t, resp)["id"].(string)
	require.NotEmpty(t, id)

	status := func(path string) int {
		r, err := http.Get(ts.URL + path)
		if err != nil {
			return 0
		}
		defer r.Body.Close()
		return r.StatusCode
	}
	require.Eventually(t, func() bool {
		return status("/runs/"+id) == http.StatusNotFound
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, http.StatusNotFound, status("/export?id="+id))
	assert.Equal(t, http.StatusNotFound, status("/stream?id="+id))
}

func TestStopRun_Unknown(t *testing.T) {
	ts := newTestServer(t)

	resp := post(t, ts.URL+"/stop?id=nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = post(t, ts.URL+"/stop", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	r, err := http.Get(ts.URL + "/runs/nope")
	require.NoError(t, err)
	defer r.Body.Close()
	assert.Equal(t, http.StatusNotFound, r.StatusCode)

	st, err := http.Get(ts.URL + "/stream?id=nope")
	require.NoError(t, err)
	defer st.Body.Close()
	assert.Equal(t, http.StatusNotFound, st.StatusCode)
}

func TestHealthzAndMetrics(t *testing.T) {
	ts := newTestServer(t)
	post(t, ts.URL+"/solve", `{"method":"ridder","f":"x - 1","a":0,"b":3}`)

	r, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer r.Body.Close()
	assert.Equal(t, http.StatusOK, r.StatusCode)

	m, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer m.Body.Close()
	body, err := io.ReadAll(m.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `rootfind_solve_total{method="ridder"`)
}
