package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/broker"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/emulator"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsa"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/server"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestAPI(t *testing.T) (*server.Server, http.Handler) {
	t.Helper()
	reg := rsa.NewRegistry()
	if err := emulator.Register(reg); err != nil {
		t.Fatal(err)
	}
	srv, err := server.New(nil, broker.New(), reg)
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.CreateImplementation("Emulator"); err != nil {
		t.Fatal(err)
	}
	runner := NewRunner()
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case fn := <-runner.C():
				fn()
			case <-stop:
				return
			}
		}
	}()
	t.Cleanup(func() { close(stop) })
	return srv, New(srv, runner).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var out map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: bad JSON %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code, out
}

func TestListVariables(t *testing.T) {
	srv, h := newTestAPI(t)
	code, out := do(t, h, http.MethodGet, "/variables", "")
	if code != http.StatusOK {
		t.Fatalf("GET /variables = %d", code)
	}
	vars, _ := out["variables"].([]any)
	if want := len(srv.Broker().Variables()); len(vars) != want {
		t.Fatalf("variables = %d, want %d", len(vars), want)
	}
	first := vars[0].(map[string]any)
	if first["name"] != "Acquisition|State" || first["state"] != "OFF" {
		t.Errorf("first variable = %v", first)
	}
}

func TestGetVariable(t *testing.T) {
	_, h := newTestAPI(t)
	cases := []struct {
		path string
		code int
		name string
	}{
		{"/variables/0x20420", http.StatusOK, "Acquisition|Receiver|Gain"},
		{"/variables/132128", http.StatusOK, "Acquisition|Receiver|Gain"},
		{"/variables/Acquisition%7CReceiver%7CGain", http.StatusOK, "Acquisition|Receiver|Gain"},
		{"/variables/0x2FFFF", http.StatusNotFound, ""},
		{"/variables/Nope", http.StatusNotFound, ""},
	}
	for _, tc := range cases {
		code, out := do(t, h, http.MethodGet, tc.path, "")
		if code != tc.code {
			t.Errorf("GET %s = %d, want %d", tc.path, code, tc.code)
			continue
		}
		if tc.code == http.StatusOK && out["name"] != tc.name {
			t.Errorf("GET %s name = %v, want %s", tc.path, out["name"], tc.name)
		}
		if tc.code != http.StatusOK && out["error"] == nil {
			t.Errorf("GET %s: no error body", tc.path)
		}
	}
}

func TestPutVariable(t *testing.T) {
	srv, h := newTestAPI(t)
	cases := []struct {
		body  string
		code  int
		value string
	}{
		{`{"value": 42.5}`, http.StatusOK, "42.5"},
		{`{"value": "12"}`, http.StatusOK, "12"},
		{`{"value": 500}`, http.StatusOK, "80"},
		{`{"value": "loud"}`, http.StatusBadRequest, ""},
		{`{}`, http.StatusBadRequest, ""},
		{`not json`, http.StatusBadRequest, ""},
	}
	for _, tc := range cases {
		code, out := do(t, h, http.MethodPut, "/variables/0x20420", tc.body)
		if code != tc.code {
			t.Errorf("PUT %s = %d (%v), want %d", tc.body, code, out, tc.code)
			continue
		}
		if tc.code == http.StatusOK && out["value"] != tc.value {
			t.Errorf("PUT %s value = %v, want %s", tc.body, out["value"], tc.value)
		}
	}
	if v, _ := srv.Acquisition().Param(emulator.IDGain(0)); v.Float() != 80 {
		t.Errorf("implementation gain = %v, want 80", v)
	}
}

func TestPutVariableByStateLabel(t *testing.T) {
	srv, h := newTestAPI(t)
	code, out := do(t, h, http.MethodPut, "/variables/0x20000", `{"value": "RUN"}`)
	if code != http.StatusOK || out["state"] != "RUN" {
		t.Fatalf("PUT state variable = %d %v", code, out)
	}
	if !srv.Acquisition().RunMode() {
		t.Error("implementation not running")
	}
}

func TestLockForbidsWrites(t *testing.T) {
	_, h := newTestAPI(t)
	if code, _ := do(t, h, http.MethodPut, "/lock", `{"locked": true}`); code != http.StatusOK {
		t.Fatalf("PUT /lock = %d", code)
	}
	code, out := do(t, h, http.MethodPut, "/variables/0x20420", `{"value": 10}`)
	if code != http.StatusForbidden {
		t.Errorf("locked write = %d %v, want 403", code, out)
	}
	if _, out := do(t, h, http.MethodGet, "/state", ""); out["locked"] != true {
		t.Errorf("GET /state = %v", out)
	}
	if code, _ := do(t, h, http.MethodPut, "/lock", `{}`); code != http.StatusBadRequest {
		t.Errorf("PUT /lock without field = %d", code)
	}
}

func TestStateAndResults(t *testing.T) {
	srv, h := newTestAPI(t)
	code, out := do(t, h, http.MethodPut, "/state", `{"state": "run"}`)
	if code != http.StatusOK || out["state"] != "RUN" {
		t.Fatalf("PUT /state = %d %v", code, out)
	}
	if code, _ := do(t, h, http.MethodPut, "/state", `{"state": "fast"}`); code != http.StatusBadRequest {
		t.Errorf("PUT /state bogus = %d", code)
	}

	idx, ok := srv.ResultOf(emulator.RIDCopyIndex(0))
	if !ok {
		t.Fatal("copy index not bound")
	}
	path := fmt.Sprintf("/results/0x%x", idx.ID())
	if code, _ := do(t, h, http.MethodGet, path, ""); code != http.StatusNotFound {
		t.Errorf("GET %s before data = %d, want 404", path, code)
	}
	// No command is in flight, so the test goroutine may drive the server.
	srv.Sustain(time.Now().Add(time.Second))

	code, out = do(t, h, http.MethodGet, path, "")
	if code != http.StatusOK {
		t.Fatalf("GET %s = %d", path, code)
	}
	if data, _ := out["data"].(string); data == "" {
		t.Errorf("GET %s: no data in %v", path, out)
	}
	if out["name"] != "Acquisition|Copy|Index" {
		t.Errorf("result name = %v", out["name"])
	}

	code, out = do(t, h, http.MethodGet, "/results", "")
	if code != http.StatusOK {
		t.Fatalf("GET /results = %d", code)
	}
	if results, _ := out["results"].([]any); len(results) != len(srv.ResultStreams()) {
		t.Errorf("results = %d, want %d", len(results), len(srv.ResultStreams()))
	}
}

func TestMetrics(t *testing.T) {
	_, h := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "rsa_reconcile_total") {
		t.Error("reconcile counter not exported")
	}
}
