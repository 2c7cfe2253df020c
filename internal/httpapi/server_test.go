package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dshills/corekit/internal/core"
)

func newTestServer(t *testing.T) (*core.Runtime, *httptest.Server) {
	t.Helper()
	rt := core.New()
	srv := httptest.NewServer(New(rt, zerolog.Nop(), "").Handler())
	t.Cleanup(func() {
		srv.Close()
		rt.Close()
	})
	return rt, srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestServer_Health(t *testing.T) {
	rt, srv := newTestServer(t)

	var body map[string]any
	if status := getJSON(t, srv.URL+"/healthz", &body); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if body["phase"] != "loading" {
		t.Errorf("phase = %v, want loading", body["phase"])
	}

	rt.Fire()

	getJSON(t, srv.URL+"/healthz", &body)
	if body["phase"] != "steady" {
		t.Errorf("phase after Fire = %v, want steady", body["phase"])
	}
}

func TestServer_Telemetry(t *testing.T) {
	rt, srv := newTestServer(t)

	rt.Record("error", map[string]any{"msg": "boom"}, "forms")

	var body struct {
		Records []struct {
			Type    string `json:"type"`
			Context string `json:"context"`
		} `json:"records"`
	}
	if status := getJSON(t, srv.URL+"/telemetry", &body); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if len(body.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(body.Records))
	}
	if body.Records[0].Type != "error" || body.Records[0].Context != "forms" {
		t.Errorf("record = %+v", body.Records[0])
	}
}

func TestServer_State(t *testing.T) {
	rt, srv := newTestServer(t)

	rt.Set("theme", "dark")
	rt.Set("count", 3)

	var body map[string]any
	if status := getJSON(t, srv.URL+"/state", &body); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body["theme"] != "dark" {
		t.Errorf("theme = %v, want dark", body["theme"])
	}
	if body["count"] != float64(3) {
		t.Errorf("count = %v, want 3", body["count"])
	}
}

func TestServer_StateKey(t *testing.T) {
	rt, srv := newTestServer(t)
	rt.Set("theme", "dark")

	var body map[string]any
	if status := getJSON(t, srv.URL+"/state/theme", &body); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body["value"] != "dark" {
		t.Errorf("value = %v, want dark", body["value"])
	}
}

func TestServer_StateKeyMissing(t *testing.T) {
	_, srv := newTestServer(t)

	if status := getJSON(t, srv.URL+"/state/absent", nil); status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
}

func TestServer_Metrics(t *testing.T) {
	rt, srv := newTestServer(t)

	rt.Register("x", func(any) {})
	rt.Publish("x", nil)
	rt.Set("k", 1)
	rt.Record("t", nil, "")

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	body := string(raw)

	for _, want := range []string{
		"corekit_events_published_total 1",
		"corekit_events_delivered_total 1",
		"corekit_state_writes_total 1",
		"corekit_telemetry_recorded_total 1",
		"corekit_bus_subscribers 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestServer_UnencodableState(t *testing.T) {
	rt, srv := newTestServer(t)

	// Functions cannot be JSON-encoded; the handler must degrade to a
	// clean error response rather than a broken body.
	rt.Set("fn", func() {})

	if status := getJSON(t, srv.URL+"/state", nil); status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", status)
	}
}
