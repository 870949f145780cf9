package httpctrl

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desingh-rajan/msi-fan-control/internal/supervisor"
	"github.com/desingh-rajan/msi-fan-control/internal/testutil"
)

func TestGET_status(t *testing.T) {
	srv, _ := newTestServer()

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodGet, "/v1/status", nil)
	assertStatus(t, rr, http.StatusOK)

	got := decodeJSON[map[string]any](t, rr)
	if got["fan_mode"] != "auto" {
		t.Fatalf("expected fan_mode=auto, got %v", got["fan_mode"])
	}
	if got["cooler_boost"] != false {
		t.Fatalf("expected cooler_boost=false, got %v", got["cooler_boost"])
	}
	if got["device_id"] != "default" {
		t.Fatalf("expected device_id=default, got %v", got["device_id"])
	}
	if got["fan1_rpm"] != float64(2500) {
		t.Fatalf("expected fan1_rpm=2500, got %v", got["fan1_rpm"])
	}
}

func TestGET_status_NotConnected(t *testing.T) {
	srv, f := newTestServer()
	f.StatusErr = supervisor.ErrNotConnected

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodGet, "/v1/status", nil)
	assertStatus(t, rr, http.StatusServiceUnavailable)
	_ = assertErrorResponse(t, rr)
}

func TestGET_status_Busy(t *testing.T) {
	srv, f := newTestServer()
	f.StatusErr = supervisor.ErrBusy

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodGet, "/v1/status", nil)
	assertStatus(t, rr, http.StatusConflict)
}

func TestGET_status_Timeout(t *testing.T) {
	srv, f := newTestServer()
	f.StatusErr = supervisor.ErrTimeout

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodGet, "/v1/status", nil)
	assertStatus(t, rr, http.StatusGatewayTimeout)
}

func TestPOST_connect(t *testing.T) {
	srv, f := newTestServer()

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodPost, "/v1/connect", nil)
	assertStatus(t, rr, http.StatusOK)

	if !f.ConnectCalled {
		t.Fatal("expected Connect called")
	}
	got := decodeJSON[map[string]any](t, rr)
	if got["cpu_temp"] != float64(52) {
		t.Fatalf("expected handshake status in body, got %v", got)
	}
}

func TestPOST_disconnect(t *testing.T) {
	srv, f := newTestServer()

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodPost, "/v1/disconnect", nil)
	assertStatus(t, rr, http.StatusOK)
	if !f.DisconnectCalled {
		t.Fatal("expected Disconnect called")
	}
}

func TestPOST_cooler_boost(t *testing.T) {
	srv, f := newTestServer()

	rr := postValueEndpoint(t, srv, "/v1/cooler_boost", true)
	assertStatus(t, rr, http.StatusOK)

	if !f.SetCoolerBoostCalled || f.SetCoolerBoostArg != true {
		t.Fatalf("expected SetCoolerBoost(true), got called=%v arg=%v", f.SetCoolerBoostCalled, f.SetCoolerBoostArg)
	}
	got := decodeJSON[map[string]string](t, rr)
	if got["message"] != "Cooler Boost enabled" {
		t.Fatalf("expected ack message, got %v", got)
	}
}

func TestPOST_fan_speed(t *testing.T) {
	srv, f := newTestServer()

	rr := postValueEndpoint(t, srv, "/v1/fan_speed", 50)
	assertStatus(t, rr, http.StatusOK)

	if !f.SetFanSpeedCalled || f.SetFanSpeedArg != 50 {
		t.Fatalf("expected SetFanSpeed(50), got called=%v arg=%v", f.SetFanSpeedCalled, f.SetFanSpeedArg)
	}
}

func TestPOST_fan_speed_OutOfRange(t *testing.T) {
	srv, f := newTestServer()

	rr := postValueEndpoint(t, srv, "/v1/fan_speed", 300)
	assertStatus(t, rr, http.StatusBadRequest)
	if f.SetFanSpeedCalled {
		t.Fatal("expected SetFanSpeed not called")
	}
}

func TestPOST_fan_mode_Valid(t *testing.T) {
	srv, f := newTestServer()

	rr := postValueEndpoint(t, srv, "/v1/fan_mode", "silent")
	assertStatus(t, rr, http.StatusOK)

	if !f.SetFanModeCalled || f.SetFanModeArg != "silent" {
		t.Fatalf("expected SetFanMode(silent), got called=%v arg=%v", f.SetFanModeCalled, f.SetFanModeArg)
	}
}

func TestPOST_fan_mode_InvalidString(t *testing.T) {
	srv, f := newTestServer()

	rr := postValueEndpoint(t, srv, "/v1/fan_mode", "turbo")
	assertStatus(t, rr, http.StatusBadRequest)
	_ = assertErrorResponse(t, rr)
	if f.SetFanModeCalled {
		t.Fatal("unknown mode must be rejected before the service")
	}
}

func TestPOST_fan_mode_MissingValue(t *testing.T) {
	srv, _ := newTestServer()

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodPost, "/v1/fan_mode", map[string]any{
		"mode": "silent",
	})
	assertStatus(t, rr, http.StatusBadRequest)
	_ = assertErrorResponse(t, rr)
}

func TestGET_healthz(t *testing.T) {
	srv, _ := newTestServer()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.srv.Handler.ServeHTTP(rr, req)

	assertStatus(t, rr, http.StatusOK)
	if rr.Body.String() != "ok" {
		t.Fatalf("expected body 'ok', got %s", rr.Body.String())
	}
}

// ---- test helpers ----

func newTestServer() (*Server, *testutil.FakeFanService) {
	f := testutil.NewFakeFanService()
	deviceID := "default"
	return New(f, ":0", deviceID), f
}

func doJSONRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r *http.Request
	if body == nil {
		r = httptest.NewRequest(method, path, nil)
	} else {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json.Marshal: %v", err)
		}
		r = httptest.NewRequest(method, path, bytes.NewReader(b))
		r.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	return rr
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected %d, got %d body=%s", want, rr.Code, rr.Body.String())
	}
}

func decodeJSON[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("json.Unmarshal: %v body=%s", err, rr.Body.String())
	}
	return v
}

// Handy when you only care about error responses.
func assertErrorResponse(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decodeJSON[struct {
		Error string `json:"error"`
	}](t, rr)
	if resp.Error == "" {
		t.Fatalf("expected non-empty error field, got body=%s", rr.Body.String())
	}
	return resp.Error
}

func postValueEndpoint[T any](t *testing.T, srv *Server, path string, value T) *httptest.ResponseRecorder {
	t.Helper()
	return doJSONRequest(t, srv.srv.Handler, http.MethodPost, path, struct {
		Value T `json:"value"`
	}{Value: value})
}
