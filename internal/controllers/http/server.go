package httpctrl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/desingh-rajan/msi-fan-control/internal/ec"
	"github.com/desingh-rajan/msi-fan-control/internal/hostinfo"
	"github.com/desingh-rajan/msi-fan-control/internal/ports"
	"github.com/desingh-rajan/msi-fan-control/internal/supervisor"
)

type Server struct {
	svc      ports.FanControlService
	srv      *http.Server
	deviceID string
}

// New returns a runnable server.
func New(svc ports.FanControlService, addr string, deviceID string) *Server {
	mux := http.NewServeMux()
	s := &Server{svc: svc, deviceID: deviceID}

	// Read
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/hardware", s.handleHardware)

	// Connection lifecycle
	mux.HandleFunc("POST /v1/connect", s.handleConnect)
	mux.HandleFunc("POST /v1/disconnect", s.handleDisconnect)

	// Write: one endpoint per control
	mux.HandleFunc("POST /v1/cooler_boost", s.handlePostCoolerBoost)
	mux.HandleFunc("POST /v1/fan_speed", s.handlePostFanSpeed)
	mux.HandleFunc("POST /v1/fan_mode", s.handlePostFanMode)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// ---- DTOs ----

type statusDTO struct {
	DeviceID    string `json:"device_id"`
	CPUTemp     uint8  `json:"cpu_temp"`
	GPUTemp     uint8  `json:"gpu_temp"`
	Fan1RPM     uint32 `json:"fan1_rpm"`
	Fan2RPM     uint32 `json:"fan2_rpm"`
	CoolerBoost bool   `json:"cooler_boost"`
	FanMode     string `json:"fan_mode"`
}

func (s *Server) toDTO(st ec.Status) statusDTO {
	return statusDTO{
		DeviceID:    s.deviceID,
		CPUTemp:     st.CPUTemp,
		GPUTemp:     st.GPUTemp,
		Fan1RPM:     st.Fan1RPM,
		Fan2RPM:     st.Fan2RPM,
		CoolerBoost: st.CoolerBoost,
		FanMode:     st.FanMode.String(),
	}
}

type hardwareDTO struct {
	hostinfo.Hardware
	hostinfo.Usage
}

// ---- Handlers ----

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st, err := s.svc.Status()
	if err != nil {
		writeErr(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.toDTO(st))
}

func (s *Server) handleConnect(w http.ResponseWriter, _ *http.Request) {
	st, err := s.svc.Connect()
	if err != nil {
		writeErr(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.toDTO(st))
}

func (s *Server) handleDisconnect(w http.ResponseWriter, _ *http.Request) {
	s.svc.Disconnect()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Sidecar stopped"})
}

func (s *Server) handleHardware(w http.ResponseWriter, _ *http.Request) {
	dto := hardwareDTO{Hardware: hostinfo.ReadHardware()}
	if usage, err := hostinfo.ReadUsage(); err == nil {
		dto.Usage = usage
	}
	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handlePostCoolerBoost(w http.ResponseWriter, r *http.Request) {
	// body: {"value": true}
	postValue(w, r, func(v bool) (string, error) {
		return s.svc.SetCoolerBoost(v)
	})
}

func (s *Server) handlePostFanSpeed(w http.ResponseWriter, r *http.Request) {
	// body: {"value": 50}
	postValue(w, r, func(v uint8) (string, error) {
		return s.svc.SetFanSpeed(v)
	})
}

func (s *Server) handlePostFanMode(w http.ResponseWriter, r *http.Request) {
	// body: {"value": "silent"}
	postValue(w, r, func(v string) (string, error) {
		if _, err := ec.ParseFanMode(v); err != nil {
			return "", err
		}
		return s.svc.SetFanMode(v)
	})
}

// ---- generic helpers ----

func postValue[T any](w http.ResponseWriter, r *http.Request, apply func(T) (string, error)) {
	dec := json.NewDecoder(r.Body)
	var req struct {
		Value *T `json:"value"`
	}
	if err := dec.Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Value == nil {
		writeErr(w, http.StatusBadRequest, "missing field 'value'")
		return
	}

	msg, err := apply(*req.Value)
	if err != nil {
		writeErr(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// statusFor maps supervisor failures onto HTTP codes; anything else is the
// caller's fault.
func statusFor(err error) int {
	switch {
	case errors.Is(err, supervisor.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, supervisor.ErrNotConnected):
		return http.StatusServiceUnavailable
	case errors.Is(err, supervisor.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
