// Package health answers the liveness and readiness probes mounted on the
// control plane.
//
// Liveness only proves the process still serves HTTP. Readiness runs the
// registered probes; for the bot that means the Discord gateway is connected
// and the persistence backend answers, so a 503 tells an orchestrator to
// hold traffic until attachment-capable state is back.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// probeTimeout bounds a single readiness probe.
const probeTimeout = 5 * time.Second

// Check is one readiness probe. Probe returns nil when the dependency can
// serve; it must honor ctx cancellation.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Handler serves the probe endpoints. The check list is fixed at
// construction; the handler is safe for concurrent use.
type Handler struct {
	checks []Check
}

// New builds a Handler over the given checks, evaluated in order on every
// readiness request.
func New(checks ...Check) *Handler {
	return &Handler{checks: append([]Check(nil), checks...)}
}

// Healthz reports liveness. Reaching the handler is the proof.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusOK, "ok", nil)
}

// Readyz runs every probe under its own timeout and reports 503 with the
// per-check outcomes when any of them refuses.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	outcomes := make(map[string]string, len(h.checks))
	ready := true

	for _, c := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		err := c.Probe(ctx)
		cancel()
		if err != nil {
			outcomes[c.Name] = err.Error()
			ready = false
			continue
		}
		outcomes[c.Name] = "ok"
	}

	if !ready {
		writeStatus(w, http.StatusServiceUnavailable, "unready", outcomes)
		return
	}
	writeStatus(w, http.StatusOK, "ready", outcomes)
}

func writeStatus(w http.ResponseWriter, code int, status string, checks map[string]string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks,omitempty"`
	}{Status: status, Checks: checks})
}
