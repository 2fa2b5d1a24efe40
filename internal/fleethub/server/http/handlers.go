package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/autopeer-io/fleetsim/internal/fleethub/core/model"
	"github.com/autopeer-io/fleetsim/internal/fleethub/server/ws"
)

// handleListVehicles serves GET /api/vehicles?status=&limit=.
// An unknown status applies no filter. limit keeps the first n vehicles, or
// drops the last |n| when negative; a limit without leading digits is ignored.
func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	snap := s.fleet.Snapshot()

	vehicles := snap.Vehicles
	if st, ok := model.ParseStatus(r.URL.Query().Get("status")); ok {
		vehicles = snap.Filter(st)
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, ok := parseLimit(raw); ok {
			vehicles = truncate(vehicles, n)
		}
	}
	if vehicles == nil {
		vehicles = []model.Vehicle{}
	}

	respondWithJSON(w, http.StatusOK, listResponse{
		Success:   true,
		Data:      vehicles,
		Total:     len(vehicles),
		Timestamp: s.now(),
	})
}

// handleGetVehicle serves GET /api/vehicles/{id}.
func (s *Server) handleGetVehicle(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	v, ok := s.fleet.Vehicle(id)
	if !ok {
		respondWithError(w, http.StatusNotFound, "Vehicle not found", fmt.Sprintf("Vehicle with ID %s does not exist", id))
		return
	}

	respondWithJSON(w, http.StatusOK, vehicleResponse{
		Success:   true,
		Data:      v,
		Timestamp: s.now(),
	})
}

// handleVehiclesByStatus serves GET /api/vehicles/status/{status}.
func (s *Server) handleVehiclesByStatus(w http.ResponseWriter, r *http.Request) {
	st, ok := model.ParseStatus(mux.Vars(r)["status"])
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid status",
			fmt.Sprintf("Status must be one of: %s", joinStatuses(", ")))
		return
	}

	vehicles := s.fleet.Snapshot().Filter(st)
	respondWithJSON(w, http.StatusOK, listResponse{
		Success:   true,
		Data:      vehicles,
		Total:     len(vehicles),
		Status:    st,
		Timestamp: s.now(),
	})
}

// handleStatistics serves GET /api/statistics.
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, statisticsResponse{
		Success: true,
		Data:    model.ComputeStatistics(s.fleet.Snapshot(), s.clock.Now()),
	})
}

// handleRoot upgrades WebSocket requests and sends browsers to the docs.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if s.stream != nil && ws.IsUpgrade(r) {
		s.stream.ServeHTTP(w, r)
		return
	}
	http.Redirect(w, r, "/api/docs", http.StatusFound)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusNotFound, errorResponse{
		Error:         "Route not found",
		Message:       "The requested endpoint does not exist",
		Documentation: "/api/docs",
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) now() model.Timestamp {
	return model.NewTimestamp(s.clock.Now())
}

func joinStatuses(sep string) string {
	statuses := model.Statuses()
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = st.String()
	}
	return strings.Join(names, sep)
}

// parseLimit reads the integer at the start of raw: optional leading space,
// an optional sign, then decimal digits or 0x-prefixed hex digits. Whatever
// follows the digits is ignored. Values out of int64 range saturate.
func parseLimit(raw string) (int64, bool) {
	s := strings.TrimLeft(raw, " \t\n\v\f\r")

	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	base, digits := 10, "0123456789"
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base, digits = 16, "0123456789abcdefABCDEF"
		s = s[2:]
	}

	end := 0
	for end < len(s) && strings.IndexByte(digits, s[end]) >= 0 {
		end++
	}
	if end == 0 {
		return 0, false
	}

	// Only a range error is possible here and it returns the saturated value.
	n, _ := strconv.ParseInt(s[:end], base, 64)
	if neg {
		n = -n
	}
	return n, true
}

// truncate keeps the first n vehicles; a negative n counts from the end.
func truncate(vehicles []model.Vehicle, n int64) []model.Vehicle {
	size := int64(len(vehicles))
	if n < 0 {
		n += size
	}
	return vehicles[:max(0, min(n, size))]
}
