package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/autopeer-io/fleetsim/internal/fleethub/core/model"
)

const (
	apiTitle       = "Fleet Tracking API"
	apiVersion     = "1.0.0"
	apiDescription = "API for fleet tracking case study"
)

type websocketDocs struct {
	URL         string            `json:"url"`
	Description string            `json:"description"`
	Events      map[string]string `json:"events"`
}

type apiDocs struct {
	Title           string            `json:"title"`
	Version         string            `json:"version"`
	Description     string            `json:"description"`
	BaseURL         string            `json:"baseUrl"`
	Endpoints       map[string]string `json:"endpoints"`
	Websocket       websocketDocs     `json:"websocket"`
	VehicleStatuses []model.Status    `json:"vehicle_statuses"`
}

// handleDocs serves GET /api/docs, the endpoint catalogue.
func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	base := s.baseURL(r)
	updates := fmt.Sprintf("Sent every %s with updated vehicle positions", model.DescribeInterval(s.updateInterval))
	respondWithJSON(w, http.StatusOK, apiDocs{
		Title:       apiTitle,
		Version:     apiVersion,
		Description: apiDescription,
		BaseURL:     base,
		Endpoints: map[string]string{
			"GET /api/vehicles":                "Get all vehicles (supports ?status and ?limit query params)",
			"GET /api/vehicles/:id":            "Get vehicle by ID",
			"GET /api/vehicles/status/:status": fmt.Sprintf("Get vehicles by status (%s)", joinStatuses(", ")),
			"GET /api/statistics":              "Get fleet statistics",
			"GET /api/docs":                    "This documentation",
		},
		Websocket: websocketDocs{
			URL:         wsURL(base),
			Description: "WebSocket endpoint for real-time vehicle updates",
			Events: map[string]string{
				string(model.MessageInitialData):   "Sent when client first connects",
				string(model.MessageVehicleUpdate): updates,
			},
		},
		VehicleStatuses: model.Statuses(),
	})
}

// baseURL prefers the configured public URL, then what the request says
// about itself.
func (s *Server) baseURL(r *http.Request) string {
	if s.options.PublicURL != "" {
		return strings.TrimRight(s.options.PublicURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + r.Host
}

func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}
