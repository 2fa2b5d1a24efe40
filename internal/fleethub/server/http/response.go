package http

import (
	"encoding/json"
	"net/http"

	"github.com/autopeer-io/fleetsim/internal/fleethub/core/model"
	"github.com/autopeer-io/fleetsim/pkg/log"
)

type listResponse struct {
	Success   bool            `json:"success"`
	Data      []model.Vehicle `json:"data"`
	Total     int             `json:"total"`
	Status    model.Status    `json:"status,omitempty"`
	Timestamp model.Timestamp `json:"timestamp"`
}

type vehicleResponse struct {
	Success   bool            `json:"success"`
	Data      model.Vehicle   `json:"data"`
	Timestamp model.Timestamp `json:"timestamp"`
}

type statisticsResponse struct {
	Success bool             `json:"success"`
	Data    model.Statistics `json:"data"`
}

type errorResponse struct {
	Success       bool   `json:"success"`
	Error         string `json:"error"`
	Message       string `json:"message"`
	Documentation string `json:"documentation,omitempty"`
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error(err, "Failed to encode response")
		code = http.StatusInternalServerError
		response, _ = json.Marshal(errorResponse{Error: "Internal server error", Message: err.Error()})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// respondWithError sends the structured failure shape
func respondWithError(w http.ResponseWriter, code int, title, message string) {
	respondWithJSON(w, code, errorResponse{Error: title, Message: message})
}
