package api

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/MikeSquared-Agency/drivescore/internal/hermes"
	"github.com/MikeSquared-Agency/drivescore/internal/session"
	"github.com/MikeSquared-Agency/drivescore/internal/speeding"
)

type speedingRequest struct {
	Seconds float64 `json:"seconds"`
}

type adjustRequest struct {
	Points int `json:"points"`
}

type sessionsResponse struct {
	Sessions []session.DrivingSession `json:"sessions"`
	Count    int                      `json:"count"`
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ctrl.CurrentState(r.Context())
	if err != nil {
		s.writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.ctrl.Sessions(r.Context())
	if err != nil {
		s.writeControllerError(w, err)
		return
	}
	if sessions == nil {
		sessions = []session.DrivingSession{}
	}
	writeJSON(w, http.StatusOK, sessionsResponse{Sessions: sessions, Count: len(sessions)})
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.StartSession(r.Context()); err != nil {
		s.writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "active"})
}

// endSession returns 200 for both kept and discarded drives; the body's
// "kept" field tells them apart.
func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	res, err := s.ctrl.EndSession(r.Context())
	if err != nil {
		s.writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) recordSpeeding(w http.ResponseWriter, r *http.Request) {
	var req speedingRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Seconds < 0 || math.IsNaN(req.Seconds) {
		writeError(w, http.StatusBadRequest, "seconds must be non-negative")
		return
	}
	if err := s.ctrl.RecordSpeeding(r.Context(), req.Seconds); err != nil {
		s.writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (s *Server) speedSample(w http.ResponseWriter, r *http.Request) {
	var req hermes.SpeedSampleEvent
	if !decode(w, r, &req) {
		return
	}
	if req.Timestamp == 0 {
		req.Timestamp = float64(s.now().UnixNano()) / 1e9
	}
	if err := s.ctrl.OnSpeedSample(r.Context(), req.Speed, req.Timestamp); err != nil {
		s.writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) locationSample(w http.ResponseWriter, r *http.Request) {
	var req hermes.LocationSampleEvent
	if !decode(w, r, &req) {
		return
	}
	if req.Timestamp == 0 {
		req.Timestamp = float64(s.now().UnixNano()) / 1e9
	}
	if err := s.ctrl.OnLocationSample(r.Context(), req.Latitude, req.Longitude, req.Timestamp); err != nil {
		s.writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) setSpeedLimit(w http.ResponseWriter, r *http.Request) {
	var req hermes.SpeedLimitEvent
	if !decode(w, r, &req) {
		return
	}
	limit := speeding.Limit{Speed: req.Speed, Unit: req.Unit}
	if err := s.ctrl.SetSpeedLimit(r.Context(), limit); err != nil {
		s.writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"limit_mph": limit.MPH()})
}

func (s *Server) adjustScore(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if !decode(w, r, &req) {
		return
	}
	st, err := s.ctrl.AdjustScore(r.Context(), req.Points)
	if err != nil {
		s.writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
