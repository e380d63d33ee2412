package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/seantiz/wayfarer/internal/model"
	"github.com/seantiz/wayfarer/internal/trip"
)

func (s *Server) tripRoutes(r chi.Router) {
	r.Post("/create", handle(s, engineTrip, "create", s.createTrip))
	r.Post("/update", handle(s, engineTrip, "update", s.updateTrip))
	r.Post("/finalize", handle(s, engineTrip, "finalize", s.finalizeTrip))
	r.Post("/delete", handle(s, engineTrip, "delete", s.deleteTrip))
	r.Post("/addParticipant", handle(s, engineTrip, "addParticipant", s.addParticipant))
	r.Post("/updateParticipant", handle(s, engineTrip, "updateParticipant", s.updateParticipant))
	r.Post("/removeParticipant", handle(s, engineTrip, "removeParticipant", s.removeParticipant))
	r.Post("/removeSelf", handle(s, engineTrip, "removeSelf", s.removeSelf))
	r.Post("/_getTripById", handle(s, engineTrip, "_getTripById", s.getTrip))
	r.Post("/_getTripsByUser", handle(s, engineTrip, "_getTripsByUser", s.getTripsByUser))
	r.Post("/_getParticipantsInTrip", handle(s, engineTrip, "_getParticipantsInTrip", s.getParticipants))
}

// date accepts either a calendar date or an RFC 3339 timestamp.
type date struct {
	time.Time
}

func (d *date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

type dateRange struct {
	Start date `json:"start"`
	End   date `json:"end"`
}

type tripRequest struct {
	Owner           string          `json:"owner"`
	User            string          `json:"user"`
	TripID          string          `json:"tripId"`
	Name            string          `json:"name"`
	Destination     string          `json:"destination"`
	DateRange       dateRange       `json:"dateRange"`
	Finalized       bool            `json:"finalized"`
	ParticipantUser string          `json:"participantUser"`
	Budget          decimal.Decimal `json:"budget"`
}

func (req *tripRequest) details() trip.Details {
	return trip.Details{
		Name:        req.Name,
		Destination: req.Destination,
		Start:       req.DateRange.Start.Time,
		End:         req.DateRange.End.Time,
	}
}

type tripResponse struct {
	Trip *model.Trip `json:"trip"`
}

func (s *Server) createTrip(r *http.Request, req *tripRequest) (any, error) {
	if err := authorize(r, req.Owner); err != nil {
		return nil, err
	}
	t, err := s.svc.Trips.Create(r.Context(), req.Owner, req.details())
	if err != nil {
		return nil, err
	}
	return tripResponse{Trip: t}, nil
}

func (s *Server) updateTrip(r *http.Request, req *tripRequest) (any, error) {
	if err := authorize(r, req.Owner); err != nil {
		return nil, err
	}
	t, err := s.svc.Trips.Update(r.Context(), req.Owner, req.TripID, req.details())
	if err != nil {
		return nil, err
	}
	return tripResponse{Trip: t}, nil
}

func (s *Server) finalizeTrip(r *http.Request, req *tripRequest) (any, error) {
	if err := authorize(r, req.Owner); err != nil {
		return nil, err
	}
	t, err := s.svc.Trips.Finalize(r.Context(), req.Owner, req.TripID, req.Finalized)
	if err != nil {
		return nil, err
	}
	return tripResponse{Trip: t}, nil
}

func (s *Server) deleteTrip(r *http.Request, req *tripRequest) (any, error) {
	if err := authorize(r, req.Owner); err != nil {
		return nil, err
	}
	if err := s.svc.Trips.Delete(r.Context(), req.Owner, req.TripID); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

func (s *Server) addParticipant(r *http.Request, req *tripRequest) (any, error) {
	if err := authorize(r, req.Owner); err != nil {
		return nil, err
	}
	t, err := s.svc.Trips.AddParticipant(r.Context(), req.Owner, req.TripID, req.ParticipantUser, req.Budget)
	if err != nil {
		return nil, err
	}
	return tripResponse{Trip: t}, nil
}

func (s *Server) updateParticipant(r *http.Request, req *tripRequest) (any, error) {
	if err := authorize(r, req.Owner); err != nil {
		return nil, err
	}
	t, err := s.svc.Trips.UpdateParticipant(r.Context(), req.Owner, req.TripID, req.ParticipantUser, req.Budget)
	if err != nil {
		return nil, err
	}
	return tripResponse{Trip: t}, nil
}

func (s *Server) removeParticipant(r *http.Request, req *tripRequest) (any, error) {
	if err := authorize(r, req.Owner); err != nil {
		return nil, err
	}
	t, err := s.svc.Trips.RemoveParticipant(r.Context(), req.Owner, req.TripID, req.ParticipantUser)
	if err != nil {
		return nil, err
	}
	return tripResponse{Trip: t}, nil
}

func (s *Server) removeSelf(r *http.Request, req *tripRequest) (any, error) {
	if err := authorize(r, req.User); err != nil {
		return nil, err
	}
	if err := s.svc.Trips.RemoveSelf(r.Context(), req.User, req.TripID); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

func (s *Server) getTrip(r *http.Request, req *tripRequest) (any, error) {
	t, err := s.svc.Trips.Get(r.Context(), req.TripID)
	if err != nil {
		return nil, err
	}
	return tripResponse{Trip: t}, nil
}

func (s *Server) getTripsByUser(r *http.Request, req *tripRequest) (any, error) {
	trips, err := s.svc.Trips.ListByOwner(r.Context(), req.Owner)
	if err != nil {
		return nil, err
	}
	if trips == nil {
		trips = []*model.Trip{}
	}
	return map[string][]*model.Trip{"trips": trips}, nil
}

func (s *Server) getParticipants(r *http.Request, req *tripRequest) (any, error) {
	ps, err := s.svc.Trips.Participants(r.Context(), req.TripID)
	if err != nil {
		return nil, err
	}
	if ps == nil {
		ps = []model.Participant{}
	}
	return map[string][]model.Participant{"participants": ps}, nil
}
