package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/seantiz/wayfarer/internal/model"
)

func (s *Server) itineraryRoutes(r chi.Router) {
	r.Post("/create", handle(s, engineItinerary, "create", s.createItinerary))
	r.Post("/addEvent", handle(s, engineItinerary, "addEvent", s.addEvent))
	r.Post("/updateEvent", handle(s, engineItinerary, "updateEvent", s.updateEvent))
	r.Post("/approveEvent", handle(s, engineItinerary, "approveEvent", s.approveEvent))
	r.Post("/removeEvent", handle(s, engineItinerary, "removeEvent", s.removeEvent))
	r.Post("/finalizeItinerary", handle(s, engineItinerary, "finalizeItinerary", s.finalizeItinerary))
	r.Post("/_getItineraryByTrip", handle(s, engineItinerary, "_getItineraryByTrip", s.getItineraryByTrip))
	r.Post("/_getItineraryById", handle(s, engineItinerary, "_getItineraryById", s.getItinerary))
	r.Post("/_getAllEventsForItinerary", handle(s, engineItinerary, "_getAllEventsForItinerary", s.getAllEvents))
	r.Post("/_getApprovedEventsForItinerary", handle(s, engineItinerary, "_getApprovedEventsForItinerary", s.getApprovedEvents))
	r.Post("/_getEventById", handle(s, engineItinerary, "_getEventById", s.getEvent))
}

type itineraryRequest struct {
	Trip      string          `json:"trip"`
	Itinerary string          `json:"itinerary"`
	Event     string          `json:"event"`
	Name      string          `json:"name"`
	Cost      decimal.Decimal `json:"cost"`
	Approved  bool            `json:"approved"`
	Finalized bool            `json:"finalized"`
}

type itineraryResponse struct {
	Itinerary *model.Itinerary `json:"itinerary"`
}

type eventResponse struct {
	Event *model.Event `json:"event"`
}

type eventsResponse struct {
	Events []*model.Event `json:"events"`
}

func (s *Server) createItinerary(r *http.Request, req *itineraryRequest) (any, error) {
	it, err := s.svc.Itinerary.Create(r.Context(), req.Trip)
	if err != nil {
		return nil, err
	}
	return itineraryResponse{Itinerary: it}, nil
}

func (s *Server) addEvent(r *http.Request, req *itineraryRequest) (any, error) {
	ev, err := s.svc.Itinerary.AddEvent(r.Context(), req.Name, req.Cost, req.Itinerary)
	if err != nil {
		return nil, err
	}
	return eventResponse{Event: ev}, nil
}

func (s *Server) updateEvent(r *http.Request, req *itineraryRequest) (any, error) {
	ev, err := s.svc.Itinerary.UpdateEvent(r.Context(), req.Event, req.Name, req.Cost, req.Itinerary)
	if err != nil {
		return nil, err
	}
	return eventResponse{Event: ev}, nil
}

func (s *Server) approveEvent(r *http.Request, req *itineraryRequest) (any, error) {
	ev, err := s.svc.Itinerary.ApproveEvent(r.Context(), req.Event, req.Approved, req.Itinerary)
	if err != nil {
		return nil, err
	}
	return eventResponse{Event: ev}, nil
}

func (s *Server) removeEvent(r *http.Request, req *itineraryRequest) (any, error) {
	if err := s.svc.Itinerary.RemoveEvent(r.Context(), req.Event, req.Itinerary); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

func (s *Server) finalizeItinerary(r *http.Request, req *itineraryRequest) (any, error) {
	it, err := s.svc.Itinerary.Finalize(r.Context(), req.Itinerary, req.Finalized)
	if err != nil {
		return nil, err
	}
	return itineraryResponse{Itinerary: it}, nil
}

func (s *Server) getItineraryByTrip(r *http.Request, req *itineraryRequest) (any, error) {
	it, err := s.svc.Itinerary.GetByTrip(r.Context(), req.Trip)
	if err != nil {
		return nil, err
	}
	return itineraryResponse{Itinerary: it}, nil
}

func (s *Server) getItinerary(r *http.Request, req *itineraryRequest) (any, error) {
	it, err := s.svc.Itinerary.Get(r.Context(), req.Itinerary)
	if err != nil {
		return nil, err
	}
	return itineraryResponse{Itinerary: it}, nil
}

func (s *Server) getAllEvents(r *http.Request, req *itineraryRequest) (any, error) {
	events, err := s.svc.Itinerary.Events(r.Context(), req.Itinerary)
	return eventList(events, err)
}

func (s *Server) getApprovedEvents(r *http.Request, req *itineraryRequest) (any, error) {
	events, err := s.svc.Itinerary.ApprovedEvents(r.Context(), req.Itinerary)
	return eventList(events, err)
}

func eventList(events []*model.Event, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []*model.Event{}
	}
	return eventsResponse{Events: events}, nil
}

func (s *Server) getEvent(r *http.Request, req *itineraryRequest) (any, error) {
	ev, err := s.svc.Itinerary.GetEvent(r.Context(), req.Event)
	if err != nil {
		return nil, err
	}
	return eventResponse{Event: ev}, nil
}
