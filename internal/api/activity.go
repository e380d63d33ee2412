package api

import (
	"fmt"
	"net/http"

	"github.com/seantiz/wayfarer/internal/model"
)

type activityRequest struct {
	EntityID string `json:"entityId"`
}

func (s *Server) getActivity(r *http.Request, req *activityRequest) (any, error) {
	list, err := s.svc.Store.ListActivity(r.Context(), req.EntityID)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	if list == nil {
		list = []*model.Activity{}
	}
	return map[string][]*model.Activity{"activity": list}, nil
}
