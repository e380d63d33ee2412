package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/wayfarer/internal/model"
)

func (s *Server) pollRoutes(r chi.Router) {
	r.Post("/create", handle(s, engineTally, "create", s.createPoll))
	r.Post("/addOption", handle(s, engineTally, "addOption", s.addOption))
	r.Post("/removeOption", handle(s, engineTally, "removeOption", s.removeOption))
	r.Post("/addUser", handle(s, engineTally, "addUser", s.addPollUser))
	r.Post("/removeUser", handle(s, engineTally, "removeUser", s.removePollUser))
	r.Post("/addVote", handle(s, engineTally, "addVote", s.addVote))
	r.Post("/updateVote", handle(s, engineTally, "updateVote", s.updateVote))
	r.Post("/close", handle(s, engineTally, "close", s.closePoll))
	r.Post("/getResult", handle(s, engineTally, "getResult", s.getResult))
	r.Post("/_getPoll", handle(s, engineTally, "_getPoll", s.getPoll))
	r.Post("/_getVotesForPoll", handle(s, engineTally, "_getVotesForPoll", s.getVotesForPoll))
	r.Post("/_getUserVote", handle(s, engineTally, "_getUserVote", s.getUserVote))
	r.Post("/_getTally", handle(s, engineTally, "_getTally", s.getTally))
	r.Post("/_getPollsForUser", handle(s, engineTally, "_getPollsForUser", s.getPollsForUser))
}

type pollRequest struct {
	User         string `json:"user"`
	ActingUser   string `json:"actingUser"`
	Name         string `json:"name"`
	Poll         string `json:"poll"`
	Label        string `json:"label"`
	OptionID     string `json:"optionId"`
	NewOption    string `json:"newOption"`
	UserToAdd    string `json:"userToAdd"`
	UserToRemove string `json:"userToRemove"`
}

type pollResponse struct {
	Poll *model.Poll `json:"poll"`
}

type optionResponse struct {
	Option *model.Option `json:"option"`
}

func (s *Server) createPoll(r *http.Request, req *pollRequest) (any, error) {
	if err := authorize(r, req.User); err != nil {
		return nil, err
	}
	p, err := s.svc.Tally.Create(r.Context(), req.User, req.Name)
	if err != nil {
		return nil, err
	}
	return pollResponse{Poll: p}, nil
}

func (s *Server) addOption(r *http.Request, req *pollRequest) (any, error) {
	if err := authorize(r, req.ActingUser); err != nil {
		return nil, err
	}
	opt, err := s.svc.Tally.AddOption(r.Context(), req.ActingUser, req.Poll, req.Label)
	if err != nil {
		return nil, err
	}
	return optionResponse{Option: opt}, nil
}

func (s *Server) removeOption(r *http.Request, req *pollRequest) (any, error) {
	if err := authorize(r, req.ActingUser); err != nil {
		return nil, err
	}
	if err := s.svc.Tally.RemoveOption(r.Context(), req.ActingUser, req.Poll, req.OptionID); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

func (s *Server) addPollUser(r *http.Request, req *pollRequest) (any, error) {
	if err := authorize(r, req.ActingUser); err != nil {
		return nil, err
	}
	if err := s.svc.Tally.AddUser(r.Context(), req.ActingUser, req.Poll, req.UserToAdd); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

func (s *Server) removePollUser(r *http.Request, req *pollRequest) (any, error) {
	if err := authorize(r, req.ActingUser); err != nil {
		return nil, err
	}
	if err := s.svc.Tally.RemoveUser(r.Context(), req.ActingUser, req.Poll, req.UserToRemove); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

func (s *Server) addVote(r *http.Request, req *pollRequest) (any, error) {
	if err := authorize(r, req.User); err != nil {
		return nil, err
	}
	if err := s.svc.Tally.AddVote(r.Context(), req.User, req.OptionID, req.Poll); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

func (s *Server) updateVote(r *http.Request, req *pollRequest) (any, error) {
	if err := authorize(r, req.User); err != nil {
		return nil, err
	}
	if err := s.svc.Tally.UpdateVote(r.Context(), req.User, req.NewOption, req.Poll); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

func (s *Server) closePoll(r *http.Request, req *pollRequest) (any, error) {
	if err := authorize(r, req.ActingUser); err != nil {
		return nil, err
	}
	p, err := s.svc.Tally.Close(r.Context(), req.ActingUser, req.Poll)
	if err != nil {
		return nil, err
	}
	return pollResponse{Poll: p}, nil
}

// getResult reports a poll without votes as a null option.
func (s *Server) getResult(r *http.Request, req *pollRequest) (any, error) {
	opt, err := s.svc.Tally.Result(r.Context(), req.Poll)
	if err != nil {
		return nil, err
	}
	return optionResponse{Option: opt}, nil
}

func (s *Server) getPoll(r *http.Request, req *pollRequest) (any, error) {
	p, err := s.svc.Tally.Get(r.Context(), req.Poll)
	if err != nil {
		return nil, err
	}
	return pollResponse{Poll: p}, nil
}

func (s *Server) getVotesForPoll(r *http.Request, req *pollRequest) (any, error) {
	votes, err := s.svc.Tally.Votes(r.Context(), req.Poll)
	if err != nil {
		return nil, err
	}
	if votes == nil {
		votes = map[string]string{}
	}
	return map[string]map[string]string{"votes": votes}, nil
}

func (s *Server) getUserVote(r *http.Request, req *pollRequest) (any, error) {
	opt, err := s.svc.Tally.UserVote(r.Context(), req.User, req.Poll)
	if err != nil {
		return nil, err
	}
	return optionResponse{Option: opt}, nil
}

func (s *Server) getTally(r *http.Request, req *pollRequest) (any, error) {
	counts, err := s.svc.Tally.Counts(r.Context(), req.Poll)
	if err != nil {
		return nil, err
	}
	if counts == nil {
		counts = []model.OptionCount{}
	}
	return map[string][]model.OptionCount{"counts": counts}, nil
}

func (s *Server) getPollsForUser(r *http.Request, req *pollRequest) (any, error) {
	polls, err := s.svc.Tally.ListForUser(r.Context(), req.User)
	if err != nil {
		return nil, err
	}
	if polls == nil {
		polls = []*model.Poll{}
	}
	return map[string][]*model.Poll{"polls": polls}, nil
}
