package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/seantiz/wayfarer/internal/errs"
	"github.com/seantiz/wayfarer/internal/model"
)

func (s *Server) expenseRoutes(r chi.Router) {
	r.Post("/create", handle(s, engineLedger, "create", s.createExpense))
	r.Post("/remove", handle(s, engineLedger, "remove", s.removeExpense))
	r.Post("/updateCost", handle(s, engineLedger, "updateCost", s.updateCost))
	r.Post("/addContribution", handle(s, engineLedger, "addContribution", s.addContribution))
	r.Post("/updateContribution", handle(s, engineLedger, "updateContribution", s.updateContribution))
	r.Post("/_getExpense", handle(s, engineLedger, "_getExpense", s.getExpense))
	r.Post("/_getExpensesByItem", handle(s, engineLedger, "_getExpensesByItem", s.getExpensesByItem))
	r.Post("/_getTotalContributions", handle(s, engineLedger, "_getTotalContributions", s.getTotalContributions))
	r.Post("/_getUserContribution", handle(s, engineLedger, "_getUserContribution", s.getUserContribution))
	r.Post("/_listExpenses", handle(s, engineLedger, "_listExpenses", s.listExpenses))
}

type expenseRequest struct {
	ExpenseID string          `json:"expenseId"`
	Item      string          `json:"item"`
	Cost      decimal.Decimal `json:"cost"`
	NewCost   decimal.Decimal `json:"newCost"`
}

type contributionRequest struct {
	UserID    string          `json:"userId"`
	ExpenseID string          `json:"expenseId"`
	Amount    decimal.Decimal `json:"amount"`
	NewAmount decimal.Decimal `json:"newAmount"`
}

type expenseResponse struct {
	Expense *model.Expense `json:"expense"`
}

type expensesResponse struct {
	Expenses []*model.Expense `json:"expenses"`
}

func (s *Server) createExpense(r *http.Request, req *expenseRequest) (any, error) {
	e, err := s.svc.Ledger.Create(r.Context(), req.Item, req.Cost)
	if err != nil {
		return nil, err
	}
	return expenseResponse{Expense: e}, nil
}

func (s *Server) removeExpense(r *http.Request, req *expenseRequest) (any, error) {
	if err := s.svc.Ledger.Remove(r.Context(), req.ExpenseID); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

func (s *Server) updateCost(r *http.Request, req *expenseRequest) (any, error) {
	e, err := s.svc.Ledger.UpdateCost(r.Context(), req.ExpenseID, req.NewCost)
	if err != nil {
		return nil, err
	}
	return expenseResponse{Expense: e}, nil
}

func (s *Server) addContribution(r *http.Request, req *contributionRequest) (any, error) {
	if err := authorize(r, req.UserID); err != nil {
		return nil, err
	}
	e, err := s.svc.Ledger.AddContribution(r.Context(), req.UserID, req.ExpenseID, req.Amount)
	if err != nil {
		return nil, err
	}
	return expenseResponse{Expense: e}, nil
}

func (s *Server) updateContribution(r *http.Request, req *contributionRequest) (any, error) {
	if err := authorize(r, req.UserID); err != nil {
		return nil, err
	}
	e, err := s.svc.Ledger.UpdateContribution(r.Context(), req.UserID, req.ExpenseID, req.NewAmount)
	if err != nil {
		return nil, err
	}
	return expenseResponse{Expense: e}, nil
}

func (s *Server) getExpense(r *http.Request, req *expenseRequest) (any, error) {
	e, err := s.svc.Ledger.Get(r.Context(), req.ExpenseID)
	if err != nil {
		return nil, err
	}
	return expenseResponse{Expense: e}, nil
}

// getExpensesByItem reports an unknown item as an empty list.
func (s *Server) getExpensesByItem(r *http.Request, req *expenseRequest) (any, error) {
	e, err := s.svc.Ledger.GetByItem(r.Context(), req.Item)
	if errors.Is(err, errs.ErrNotFound) {
		return expensesResponse{Expenses: []*model.Expense{}}, nil
	}
	if err != nil {
		return nil, err
	}
	return expensesResponse{Expenses: []*model.Expense{e}}, nil
}

func (s *Server) getTotalContributions(r *http.Request, req *expenseRequest) (any, error) {
	total, err := s.svc.Ledger.Total(r.Context(), req.ExpenseID)
	if err != nil {
		return nil, err
	}
	return map[string]decimal.Decimal{"total": total}, nil
}

func (s *Server) getUserContribution(r *http.Request, req *contributionRequest) (any, error) {
	amount, err := s.svc.Ledger.UserContribution(r.Context(), req.UserID, req.ExpenseID)
	if err != nil {
		return nil, err
	}
	return map[string]decimal.Decimal{"amount": amount}, nil
}

func (s *Server) listExpenses(r *http.Request, _ *struct{}) (any, error) {
	list, err := s.svc.Ledger.List(r.Context())
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*model.Expense{}
	}
	return expensesResponse{Expenses: list}, nil
}
