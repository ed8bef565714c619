package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ndewijer/portfolio-analytics/internal/api/request"
	"github.com/ndewijer/portfolio-analytics/internal/model"
	"github.com/ndewijer/portfolio-analytics/internal/repository"
)

// CashService manages separately tracked deposits and manual cash balances.
type CashService struct {
	cashRepo *repository.CashRepository
	now      func() time.Time
}

// NewCashService creates a new CashService.
func NewCashService(cashRepo *repository.CashRepository) *CashService {
	return &CashService{cashRepo: cashRepo, now: time.Now}
}

// SetBalance records the manual cash balance of one portfolio. The balance
// replaces ledger cash for snapshots dated on or after the day it was set.
func (s *CashService) SetBalance(ctx context.Context, ownerID string, req request.SetCashBalanceRequest) (*model.CashBalance, error) {
	b := &model.CashBalance{
		OwnerID:   ownerID,
		Portfolio: strings.TrimSpace(req.Portfolio),
		Balance:   req.Balance,
		Currency:  strings.ToUpper(strings.TrimSpace(req.Currency)),
		UpdatedAt: s.now().UTC(),
	}
	if err := s.cashRepo.UpsertBalance(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// GetBalances returns the manual cash balances of an owner.
func (s *CashService) GetBalances(ownerID string) ([]model.CashBalance, error) {
	return s.cashRepo.GetBalances(ownerID)
}

// CreateDeposit records a deposit, or a withdrawal when the amount is negative.
func (s *CashService) CreateDeposit(ctx context.Context, ownerID string, req request.CreateDepositRequest) (*model.CashDeposit, error) {
	date, err := time.Parse(request.DateLayout, req.Date)
	if err != nil {
		return nil, err
	}

	include := true
	if req.IncludeInAnalysis != nil {
		include = *req.IncludeInAnalysis
	}

	d := &model.CashDeposit{
		ID:                uuid.New().String(),
		OwnerID:           ownerID,
		Portfolio:         strings.TrimSpace(req.Portfolio),
		Date:              date,
		Amount:            req.Amount,
		Currency:          strings.ToUpper(strings.TrimSpace(req.Currency)),
		BankName:          req.BankName,
		IncludeInAnalysis: include,
		CreatedAt:         s.now().UTC(),
	}
	if err := s.cashRepo.InsertDeposit(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}
