package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ndewijer/portfolio-analytics/internal/api/request"
	"github.com/ndewijer/portfolio-analytics/internal/model"
	"github.com/ndewijer/portfolio-analytics/internal/repository"
)

// TransactionService handles ledger row operations.
type TransactionService struct {
	transactionRepo *repository.TransactionRepository
}

// NewTransactionService creates a new TransactionService with the provided repository dependencies.
func NewTransactionService(
	transactionRepo *repository.TransactionRepository,
) *TransactionService {
	return &TransactionService{
		transactionRepo: transactionRepo,
	}
}

// GetTransactions retrieves every transaction of an owner in ledger order.
func (s *TransactionService) GetTransactions(ownerID string) ([]model.Transaction, error) {
	return s.transactionRepo.GetTransactions(ownerID, time.Time{})
}

// GetTransaction retrieves a single transaction by its ID.
func (s *TransactionService) GetTransaction(transactionID string) (model.Transaction, error) {
	return s.transactionRepo.GetTransaction(transactionID)
}

// CreateTransaction records a validated transaction request.
// Symbols and currencies are stored upper-case; an empty category means portfolio.
func (s *TransactionService) CreateTransaction(ctx context.Context, req request.CreateTransactionRequest) (*model.Transaction, error) {
	transactionDate, err := time.Parse(request.DateLayout, req.Date)
	if err != nil {
		return nil, err
	}

	category := req.Category
	if category == "" {
		category = model.CategoryPortfolio
	}

	transaction := &model.Transaction{
		ID:           uuid.New().String(),
		OwnerID:      req.OwnerID,
		Portfolio:    strings.TrimSpace(req.Portfolio),
		Symbol:       strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Date:         transactionDate,
		Type:         model.TransactionType(strings.TrimSpace(req.Type)),
		Quantity:     req.Quantity,
		Price:        req.Price,
		Amount:       req.Amount,
		Fees:         req.Fees,
		Currency:     strings.ToUpper(strings.TrimSpace(req.Currency)),
		BonusShares:  req.BonusShares,
		CashDividend: req.CashDividend,
		Category:     category,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.transactionRepo.InsertTransaction(ctx, transaction); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	return transaction, nil
}

// DeleteTransaction removes a transaction. Snapshots are not rebuilt here; the
// caller rebuilds the affected range.
// Returns ErrTransactionNotFound if the transaction does not exist.
func (s *TransactionService) DeleteTransaction(ctx context.Context, transactionID string) error {
	return s.transactionRepo.DeleteTransaction(ctx, transactionID)
}
