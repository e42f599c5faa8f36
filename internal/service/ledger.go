package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/client-portal-go/internal/domain"
	"github.com/boddenberg/client-portal-go/internal/port"
)

var ledgerTracer = otel.Tracer("service/ledger")

// LedgerService owns a client's credit balance and its transaction history.
// Balances have no floor or ceiling.
type LedgerService struct {
	store  port.Store
	now    func() time.Time
	logger *zap.Logger
}

func NewLedgerService(store port.Store, logger *zap.Logger) *LedgerService {
	return &LedgerService{store: store, now: time.Now, logger: logger}
}

// ============================================================
// Purchase: POST /api/clients/credits/purchase
// ============================================================

func (s *LedgerService) PurchaseCredits(ctx context.Context, clientID string, req *domain.PurchaseCreditsRequest) (*domain.PurchaseCreditsResponse, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.PurchaseCredits")
	defer span.End()

	if req.Amount <= 0 {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be positive"}
	}

	client, err := s.adjust(ctx, clientID, req.Amount)
	if err != nil {
		return nil, err
	}

	s.logger.Info("credits purchased",
		zap.String("client_id", clientID),
		zap.Int64("amount", req.Amount),
		zap.Int64("credits", client.Credits),
	)
	return &domain.PurchaseCreditsResponse{
		Message: "Credits purchased successfully",
		Credits: client.Credits,
	}, nil
}

// ============================================================
// Transactions: /api/transactions/transactions
// ============================================================

// Create applies the transaction to the balance and records it with the
// resulting balance.
func (s *LedgerService) Create(ctx context.Context, clientID string, req *domain.TransactionRequest) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Create")
	defer span.End()
	span.SetAttributes(attribute.String("txn.type", string(req.Type)))

	if err := req.Validate(); err != nil {
		return nil, err
	}

	delta := req.Type.Delta(req.Amount)
	client, err := s.adjust(ctx, clientID, delta)
	if err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		ClientID:               clientID,
		Amount:                 req.Amount,
		Type:                   req.Type,
		CreditAfterTransaction: client.Credits,
		CreatedAt:              s.now().UTC(),
	}
	if err := s.store.CreateTransaction(ctx, txn); err != nil {
		s.compensate(ctx, clientID, -delta)
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	s.logger.Info("transaction created",
		zap.String("client_id", clientID),
		zap.String("transaction_id", txn.ID),
		zap.String("type", string(txn.Type)),
		zap.Int64("amount", txn.Amount),
		zap.Int64("credits_after", txn.CreditAfterTransaction),
	)
	return txn, nil
}

// List returns the caller's transactions, newest first.
func (s *LedgerService) List(ctx context.Context, clientID string) ([]*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.List")
	defer span.End()

	txns, err := s.store.ListTransactions(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if txns == nil {
		txns = []*domain.Transaction{}
	}
	return txns, nil
}

func (s *LedgerService) Get(ctx context.Context, clientID, id string) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Get")
	defer span.End()

	return s.owned(ctx, clientID, id)
}

// Update replaces amount and type, moving the balance by the difference
// between the new and the old effect.
func (s *LedgerService) Update(ctx context.Context, clientID, id string, req *domain.TransactionRequest) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Update")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	txn, err := s.owned(ctx, clientID, id)
	if err != nil {
		return nil, err
	}

	delta, err := domain.AddCredits(req.Type.Delta(req.Amount), -txn.Type.Delta(txn.Amount))
	if err != nil {
		return nil, err
	}
	client, err := s.adjust(ctx, clientID, delta)
	if err != nil {
		return nil, err
	}

	updated := *txn
	updated.Amount = req.Amount
	updated.Type = req.Type
	updated.CreditAfterTransaction = client.Credits

	ok, err := s.store.UpdateTransaction(ctx, &updated)
	if err != nil || !ok {
		s.compensate(ctx, clientID, -delta)
		if err != nil {
			return nil, fmt.Errorf("update transaction: %w", err)
		}
		return nil, &domain.ErrResourceNotFound{Resource: "transaction", ID: id}
	}
	return &updated, nil
}

// Delete reverses the transaction's effect on the balance, then removes
// it. The balance is restored if the removal fails.
func (s *LedgerService) Delete(ctx context.Context, clientID, id string) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Delete")
	defer span.End()

	txn, err := s.owned(ctx, clientID, id)
	if err != nil {
		return err
	}

	effect := txn.Type.Delta(txn.Amount)
	if _, err := s.adjust(ctx, clientID, -effect); err != nil {
		return err
	}

	ok, err := s.store.DeleteTransaction(ctx, id)
	if err != nil || !ok {
		s.compensate(ctx, clientID, effect)
		if err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		return &domain.ErrResourceNotFound{Resource: "transaction", ID: id}
	}
	return nil
}

// adjust moves the balance by delta. Results outside the int64 range are
// refused before the store is touched; the store checks again atomically.
func (s *LedgerService) adjust(ctx context.Context, clientID string, delta int64) (*domain.Client, error) {
	current, err := s.store.GetClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if current == nil {
		return nil, &domain.ErrCallerNotFound{ClientID: clientID}
	}
	if _, err := domain.AddCredits(current.Credits, delta); err != nil {
		return nil, err
	}

	client, err := s.store.AdjustCredits(ctx, clientID, delta)
	if err != nil {
		return nil, fmt.Errorf("adjust credits: %w", err)
	}
	if client == nil {
		return nil, &domain.ErrCallerNotFound{ClientID: clientID}
	}
	return client, nil
}

// owned loads a transaction and checks it belongs to the caller.
func (s *LedgerService) owned(ctx context.Context, clientID, id string) (*domain.Transaction, error) {
	txn, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if txn == nil {
		return nil, &domain.ErrResourceNotFound{Resource: "transaction", ID: id}
	}
	if txn.ClientID != clientID {
		return nil, &domain.ErrResourceForbidden{Resource: "transaction", ID: id}
	}
	return txn, nil
}

func (s *LedgerService) compensate(ctx context.Context, clientID string, delta int64) {
	if _, err := s.store.AdjustCredits(ctx, clientID, delta); err != nil {
		s.logger.Error("ledger: compensating balance change failed",
			zap.String("client_id", clientID),
			zap.Int64("delta", delta),
			zap.Error(err),
		)
	}
}
