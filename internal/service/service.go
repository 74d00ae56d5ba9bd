// Package service orchestrates the card-on-file flows: it validates
// input through the domain constructors, talks to the provider, and
// persists the outcome through the repositories. Handlers stay thin.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pagoschile/oneclick-api/internal/domain"
	"github.com/pagoschile/oneclick-api/internal/events"
	"github.com/pagoschile/oneclick-api/internal/provider"
	"github.com/pagoschile/oneclick-api/internal/repository"
	"github.com/pagoschile/oneclick-api/internal/storage"
	"github.com/pagoschile/oneclick-api/telemetry"
)

var (
	ErrNoActiveInscription = errors.New("user has no active inscription")
	ErrNotRefundable       = errors.New("transaction cannot be refunded")
)

// DetailInput is one requested charge leg of a mall authorization.
type DetailInput struct {
	CommerceCode string
	BuyOrder     string
	Amount       int64
	Installments int
}

type OneclickService struct {
	log          *zap.Logger
	provider     provider.Client
	inscriptions *repository.InscriptionRepository
	transactions *repository.TransactionRepository
	publisher    events.Publisher // nil when eventing is disabled
}

func New(log *zap.Logger, client provider.Client, inscriptions *repository.InscriptionRepository, transactions *repository.TransactionRepository, publisher events.Publisher) *OneclickService {
	return &OneclickService{
		log:          log,
		provider:     client,
		inscriptions: inscriptions,
		transactions: transactions,
		publisher:    publisher,
	}
}

// StartInscription opens an inscription with the provider and persists
// it as PENDING. The provider token is held in TbkUser until the
// finish step replaces it with the permanent card token.
func (s *OneclickService) StartInscription(ctx context.Context, username, email, responseURL string) (*domain.Inscription, error) {
	resp, err := s.provider.StartInscription(ctx, username, email, responseURL)
	if err != nil {
		telemetry.IncProviderErrors("start_inscription")
		return nil, err
	}

	entity, err := domain.NewInscription(username, email, resp.Token, resp.URLWebpay)
	if err != nil {
		return nil, err
	}
	saved, err := s.inscriptions.Save(ctx, entity)
	if err != nil {
		telemetry.IncInscriptionsFailed("db")
		return nil, err
	}
	telemetry.IncInscriptionsStarted()
	s.log.Info("inscription started",
		zap.String("inscription_id", saved.ID),
		zap.String("username", username))
	return saved, nil
}

// FinishInscription closes the inscription identified by the start
// token. A provider rejection is not an error at this level: the
// inscription is marked FAILED and returned so callers can expose its
// final state.
func (s *OneclickService) FinishInscription(ctx context.Context, token string) (*domain.Inscription, error) {
	resp, err := s.provider.FinishInscription(ctx, token)
	if err != nil {
		var rejection *provider.RejectionError
		if errors.As(err, &rejection) {
			return s.failInscription(ctx, token, rejection)
		}
		telemetry.IncProviderErrors("finish_inscription")
		return nil, err
	}

	entity, err := s.inscriptions.FindByTbkUser(ctx, token)
	if err != nil {
		return nil, err
	}
	card, err := domain.NewCardDetails(resp.CardType, resp.CardNumber)
	if err != nil {
		return nil, err
	}
	if err := entity.Complete(resp.AuthorizationCode, card); err != nil {
		return nil, err
	}
	// the temporary start token gives way to the permanent card token
	entity.TbkUser = resp.TbkUser

	saved, err := s.inscriptions.Save(ctx, entity)
	if err != nil {
		telemetry.IncInscriptionsFailed("db")
		return nil, err
	}
	telemetry.IncInscriptionsCompleted()
	s.log.Info("inscription completed",
		zap.String("inscription_id", saved.ID),
		zap.String("username", saved.Username))
	return saved, nil
}

func (s *OneclickService) failInscription(ctx context.Context, token string, rejection *provider.RejectionError) (*domain.Inscription, error) {
	entity, err := s.inscriptions.FindByTbkUser(ctx, token)
	if err != nil {
		return nil, err
	}
	entity.Fail(rejection.Error())
	saved, err := s.inscriptions.Save(ctx, entity)
	if err != nil {
		return nil, err
	}
	telemetry.IncInscriptionsFailed("rejected")
	s.log.Warn("inscription rejected by provider",
		zap.String("inscription_id", saved.ID),
		zap.Int("response_code", rejection.ResponseCode))
	return saved, nil
}

// GetInscription returns the latest inscription for a user.
func (s *OneclickService) GetInscription(ctx context.Context, username string) (*domain.Inscription, error) {
	return s.inscriptions.FindByUsername(ctx, username)
}

// DeleteInscription removes the user's active card from the provider
// and deletes the local record.
func (s *OneclickService) DeleteInscription(ctx context.Context, username string) error {
	entity, err := s.inscriptions.FindActiveByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrInscriptionNotFound) {
			return ErrNoActiveInscription
		}
		return err
	}
	if err := s.provider.DeleteInscription(ctx, entity.TbkUser, username); err != nil {
		telemetry.IncProviderErrors("delete_inscription")
		return err
	}
	if err := s.inscriptions.Delete(ctx, entity.ID); err != nil {
		return err
	}
	s.log.Info("inscription deleted",
		zap.String("inscription_id", entity.ID),
		zap.String("username", username))
	return nil
}

// AuthorizeTransaction charges the user's registered card across one
// or more sub-commerces. Input is validated and the buy order checked
// for reuse before the provider is contacted, so an invalid or
// duplicate request never reaches the network. The storage unique
// index remains the authoritative duplicate guard.
func (s *OneclickService) AuthorizeTransaction(ctx context.Context, username, buyOrder string, details []DetailInput) (*domain.Transaction, error) {
	entity, err := buildTransaction(username, buyOrder, details)
	if err != nil {
		telemetry.IncTransactionsRejected("validation")
		return nil, err
	}

	if _, err := s.transactions.FindByBuyOrder(ctx, buyOrder); err == nil {
		telemetry.IncTransactionsRejected("duplicate")
		return nil, storage.ErrDuplicateBuyOrder
	} else if !errors.Is(err, storage.ErrTransactionNotFound) {
		return nil, err
	}

	inscription, err := s.inscriptions.FindActiveByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrInscriptionNotFound) {
			telemetry.IncTransactionsRejected("no_inscription")
			return nil, ErrNoActiveInscription
		}
		return nil, err
	}

	reqDetails := make([]provider.AuthorizeDetailRequest, 0, len(details))
	for _, d := range details {
		reqDetails = append(reqDetails, provider.AuthorizeDetailRequest{
			CommerceCode:       d.CommerceCode,
			BuyOrder:           d.BuyOrder,
			Amount:             d.Amount,
			InstallmentsNumber: d.Installments,
		})
	}
	resp, err := s.provider.Authorize(ctx, username, inscription.TbkUser, buyOrder, reqDetails)
	if err != nil {
		telemetry.IncProviderErrors("authorize")
		telemetry.IncTransactionsRejected("provider")
		return nil, err
	}

	applyAuthorizeResponse(entity, inscription.ID, resp)

	saved, err := s.transactions.Save(ctx, entity)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateBuyOrder) {
			telemetry.IncTransactionsRejected("duplicate")
			return nil, err
		}
		telemetry.IncTransactionsRejected("db")
		return nil, err
	}
	telemetry.IncTransactionsAuthorized(saved.IsFullyAuthorized())
	s.log.Info("transaction authorized",
		zap.String("transaction_id", saved.ID),
		zap.String("buy_order", saved.BuyOrder),
		zap.Bool("fully_authorized", saved.IsFullyAuthorized()))

	s.publishAuthorized(ctx, saved)
	return saved, nil
}

func buildTransaction(username, buyOrder string, details []DetailInput) (*domain.Transaction, error) {
	entity, err := domain.NewTransaction(username, buyOrder)
	if err != nil {
		return nil, err
	}
	for _, d := range details {
		amount, err := domain.NewAmount(d.Amount)
		if err != nil {
			return nil, fmt.Errorf("detail %s: %w", d.BuyOrder, err)
		}
		detail, err := domain.NewTransactionDetail(d.CommerceCode, d.BuyOrder, amount, domain.TransactionAuthorized)
		if err != nil {
			return nil, fmt.Errorf("detail %s: %w", d.BuyOrder, err)
		}
		detail.InstallmentsNumber = d.Installments
		if err := entity.AddDetail(detail); err != nil {
			return nil, err
		}
	}
	if len(entity.Details) == 0 {
		return nil, domain.ErrNoDetails
	}
	return entity, nil
}

// applyAuthorizeResponse folds the provider verdict back into the
// entity, matching details by commerce and child buy order. A
// requested detail the provider did not answer for is marked FAILED;
// only an explicit zero response code counts as an approval.
func applyAuthorizeResponse(entity *domain.Transaction, inscriptionID string, resp provider.AuthorizeResponse) {
	entity.InscriptionID = inscriptionID
	entity.SessionID = resp.SessionID
	entity.CardNumber = resp.CardDetail.CardNumber
	entity.AccountingDate = resp.AccountingDate
	entity.TransactionDate = resp.TransactionDate

	for _, rd := range resp.Details {
		for _, d := range entity.Details {
			if d.CommerceCode != rd.CommerceCode || d.BuyOrder != rd.BuyOrder {
				continue
			}
			rc := rd.ResponseCode
			d.ResponseCode = &rc
			d.AuthorizationCode = rd.AuthorizationCode
			d.PaymentTypeCode = domain.PaymentType(rd.PaymentTypeCode)
			d.InstallmentsNumber = rd.InstallmentsNumber
			d.Balance = rd.Balance
			if rc == 0 {
				d.Status = domain.TransactionAuthorized
			} else {
				d.Status = domain.TransactionFailed
			}
			break
		}
	}
	for _, d := range entity.Details {
		if d.ResponseCode == nil {
			d.Status = domain.TransactionFailed
		}
	}
}

// publishAuthorized emits the event best-effort: a broker outage must
// not fail an authorization that is already persisted.
func (s *OneclickService) publishAuthorized(ctx context.Context, tx *domain.Transaction) {
	if s.publisher == nil {
		return
	}
	total, err := tx.TotalAmount()
	if err != nil {
		return
	}
	event := events.TransactionAuthorized{
		TransactionID:   tx.ID,
		Username:        tx.Username,
		BuyOrder:        tx.BuyOrder,
		TotalAmount:     total.Value(),
		FullyAuthorized: tx.IsFullyAuthorized(),
		AuthorizedAt:    tx.TransactionDate,
	}
	for _, d := range tx.Details {
		rc := 0
		if d.ResponseCode != nil {
			rc = *d.ResponseCode
		}
		event.Details = append(event.Details, events.TransactionDetailRecord{
			CommerceCode: d.CommerceCode,
			BuyOrder:     d.BuyOrder,
			Amount:       d.Amount.Value(),
			Status:       string(d.Status),
			ResponseCode: rc,
		})
	}
	if err := s.publisher.PublishTransactionAuthorized(ctx, event); err != nil {
		s.log.Warn("event publish failed",
			zap.String("buy_order", tx.BuyOrder),
			zap.Error(err))
	}
}

// GetTransaction returns a persisted transaction by parent buy order.
func (s *OneclickService) GetTransaction(ctx context.Context, buyOrder string) (*domain.Transaction, error) {
	return s.transactions.FindByBuyOrder(ctx, buyOrder)
}

// TransactionHistory returns a user's transactions newest first.
func (s *OneclickService) TransactionHistory(ctx context.Context, username string, skip, limit int) ([]*domain.Transaction, error) {
	return s.transactions.FindByUsername(ctx, username, skip, limit)
}

// TransactionStatus queries the provider for the live state of one
// charge leg.
func (s *OneclickService) TransactionStatus(ctx context.Context, childBuyOrder string) (provider.StatusResponse, error) {
	resp, err := s.provider.Status(ctx, childBuyOrder)
	if err != nil {
		telemetry.IncProviderErrors("status")
		return provider.StatusResponse{}, err
	}
	return resp, nil
}

// CaptureTransaction captures a previously authorized deferred charge.
func (s *OneclickService) CaptureTransaction(ctx context.Context, commerceCode, childBuyOrder, authorizationCode string, amount int64) (provider.CaptureResponse, error) {
	if _, err := domain.NewAmount(amount); err != nil {
		return provider.CaptureResponse{}, err
	}
	resp, err := s.provider.Capture(ctx, commerceCode, childBuyOrder, authorizationCode, amount)
	if err != nil {
		telemetry.IncProviderErrors("capture")
		return provider.CaptureResponse{}, err
	}
	return resp, nil
}

// RefundTransaction refunds one charge leg of a fully authorized
// transaction. The parent transaction must exist locally and be
// refundable before the provider is contacted.
func (s *OneclickService) RefundTransaction(ctx context.Context, parentBuyOrder, childBuyOrder string, amount int64) (provider.RefundResponse, error) {
	if _, err := domain.NewAmount(amount); err != nil {
		return provider.RefundResponse{}, err
	}
	tx, err := s.transactions.FindByBuyOrder(ctx, parentBuyOrder)
	if err != nil {
		return provider.RefundResponse{}, err
	}
	if !tx.CanBeRefunded() {
		return provider.RefundResponse{}, ErrNotRefundable
	}
	var detail *domain.TransactionDetail
	for _, d := range tx.Details {
		if d.BuyOrder == childBuyOrder {
			detail = d
			break
		}
	}
	if detail == nil {
		return provider.RefundResponse{}, fmt.Errorf("transaction %s has no detail with buy order %s", parentBuyOrder, childBuyOrder)
	}
	resp, err := s.provider.Refund(ctx, detail.CommerceCode, childBuyOrder, amount)
	if err != nil {
		telemetry.IncProviderErrors("refund")
		return provider.RefundResponse{}, err
	}
	s.log.Info("refund issued",
		zap.String("parent_buy_order", parentBuyOrder),
		zap.String("child_buy_order", childBuyOrder),
		zap.Int64("amount", amount))
	return resp, nil
}

// ExpirePendingInscriptions expires PENDING inscriptions older than
// the given age and returns how many were expired.
func (s *OneclickService) ExpirePendingInscriptions(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	pending, err := s.inscriptions.ListPendingBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, entity := range pending {
		if err := entity.Expire(); err != nil {
			continue
		}
		if _, err := s.inscriptions.Save(ctx, entity); err != nil {
			s.log.Error("failed to persist expired inscription",
				zap.String("inscription_id", entity.ID),
				zap.Error(err))
			continue
		}
		expired++
	}
	if expired > 0 {
		telemetry.AddInscriptionsExpired(expired)
		s.log.Info("expired pending inscriptions", zap.Int("count", expired))
	}
	return expired, nil
}
