package transactions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/campuspoints-backend/internal/events"
	"github.com/angelmondragon/campuspoints-backend/internal/ledger"
	"github.com/angelmondragon/campuspoints-backend/internal/promotions"
	"github.com/angelmondragon/campuspoints-backend/pkg/db/models"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/campuspoints-backend/pkg/errors"
	"github.com/angelmondragon/campuspoints-backend/pkg/logger"
	"github.com/angelmondragon/campuspoints-backend/pkg/outbox"
	"github.com/angelmondragon/campuspoints-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/campuspoints-backend/pkg/pagination"
	"github.com/angelmondragon/campuspoints-backend/pkg/policy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type promotionEvaluator interface {
	Resolve(ctx context.Context, tx *gorm.DB, userID uuid.UUID, spent decimal.Decimal, ids []uuid.UUID) (promotions.Applied, error)
	Lookup(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]models.Promotion, error)
	Consume(ctx context.Context, tx *gorm.DB, userID, transactionID uuid.UUID, promos []models.Promotion) ([]uuid.UUID, error)
}

type eventBudget interface {
	ReserveAward(ctx context.Context, tx *gorm.DB, actor policy.Actor, eventID uuid.UUID, utorid string, amount int) (*events.AwardPlan, error)
}

// Service is the transaction engine. Each operation validates, computes the
// point delta, writes the record, applies the balance change and queues its
// domain events inside one database transaction.
type Service interface {
	Create(ctx context.Context, actor policy.Actor, input CreateInput) (*TransactionDTO, error)
	Transfer(ctx context.Context, actor policy.Actor, input TransferInput) (*TransferResult, error)
	CreateRedemption(ctx context.Context, actor policy.Actor, input RedemptionInput) (*TransactionDTO, error)
	ProcessRedemption(ctx context.Context, actor policy.Actor, id uuid.UUID) (*TransactionDTO, error)
	AwardEvent(ctx context.Context, actor policy.Actor, input AwardInput) ([]AwardResult, error)
	SetSuspicious(ctx context.Context, actor policy.Actor, id uuid.UUID, suspicious bool) (*TransactionDTO, error)

	Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*TransactionDTO, error)
	List(ctx context.Context, actor policy.Actor, filters ListFilters) (pagination.Page[TransactionDTO], error)
	ListMine(ctx context.Context, actor policy.Actor, filters ListFilters) (pagination.Page[TransactionDTO], error)
}

// ServiceParams groups the engine's collaborators.
type ServiceParams struct {
	Repo          Repository
	Tx            txRunner
	Ledger        ledger.Service
	Promotions    promotionEvaluator
	Events        eventBudget
	Outbox        outboxPublisher
	Logger        *logger.Logger
	CentsPerPoint int
}

type service struct {
	repo          Repository
	tx            txRunner
	ledger        ledger.Service
	promos        promotionEvaluator
	events        eventBudget
	outbox        outboxPublisher
	logg          *logger.Logger
	centsPerPoint int
}

func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.Repo == nil:
		return nil, fmt.Errorf("transactions repository required")
	case p.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case p.Ledger == nil:
		return nil, fmt.Errorf("ledger service required")
	case p.Promotions == nil:
		return nil, fmt.Errorf("promotion evaluator required")
	case p.Events == nil:
		return nil, fmt.Errorf("event budget required")
	case p.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case p.CentsPerPoint <= 0:
		return nil, fmt.Errorf("cents per point must be positive")
	}
	return &service{
		repo:          p.Repo,
		tx:            p.Tx,
		ledger:        p.Ledger,
		promos:        p.Promotions,
		events:        p.Events,
		outbox:        p.Outbox,
		logg:          p.Logger,
		centsPerPoint: p.CentsPerPoint,
	}, nil
}

// Create handles the cashier and manager entry points: purchases and
// adjustments.
func (s *service) Create(ctx context.Context, actor policy.Actor, input CreateInput) (*TransactionDTO, error) {
	switch input.Type {
	case enums.TransactionPurchase:
		return s.purchase(ctx, actor, input)
	case enums.TransactionAdjustment:
		return s.adjustment(ctx, actor, input)
	case enums.TransactionTransfer, enums.TransactionRedemption, enums.TransactionEvent:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "this transaction type has its own endpoint")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "type must be purchase or adjustment")
	}
}

func (s *service) SetSuspicious(ctx context.Context, actor policy.Actor, id uuid.UUID, suspicious bool) (*TransactionDTO, error) {
	if err := actor.Require(enums.RoleManager); err != nil {
		return nil, err
	}

	var out *models.Transaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := s.lockTransaction(ctx, repo, id)
		if err != nil {
			return err
		}
		before := txn.Suspicious
		delta, err := s.ledger.ToggleSuspicious(ctx, tx, txn, suspicious)
		if err != nil {
			return err
		}
		if before != suspicious {
			err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventTransactionSuspiciousChanged,
				AggregateType: enums.AggregateTransaction,
				AggregateID:   txn.ID,
				Actor:         outbox.ActorFrom(actor),
				Data: payloads.TransactionSuspiciousChangedEvent{
					TransactionID: txn.ID,
					UserID:        txn.UserID,
					Suspicious:    suspicious,
					PointsDelta:   delta,
					ChangedBy:     actor.Utorid,
				},
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue suspicious change")
			}
		}
		out, err = repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload transaction")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"transaction_id": id.String(),
		"suspicious":     suspicious,
	}), "transaction.suspicious_changed")
	dto := FromModel(*out, "")
	return &dto, nil
}

func (s *service) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*TransactionDTO, error) {
	if err := actor.Require(enums.RoleManager); err != nil {
		return nil, err
	}
	txn, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, transactionNotFound(err, "load transaction")
	}
	dto := FromModel(*txn, "")
	return &dto, nil
}

func (s *service) List(ctx context.Context, actor policy.Actor, filters ListFilters) (pagination.Page[TransactionDTO], error) {
	if err := actor.Require(enums.RoleManager); err != nil {
		return pagination.Page[TransactionDTO]{}, err
	}
	return s.list(ctx, filters, nil)
}

// ListMine lists the actor's own records; owner and creator filters are ignored.
func (s *service) ListMine(ctx context.Context, actor policy.Actor, filters ListFilters) (pagination.Page[TransactionDTO], error) {
	if err := actor.Require(enums.RoleRegular); err != nil {
		return pagination.Page[TransactionDTO]{}, err
	}
	filters.Name = ""
	filters.CreatedBy = ""
	filters.Suspicious = nil
	return s.list(ctx, filters, &actor.UserID)
}

func (s *service) list(ctx context.Context, filters ListFilters, owner *uuid.UUID) (pagination.Page[TransactionDTO], error) {
	if filters.Type != nil && !filters.Type.IsValid() {
		return pagination.Page[TransactionDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction type")
	}
	if filters.RelatedID != nil && filters.Type == nil {
		return pagination.Page[TransactionDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "relatedId requires type")
	}
	operator := strings.ToLower(strings.TrimSpace(filters.Operator))
	if (filters.Amount == nil) != (operator == "") {
		return pagination.Page[TransactionDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "amount and operator must be provided together")
	}
	if operator != "" && operator != OperatorGTE && operator != OperatorLTE {
		return pagination.Page[TransactionDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "operator must be gte or lte")
	}

	params := filters.Params.Normalize()
	rows, total, err := s.repo.List(ctx, listQuery{
		userID:      owner,
		name:        filters.Name,
		createdBy:   filters.CreatedBy,
		suspicious:  filters.Suspicious,
		promotionID: filters.PromotionID,
		txType:      filters.Type,
		relatedID:   filters.RelatedID,
		amount:      filters.Amount,
		operator:    operator,
		limit:       params.Limit,
		offset:      params.Offset(),
	})
	if err != nil {
		return pagination.Page[TransactionDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list transactions")
	}
	results := make([]TransactionDTO, 0, len(rows))
	for _, row := range rows {
		results = append(results, FromModel(row, ""))
	}
	return pagination.NewPage(params, total, results), nil
}

// record writes txn and queues its transaction_created event.
func (s *service) record(ctx context.Context, tx *gorm.DB, actor policy.Actor, txn *models.Transaction, owner string) error {
	if err := s.repo.WithTx(tx).Create(ctx, txn); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert transaction")
	}
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventTransactionCreated,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   txn.ID,
		Actor:         outbox.ActorFrom(actor),
		Data: payloads.TransactionCreatedEvent{
			TransactionID: txn.ID,
			Type:          txn.Type,
			UserID:        txn.UserID,
			Utorid:        owner,
			Amount:        txn.Amount,
			Spent:         txn.Spent,
			RelatedID:     txn.RelatedID,
			EventID:       txn.EventID,
			PromotionIDs:  txn.PromotionIDs(),
			Suspicious:    txn.Suspicious,
			CreatedBy:     txn.CreatedBy,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue transaction event")
	}
	return nil
}

func (s *service) logCreated(ctx context.Context, txn *models.Transaction) {
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"transaction_id": txn.ID.String(),
		"type":           string(txn.Type),
		"user_id":        txn.UserID.String(),
		"amount":         txn.Amount,
		"suspicious":     txn.Suspicious,
	}), "transaction.created")
}

func (s *service) userByUtorid(ctx context.Context, repo Repository, utorid string) (*models.User, error) {
	utorid = strings.TrimSpace(utorid)
	if utorid == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "utorid is required")
	}
	user, err := repo.FindUserByUtorid(ctx, utorid)
	if err != nil {
		return nil, userNotFound(err)
	}
	return user, nil
}

func (s *service) userByID(ctx context.Context, repo Repository, id uuid.UUID) (*models.User, error) {
	user, err := repo.FindUserByID(ctx, id)
	if err != nil {
		return nil, userNotFound(err)
	}
	return user, nil
}

func (s *service) lockTransaction(ctx context.Context, repo Repository, id uuid.UUID) (*models.Transaction, error) {
	txn, err := repo.LockByID(ctx, id)
	if err != nil {
		return nil, transactionNotFound(err, "lock transaction")
	}
	return txn, nil
}

func userNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
}

func transactionNotFound(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}

func promotionLinks(ids []uuid.UUID) []models.TransactionPromotion {
	if len(ids) == 0 {
		return nil
	}
	links := make([]models.TransactionPromotion, 0, len(ids))
	for _, id := range ids {
		links = append(links, models.TransactionPromotion{PromotionID: id})
	}
	return links
}
