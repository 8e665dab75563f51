package promotions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/campuspoints-backend/pkg/db/models"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/campuspoints-backend/pkg/errors"
	"github.com/angelmondragon/campuspoints-backend/pkg/logger"
	"github.com/angelmondragon/campuspoints-backend/pkg/pagination"
	"github.com/angelmondragon/campuspoints-backend/pkg/policy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// availableLimit caps how many unused one-time promotions a profile lists.
const availableLimit = 100

// Service manages promotions and evaluates them against purchases.
type Service interface {
	Create(ctx context.Context, actor policy.Actor, input CreateInput) (*PromotionDTO, error)
	List(ctx context.Context, actor policy.Actor, filters ListFilters) (pagination.Page[PromotionDTO], error)
	Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*PromotionDTO, error)
	Update(ctx context.Context, actor policy.Actor, id uuid.UUID, input UpdateInput) (*PromotionDTO, error)
	Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error
	AvailableOneTime(ctx context.Context, userID uuid.UUID) ([]PromotionDTO, error)

	// Resolve evaluates ids for a purchase of spent by userID inside tx.
	Resolve(ctx context.Context, tx *gorm.DB, userID uuid.UUID, spent decimal.Decimal, ids []uuid.UUID) (Applied, error)
	// Lookup loads ids without window or spend checks, for adjustments.
	Lookup(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]models.Promotion, error)
	// Consume marks every one-time promotion in promos as used by userID and
	// returns the ids it marked.
	Consume(ctx context.Context, tx *gorm.DB, userID, transactionID uuid.UUID, promos []models.Promotion) ([]uuid.UUID, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService wires the promotion service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("promotion repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, actor policy.Actor, input CreateInput) (*PromotionDTO, error) {
	if err := actor.Require(enums.RoleManager); err != nil {
		return nil, err
	}
	now := s.now().UTC()

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "type must be automatic or one-time")
	}
	if input.StartTime.IsZero() || input.EndTime.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "startTime and endTime are required")
	}
	if input.StartTime.Before(now) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "startTime cannot be in the past")
	}
	if !input.EndTime.After(input.StartTime) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "endTime must be after startTime")
	}
	if err := validateAmounts(input.MinSpending, input.Rate, input.Points); err != nil {
		return nil, err
	}

	promo := models.Promotion{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Type:        input.Type,
		StartTime:   input.StartTime.UTC(),
		EndTime:     input.EndTime.UTC(),
		MinSpending: input.MinSpending,
		Rate:        input.Rate,
		Points:      input.Points,
		CreatedBy:   actor.Utorid,
	}
	if err := s.repo.Create(ctx, &promo); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create promotion")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"promotion_id": promo.ID.String(),
		"type":         string(promo.Type),
	}), "promotion.created")

	dto := FromModel(promo, true)
	return &dto, nil
}

func (s *service) List(ctx context.Context, actor policy.Actor, filters ListFilters) (pagination.Page[PromotionDTO], error) {
	if err := actor.Require(enums.RoleRegular); err != nil {
		return pagination.Page[PromotionDTO]{}, err
	}
	if filters.Type != nil && !filters.Type.IsValid() {
		return pagination.Page[PromotionDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid promotion type")
	}

	params := filters.Params.Normalize()
	now := s.now().UTC()
	q := listQuery{
		name:      filters.Name,
		promoType: filters.Type,
		now:       now,
		limit:     params.Limit,
		offset:    params.Offset(),
	}

	manager := actor.Is(enums.RoleManager)
	if manager {
		if filters.Started != nil && filters.Ended != nil {
			return pagination.Page[PromotionDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "started and ended cannot both be set")
		}
		q.started = filters.Started
		q.ended = filters.Ended
	} else {
		q.activeAt = &now
		q.excludeUsed = &actor.UserID
	}

	promos, total, err := s.repo.List(ctx, q)
	if err != nil {
		return pagination.Page[PromotionDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list promotions")
	}

	results := make([]PromotionDTO, 0, len(promos))
	for _, p := range promos {
		results = append(results, FromModel(p, manager))
	}
	return pagination.NewPage(params, total, results), nil
}

func (s *service) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*PromotionDTO, error) {
	if err := actor.Require(enums.RoleRegular); err != nil {
		return nil, err
	}
	promo, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	manager := actor.Is(enums.RoleManager)
	if !manager && !promo.ActiveAt(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promotion not found")
	}
	dto := FromModel(*promo, manager)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, input UpdateInput) (*PromotionDTO, error) {
	if err := actor.Require(enums.RoleManager); err != nil {
		return nil, err
	}
	if input.empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	promo, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()

	if input.StartTime != nil && input.StartTime.Before(now) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "startTime cannot be in the past")
	}
	if input.EndTime != nil && input.EndTime.Before(now) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "endTime cannot be in the past")
	}
	if !now.Before(promo.StartTime) && input.touchesLockedFields() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promotion already started; only endTime may change")
	}
	if !now.Before(promo.EndTime) && input.EndTime != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promotion already ended")
	}

	start, end := promo.StartTime, promo.EndTime
	if input.StartTime != nil {
		start = input.StartTime.UTC()
	}
	if input.EndTime != nil {
		end = input.EndTime.UTC()
	}
	if !end.After(start) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "endTime must be after startTime")
	}
	if input.Type != nil && !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "type must be automatic or one-time")
	}
	if err := validateAmounts(input.MinSpending, input.Rate, input.Points); err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		promo.Name = name
	}
	if input.Description != nil {
		promo.Description = strings.TrimSpace(*input.Description)
	}
	if input.Type != nil {
		promo.Type = *input.Type
	}
	if input.MinSpending != nil {
		promo.MinSpending = input.MinSpending
	}
	if input.Rate != nil {
		promo.Rate = input.Rate
	}
	if input.Points != nil {
		promo.Points = input.Points
	}
	promo.StartTime, promo.EndTime = start, end

	if err := s.repo.Update(ctx, promo); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update promotion")
	}
	s.logg.Info(s.logg.WithField(ctx, "promotion_id", promo.ID.String()), "promotion.updated")

	dto := FromModel(*promo, true)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	if err := actor.Require(enums.RoleManager); err != nil {
		return err
	}
	promo, err := s.load(ctx, s.repo, id)
	if err != nil {
		return err
	}
	if !s.now().Before(promo.StartTime) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "promotion already started")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "promotion not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete promotion")
	}
	s.logg.Info(s.logg.WithField(ctx, "promotion_id", id.String()), "promotion.deleted")
	return nil
}

func (s *service) AvailableOneTime(ctx context.Context, userID uuid.UUID) ([]PromotionDTO, error) {
	now := s.now().UTC()
	oneTime := enums.PromotionOneTime
	promos, _, err := s.repo.List(ctx, listQuery{
		promoType:   &oneTime,
		activeAt:    &now,
		excludeUsed: &userID,
		now:         now,
		limit:       availableLimit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list available promotions")
	}
	out := make([]PromotionDTO, 0, len(promos))
	for _, p := range promos {
		out = append(out, FromModel(p, false))
	}
	return out, nil
}

func (s *service) Resolve(ctx context.Context, tx *gorm.DB, userID uuid.UUID, spent decimal.Decimal, ids []uuid.UUID) (Applied, error) {
	if len(ids) == 0 {
		return Applied{}, nil
	}
	repo := s.repo.WithTx(tx)
	promos, err := s.fetchAll(ctx, repo, ids)
	if err != nil {
		return Applied{}, err
	}

	now := s.now()
	var inactive []string
	for _, p := range promos {
		if !p.ActiveAt(now) {
			inactive = append(inactive, p.ID.String())
		}
	}
	if len(inactive) > 0 {
		return Applied{}, pkgerrors.New(pkgerrors.CodeValidation, "promotion not active").
			WithDetails(map[string]any{"promotionIds": inactive})
	}

	used, err := repo.UsedBy(ctx, userID, ids)
	if err != nil {
		return Applied{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load promotion usage")
	}
	for _, p := range promos {
		if p.Type == enums.PromotionOneTime && used[p.ID] {
			return Applied{}, pkgerrors.New(pkgerrors.CodeConflict, "promotion already used").
				WithDetails(map[string]any{"promotionId": p.ID.String()})
		}
		if !meetsMinimum(spent, p) {
			return Applied{}, pkgerrors.New(pkgerrors.CodeValidation, "spent below promotion minimum").
				WithDetails(map[string]any{"promotionId": p.ID.String(), "minSpending": p.MinSpending.String()})
		}
	}

	return Applied{Bonus: Bonus(spent, promos), Promotions: promos}, nil
}

func (s *service) Lookup(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]models.Promotion, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.fetchAll(ctx, s.repo.WithTx(tx), ids)
}

func (s *service) Consume(ctx context.Context, tx *gorm.DB, userID, transactionID uuid.UUID, promos []models.Promotion) ([]uuid.UUID, error) {
	repo := s.repo.WithTx(tx)
	var marked []uuid.UUID
	for _, p := range promos {
		if p.Type != enums.PromotionOneTime {
			continue
		}
		ok, err := repo.MarkUsed(ctx, models.PromotionUsage{
			UserID:        userID,
			PromotionID:   p.ID,
			TransactionID: transactionID,
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark promotion used")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "promotion already used").
				WithDetails(map[string]any{"promotionId": p.ID.String()})
		}
		marked = append(marked, p.ID)
	}
	return marked, nil
}

// fetchAll loads ids in request order and fails when any is missing or repeated.
func (s *service) fetchAll(ctx context.Context, repo Repository, ids []uuid.UUID) ([]models.Promotion, error) {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate promotion id").
				WithDetails(map[string]any{"promotionId": id.String()})
		}
		seen[id] = struct{}{}
	}

	rows, err := repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load promotions")
	}
	byID := make(map[uuid.UUID]models.Promotion, len(rows))
	for _, p := range rows {
		byID[p.ID] = p
	}

	ordered := make([]models.Promotion, 0, len(ids))
	var missing []string
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			missing = append(missing, id.String())
			continue
		}
		ordered = append(ordered, p)
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid promotion ids").
			WithDetails(map[string]any{"promotionIds": missing})
	}
	return ordered, nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Promotion, error) {
	promo, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promotion not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load promotion")
	}
	return promo, nil
}

func validateAmounts(minSpending, rate *decimal.Decimal, points *int) error {
	if minSpending != nil && !minSpending.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "minSpending must be positive")
	}
	if rate != nil && !rate.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "rate must be positive")
	}
	if points != nil && *points <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "points must be a positive integer")
	}
	return nil
}
