package promotions

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/campuspoints-backend/pkg/db/dbtest"
	"github.com/angelmondragon/campuspoints-backend/pkg/db/models"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/campuspoints-backend/pkg/errors"
	"github.com/angelmondragon/campuspoints-backend/pkg/logger"
	"github.com/angelmondragon/campuspoints-backend/pkg/pagination"
	"github.com/angelmondragon/campuspoints-backend/pkg/policy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var baseNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*gorm.DB, *service) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), logger.New(logger.Options{Output: io.Discard}))
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return baseNow }
	return conn, impl
}

func managerActor() policy.Actor {
	return policy.Actor{UserID: uuid.New(), Utorid: "manager1", Role: enums.RoleManager}
}

func seedPromotion(t *testing.T, conn *gorm.DB, p models.Promotion) models.Promotion {
	t.Helper()
	if p.Name == "" {
		p.Name = "promo"
	}
	if p.Type == "" {
		p.Type = enums.PromotionAutomatic
	}
	if p.StartTime.IsZero() {
		p.StartTime = baseNow.Add(-time.Hour)
	}
	if p.EndTime.IsZero() {
		p.EndTime = baseNow.Add(24 * time.Hour)
	}
	p.CreatedBy = "manager1"
	require.NoError(t, conn.Create(&p).Error)
	return p
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intPtr(v int) *int { return &v }

func TestCreateValidatesInput(t *testing.T) {
	_, svc := newTestService(t)
	ctx := context.Background()

	valid := CreateInput{
		Name:      "Double Points",
		Type:      enums.PromotionAutomatic,
		StartTime: baseNow.Add(time.Hour),
		EndTime:   baseNow.Add(48 * time.Hour),
		Rate:      decPtr("0.02"),
	}

	cases := map[string]func(in *CreateInput){
		"missing name":  func(in *CreateInput) { in.Name = " " },
		"bad type":      func(in *CreateInput) { in.Type = "weekly" },
		"start in past": func(in *CreateInput) { in.StartTime = baseNow.Add(-time.Minute) },
		"end before":    func(in *CreateInput) { in.EndTime = in.StartTime },
		"zero rate":     func(in *CreateInput) { in.Rate = decPtr("0") },
		"neg points":    func(in *CreateInput) { in.Points = intPtr(-1) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			mutate(&in)
			_, err := svc.Create(ctx, managerActor(), in)
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}

	cashier := policy.Actor{UserID: uuid.New(), Role: enums.RoleCashier}
	_, err := svc.Create(ctx, cashier, valid)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)

	dto, err := svc.Create(ctx, managerActor(), valid)
	require.NoError(t, err)
	require.Equal(t, "Double Points", dto.Name)
	require.NotNil(t, dto.StartTime)
	require.True(t, dto.Rate.Equal(decimal.RequireFromString("0.02")))
}

func TestListHidesInactiveAndUsedFromRegularUsers(t *testing.T) {
	conn, svc := newTestService(t)
	ctx := context.Background()
	user := dbtest.CreateUser(t, conn, models.User{Utorid: "regular1"})

	active := seedPromotion(t, conn, models.Promotion{Name: "active"})
	used := seedPromotion(t, conn, models.Promotion{Name: "used", Type: enums.PromotionOneTime, Points: intPtr(10)})
	seedPromotion(t, conn, models.Promotion{Name: "future", StartTime: baseNow.Add(time.Hour)})
	seedPromotion(t, conn, models.Promotion{Name: "expired", StartTime: baseNow.Add(-48 * time.Hour), EndTime: baseNow.Add(-time.Hour)})
	require.NoError(t, conn.Create(&models.PromotionUsage{UserID: user.ID, PromotionID: used.ID, TransactionID: uuid.New()}).Error)

	regular := policy.Actor{UserID: user.ID, Utorid: user.Utorid, Role: enums.RoleRegular}
	page, err := svc.List(ctx, regular, ListFilters{})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Count)
	require.Equal(t, active.ID, page.Results[0].ID)
	require.Nil(t, page.Results[0].StartTime)

	started := false
	page, err = svc.List(ctx, managerActor(), ListFilters{Started: &started})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Count)
	require.Equal(t, "future", page.Results[0].Name)

	page, err = svc.List(ctx, managerActor(), ListFilters{Params: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.EqualValues(t, 4, page.Count)
	require.Len(t, page.Results, 2)
	require.Equal(t, 2, page.TotalPages)

	ended := true
	_, err = svc.List(ctx, managerActor(), ListFilters{Started: &started, Ended: &ended})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestGetHidesInactiveFromNonManagers(t *testing.T) {
	conn, svc := newTestService(t)
	ctx := context.Background()
	future := seedPromotion(t, conn, models.Promotion{StartTime: baseNow.Add(time.Hour)})

	cashier := policy.Actor{UserID: uuid.New(), Role: enums.RoleCashier}
	_, err := svc.Get(ctx, cashier, future.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	dto, err := svc.Get(ctx, managerActor(), future.ID)
	require.NoError(t, err)
	require.Equal(t, future.ID, dto.ID)
}

func TestUpdateRules(t *testing.T) {
	conn, svc := newTestService(t)
	ctx := context.Background()

	running := seedPromotion(t, conn, models.Promotion{Name: "running"})
	name := "renamed"
	_, err := svc.Update(ctx, managerActor(), running.ID, UpdateInput{Name: &name})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	newEnd := baseNow.Add(72 * time.Hour)
	dto, err := svc.Update(ctx, managerActor(), running.ID, UpdateInput{EndTime: &newEnd})
	require.NoError(t, err)
	require.True(t, dto.EndTime.Equal(newEnd))

	past := baseNow.Add(-time.Minute)
	_, err = svc.Update(ctx, managerActor(), running.ID, UpdateInput{EndTime: &past})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	pending := seedPromotion(t, conn, models.Promotion{Name: "pending", StartTime: baseNow.Add(time.Hour)})
	dto, err = svc.Update(ctx, managerActor(), pending.ID, UpdateInput{Name: &name, Points: intPtr(25)})
	require.NoError(t, err)
	require.Equal(t, "renamed", dto.Name)
	require.Equal(t, 25, *dto.Points)

	_, err = svc.Update(ctx, managerActor(), pending.ID, UpdateInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = svc.Update(ctx, managerActor(), uuid.New(), UpdateInput{Name: &name})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestDeleteRejectedOnceStarted(t *testing.T) {
	conn, svc := newTestService(t)
	ctx := context.Background()

	running := seedPromotion(t, conn, models.Promotion{})
	err := svc.Delete(ctx, managerActor(), running.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)

	pending := seedPromotion(t, conn, models.Promotion{StartTime: baseNow.Add(time.Hour)})
	require.NoError(t, svc.Delete(ctx, managerActor(), pending.ID))
	_, err = svc.Get(ctx, managerActor(), pending.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestResolveComputesBonus(t *testing.T) {
	conn, svc := newTestService(t)
	ctx := context.Background()
	user := dbtest.CreateUser(t, conn, models.User{})

	auto := seedPromotion(t, conn, models.Promotion{Rate: decPtr("0.01"), MinSpending: decPtr("50")})
	once := seedPromotion(t, conn, models.Promotion{Type: enums.PromotionOneTime, Points: intPtr(20)})

	applied, err := svc.Resolve(ctx, conn, user.ID, decimal.NewFromInt(100), []uuid.UUID{once.ID, auto.ID})
	require.NoError(t, err)
	require.Equal(t, 21, applied.Bonus)
	require.Equal(t, []uuid.UUID{once.ID, auto.ID}, applied.IDs())

	_, err = svc.Resolve(ctx, conn, user.ID, decimal.NewFromInt(10), []uuid.UUID{auto.ID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	empty, err := svc.Resolve(ctx, conn, user.ID, decimal.NewFromInt(10), nil)
	require.NoError(t, err)
	require.Zero(t, empty.Bonus)
}

func TestResolveRejectsUnknownInactiveAndDuplicateIDs(t *testing.T) {
	conn, svc := newTestService(t)
	ctx := context.Background()
	user := dbtest.CreateUser(t, conn, models.User{})

	active := seedPromotion(t, conn, models.Promotion{Rate: decPtr("0.5")})
	expired := seedPromotion(t, conn, models.Promotion{StartTime: baseNow.Add(-48 * time.Hour), EndTime: baseNow})
	missing := uuid.New()

	_, err := svc.Resolve(ctx, conn, user.ID, decimal.NewFromInt(10), []uuid.UUID{active.ID, missing})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
	details := pkgerrors.As(err).Details().(map[string]any)
	require.Equal(t, []string{missing.String()}, details["promotionIds"])

	_, err = svc.Resolve(ctx, conn, user.ID, decimal.NewFromInt(10), []uuid.UUID{expired.ID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = svc.Resolve(ctx, conn, user.ID, decimal.NewFromInt(10), []uuid.UUID{active.ID, active.ID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestConsumeIsSingleUse(t *testing.T) {
	conn, svc := newTestService(t)
	ctx := context.Background()
	user := dbtest.CreateUser(t, conn, models.User{})

	auto := seedPromotion(t, conn, models.Promotion{Rate: decPtr("0.1")})
	once := seedPromotion(t, conn, models.Promotion{Type: enums.PromotionOneTime, Points: intPtr(10)})

	applied, err := svc.Resolve(ctx, conn, user.ID, decimal.NewFromInt(10), []uuid.UUID{auto.ID, once.ID})
	require.NoError(t, err)

	marked, err := svc.Consume(ctx, conn, user.ID, uuid.New(), applied.Promotions)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{once.ID}, marked)

	// a second purchase that raced past Resolve still loses at Consume
	_, err = svc.Consume(ctx, conn, user.ID, uuid.New(), applied.Promotions)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	_, err = svc.Resolve(ctx, conn, user.ID, decimal.NewFromInt(10), []uuid.UUID{once.ID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	available, err := svc.AvailableOneTime(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, available)

	other := dbtest.CreateUser(t, conn, models.User{})
	available, err = svc.AvailableOneTime(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, available, 1)
	require.Equal(t, once.ID, available[0].ID)
}

func TestLookupSkipsWindowChecks(t *testing.T) {
	conn, svc := newTestService(t)
	expired := seedPromotion(t, conn, models.Promotion{StartTime: baseNow.Add(-48 * time.Hour), EndTime: baseNow.Add(-time.Hour)})

	promos, err := svc.Lookup(context.Background(), conn, []uuid.UUID{expired.ID})
	require.NoError(t, err)
	require.Len(t, promos, 1)

	_, err = svc.Lookup(context.Background(), conn, []uuid.UUID{uuid.New()})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}
