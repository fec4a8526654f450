package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/planhub/planhub_go_server/config"
	"github.com/planhub/planhub_go_server/internal/model"
	"github.com/planhub/planhub_go_server/internal/model/dto"
	"github.com/planhub/planhub_go_server/internal/pkg/paypal"
	"github.com/planhub/planhub_go_server/internal/repository"
	"github.com/planhub/planhub_go_server/internal/testutil"
)

func billingTestConfig() *config.Config {
	return &config.Config{
		Subscription: config.SubscriptionConfig{
			TrialDays: 14,
			Plans: map[string]config.PlanConfig{
				"monthly": {DisplayName: "月度套餐", Price: 9.99, Currency: "USD", ButtonID: "BTN-M"},
				"yearly":  {DisplayName: "年度套餐", Price: 99.99, Currency: "USD", ButtonID: "BTN-Y"},
				"test":    {DisplayName: "沙箱套餐", Price: 0.01, Currency: "USD"},
			},
		},
	}
}

// fakeVerifier 测试用的订单核验实现
type fakeVerifier struct {
	orders map[string]*paypal.Order
}

func (f *fakeVerifier) VerifyCompletedOrder(_ context.Context, orderID string) (*paypal.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, paypal.ErrOrderNotFound
	}
	if order.Status != paypal.OrderStatusCompleted {
		return nil, paypal.ErrOrderNotApproved
	}
	return order, nil
}

func setupBillingService(t *testing.T) (*BillingService, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)

	subRepo := repository.NewSubscriptionRepository(db)
	svc := NewBillingService(subRepo, billingTestConfig(), nil)

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}
	return svc, db, cleanup
}

func TestEvaluate_NilSubscription(t *testing.T) {
	state := Evaluate(nil, time.Now())

	assert.Equal(t, dto.DerivedNoSubscription, state.Status)
	assert.True(t, state.Blocked)
}

func TestEvaluate_Trial(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("trial in progress", func(t *testing.T) {
		trialEnd := now.Add(5 * 24 * time.Hour)
		state := Evaluate(&model.Subscription{
			Status:     model.StatusTrial,
			PlanType:   model.PlanMonthly,
			TrialEndAt: &trialEnd,
		}, now)

		assert.Equal(t, dto.DerivedTrial, state.Status)
		assert.False(t, state.Blocked)
		assert.False(t, state.IsTrialExpired)
		assert.Equal(t, 5, state.DaysRemaining)
	})

	t.Run("partial day counts as one", func(t *testing.T) {
		trialEnd := now.Add(36 * time.Hour)
		state := Evaluate(&model.Subscription{
			Status:     model.StatusTrial,
			TrialEndAt: &trialEnd,
		}, now)

		assert.Equal(t, 2, state.DaysRemaining)
	})

	t.Run("trial expired", func(t *testing.T) {
		trialEnd := now.Add(-time.Minute)
		state := Evaluate(&model.Subscription{
			Status:     model.StatusTrial,
			TrialEndAt: &trialEnd,
		}, now)

		assert.Equal(t, dto.DerivedTrialExpired, state.Status)
		assert.True(t, state.IsTrialExpired)
		assert.True(t, state.Blocked)
		assert.Equal(t, 0, state.DaysRemaining)
	})

	t.Run("exactly at trial end is expired", func(t *testing.T) {
		trialEnd := now
		state := Evaluate(&model.Subscription{
			Status:     model.StatusTrial,
			TrialEndAt: &trialEnd,
		}, now)

		assert.Equal(t, dto.DerivedTrialExpired, state.Status)
		assert.True(t, state.Blocked)
	})

	t.Run("trial without trial_end_at fails closed", func(t *testing.T) {
		state := Evaluate(&model.Subscription{
			Status: model.StatusTrial,
		}, now)

		assert.Equal(t, dto.DerivedUnknown, state.Status)
		assert.True(t, state.Blocked)
	})
}

func TestEvaluate_Active(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("active in period", func(t *testing.T) {
		periodEnd := now.AddDate(0, 1, 0)
		state := Evaluate(&model.Subscription{
			Status:           model.StatusActive,
			PlanType:         model.PlanMonthly,
			CurrentPeriodEnd: &periodEnd,
		}, now)

		assert.Equal(t, dto.DerivedActive, state.Status)
		assert.False(t, state.Blocked)
		assert.Equal(t, "monthly", state.PlanType)
	})

	t.Run("active past period end derives expired", func(t *testing.T) {
		periodEnd := now.Add(-time.Hour)
		state := Evaluate(&model.Subscription{
			Status:           model.StatusActive,
			CurrentPeriodEnd: &periodEnd,
		}, now)

		assert.Equal(t, dto.DerivedExpired, state.Status)
		assert.True(t, state.IsSubscriptionExpired)
		assert.True(t, state.Blocked)
	})

	t.Run("active without period end fails closed", func(t *testing.T) {
		state := Evaluate(&model.Subscription{
			Status: model.StatusActive,
		}, now)

		assert.Equal(t, dto.DerivedUnknown, state.Status)
		assert.True(t, state.Blocked)
	})
}

func TestEvaluate_TerminalStatuses(t *testing.T) {
	now := time.Now()

	t.Run("expired", func(t *testing.T) {
		state := Evaluate(&model.Subscription{Status: model.StatusExpired}, now)
		assert.Equal(t, dto.DerivedExpired, state.Status)
		assert.True(t, state.Blocked)
	})

	t.Run("canceled", func(t *testing.T) {
		state := Evaluate(&model.Subscription{Status: model.StatusCanceled}, now)
		assert.Equal(t, dto.DerivedCanceled, state.Status)
		assert.True(t, state.Blocked)
	})

	t.Run("garbage status fails closed", func(t *testing.T) {
		state := Evaluate(&model.Subscription{Status: "banana"}, now)
		assert.Equal(t, dto.DerivedUnknown, state.Status)
		assert.True(t, state.Blocked)
	})
}

func TestBillingService_ApplyPayment_Monthly(t *testing.T) {
	svc, db, cleanup := setupBillingService(t)
	defer cleanup()

	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID)

	state, err := svc.ApplyPayment(user.ID, "ORDER-M1", model.PlanMonthly, 9.99, "USD", "paypal")
	require.NoError(t, err)

	assert.Equal(t, dto.DerivedActive, state.Status)
	assert.False(t, state.Blocked)

	sub, err := repository.NewSubscriptionRepository(db).GetByUserID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, sub.Status)
	assert.Equal(t, time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC), sub.CurrentPeriodEnd.UTC())
	assert.Equal(t, "ORDER-M1", sub.LastPaymentRef)
}

func TestBillingService_ApplyPayment_Yearly(t *testing.T) {
	svc, db, cleanup := setupBillingService(t)
	defer cleanup()

	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID)

	_, err := svc.ApplyPayment(user.ID, "ORDER-Y1", model.PlanYearly, 99.99, "USD", "paypal")
	require.NoError(t, err)

	sub, err := repository.NewSubscriptionRepository(db).GetByUserID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PlanYearly, sub.PlanType)
	assert.Equal(t, time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC), sub.CurrentPeriodEnd.UTC())
}

func TestBillingService_ApplyPayment_TestPlan(t *testing.T) {
	svc, db, cleanup := setupBillingService(t)
	defer cleanup()

	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID)

	_, err := svc.ApplyPayment(user.ID, "ORDER-T1", model.PlanTest, 0.01, "USD", "simulate")
	require.NoError(t, err)

	sub, err := repository.NewSubscriptionRepository(db).GetByUserID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), sub.CurrentPeriodEnd.UTC())
}

func TestBillingService_ApplyPayment_Idempotent(t *testing.T) {
	svc, db, cleanup := setupBillingService(t)
	defer cleanup()

	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID)

	first, err := svc.ApplyPayment(user.ID, "ORDER-DUP", model.PlanMonthly, 9.99, "USD", "paypal")
	require.NoError(t, err)

	// 重放同一订单：返回当前状态，周期不变
	second, err := svc.ApplyPayment(user.ID, "ORDER-DUP", model.PlanMonthly, 9.99, "USD", "paypal")
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)

	sub, err := repository.NewSubscriptionRepository(db).GetByUserID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC), sub.CurrentPeriodEnd.UTC())

	// 流水只有一条
	var count int64
	db.Model(&model.Payment{}).Where("order_id = ?", "ORDER-DUP").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestBillingService_ApplyPayment_RenewalExtends(t *testing.T) {
	svc, db, cleanup := setupBillingService(t)
	defer cleanup()

	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	user := testutil.TestUser(t, db)
	periodEnd := now.Add(10 * 24 * time.Hour)
	testutil.TestSubscription(t, db, user.ID,
		testutil.WithStatus(model.StatusActive),
		testutil.WithPeriod(now.AddDate(0, -1, 0), periodEnd))

	_, err := svc.ApplyPayment(user.ID, "ORDER-RENEW", model.PlanMonthly, 9.99, "USD", "paypal")
	require.NoError(t, err)

	// 续费从旧周期末尾顺延，而非从支付时刻起算
	sub, err := repository.NewSubscriptionRepository(db).GetByUserID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, periodEnd.AddDate(0, 1, 0), sub.CurrentPeriodEnd.UTC())
}

func TestBillingService_ApplyPayment_UnknownPlan(t *testing.T) {
	svc, db, cleanup := setupBillingService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID)

	_, err := svc.ApplyPayment(user.ID, "ORDER-X", model.PlanType("lifetime"), 1, "USD", "paypal")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestBillingService_ApplyPayment_NoSubscription(t *testing.T) {
	svc, db, cleanup := setupBillingService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	_, err := svc.ApplyPayment(user.ID, "ORDER-X", model.PlanMonthly, 9.99, "USD", "paypal")
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestBillingService_ApplyPayment_CanceledCannotReactivate(t *testing.T) {
	svc, db, cleanup := setupBillingService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID, testutil.WithStatus(model.StatusCanceled))

	_, err := svc.ApplyPayment(user.ID, "ORDER-X", model.PlanMonthly, 9.99, "USD", "paypal")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestBillingService_ApplyPayment_ExpiredCanResubscribe(t *testing.T) {
	svc, db, cleanup := setupBillingService(t)
	defer cleanup()

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID, testutil.WithStatus(model.StatusExpired))

	state, err := svc.ApplyPayment(user.ID, "ORDER-BACK", model.PlanMonthly, 9.99, "USD", "paypal")
	require.NoError(t, err)
	assert.Equal(t, dto.DerivedActive, state.Status)
}

func TestBillingService_Cancel(t *testing.T) {
	svc, db, cleanup := setupBillingService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID, testutil.WithStatus(model.StatusActive))

	state, err := svc.Cancel(user.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.DerivedCanceled, state.Status)
	assert.True(t, state.Blocked)

	// 再次取消：canceled→canceled 不在迁移表中
	_, err = svc.Cancel(user.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestBillingService_GetState(t *testing.T) {
	svc, db, cleanup := setupBillingService(t)
	defer cleanup()

	t.Run("no subscription record", func(t *testing.T) {
		state, err := svc.GetState(42424)
		require.NoError(t, err)
		assert.Equal(t, dto.DerivedNoSubscription, state.Status)
		assert.True(t, state.Blocked)
	})

	t.Run("existing trial", func(t *testing.T) {
		user := testutil.TestUser(t, db)
		testutil.TestSubscription(t, db, user.ID)

		state, err := svc.GetState(user.ID)
		require.NoError(t, err)
		assert.Equal(t, dto.DerivedTrial, state.Status)
		assert.Equal(t, 14, state.DaysRemaining)
	})
}

func TestBillingService_GetPlans(t *testing.T) {
	svc, _, cleanup := setupBillingService(t)
	defer cleanup()

	plans := svc.GetPlans()
	require.Len(t, plans, 3)
	assert.Equal(t, "monthly", plans[0].Name)
	assert.Equal(t, "yearly", plans[1].Name)
	assert.Equal(t, "test", plans[2].Name)
	assert.Equal(t, 9.99, plans[0].Price)
	assert.Equal(t, "BTN-M", plans[0].ButtonID)
}

func TestBillingService_SweepLapsedActive(t *testing.T) {
	svc, db, cleanup := setupBillingService(t)
	defer cleanup()

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	lapsedUser := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, lapsedUser.ID,
		testutil.WithStatus(model.StatusActive),
		testutil.WithPeriod(now.AddDate(0, -2, 0), now.AddDate(0, -1, 0)))

	currentUser := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, currentUser.ID,
		testutil.WithStatus(model.StatusActive),
		testutil.WithPeriod(now.AddDate(0, -1, 0), now.AddDate(0, 1, 0)))

	swept, err := svc.SweepLapsedActive()
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	repo := repository.NewSubscriptionRepository(db)
	lapsed, err := repo.GetByUserID(lapsedUser.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, lapsed.Status)

	current, err := repo.GetByUserID(currentUser.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, current.Status)
}

func TestBillingService_CreateTrial(t *testing.T) {
	svc, db, cleanup := setupBillingService(t)
	defer cleanup()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	user := testutil.TestUser(t, db)

	sub, err := svc.CreateTrial(user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusTrial, sub.Status)
	assert.Equal(t, now.Add(14*24*time.Hour), sub.TrialEndAt.UTC())
}

func TestBillingService_CapturePayPalOrder(t *testing.T) {
	svc, db, cleanup := setupBillingService(t)
	defer cleanup()

	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	var completed paypal.Order
	err := json.Unmarshal([]byte(`{
		"id": "PP-OK",
		"status": "COMPLETED",
		"purchase_units": [{"amount": {"currency_code": "USD", "value": "9.99"}}]
	}`), &completed)
	require.NoError(t, err)

	svc.paypal = &fakeVerifier{orders: map[string]*paypal.Order{
		"PP-OK":      &completed,
		"PP-PENDING": {ID: "PP-PENDING", Status: paypal.OrderStatusApproved},
	}}

	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID)

	t.Run("completed order activates", func(t *testing.T) {
		state, err := svc.CapturePayPalOrder(context.Background(), user.ID, &dto.CaptureRequest{
			OrderID:  "PP-OK",
			PlanType: "monthly",
		})
		require.NoError(t, err)
		assert.Equal(t, dto.DerivedActive, state.Status)
	})

	t.Run("unverified order is rejected", func(t *testing.T) {
		_, err := svc.CapturePayPalOrder(context.Background(), user.ID, &dto.CaptureRequest{
			OrderID:  "PP-PENDING",
			PlanType: "monthly",
		})
		assert.ErrorIs(t, err, ErrOrderNotVerified)
	})

	t.Run("nil verifier fails closed", func(t *testing.T) {
		svc.paypal = nil
		_, err := svc.CapturePayPalOrder(context.Background(), user.ID, &dto.CaptureRequest{
			OrderID:  "PP-OK",
			PlanType: "monthly",
		})
		assert.ErrorIs(t, err, ErrOrderNotVerified)
	})
}

func TestBillingService_HandlePayPalWebhook(t *testing.T) {
	svc, db, cleanup := setupBillingService(t)
	defer cleanup()

	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID)

	newOrder := func(id, customID, referenceID string) *paypal.Order {
		var order paypal.Order
		raw := fmt.Sprintf(`{
			"id": %q,
			"status": "COMPLETED",
			"purchase_units": [{
				"reference_id": %q,
				"custom_id": %q,
				"amount": {"currency_code": "USD", "value": "9.99"}
			}]
		}`, id, referenceID, customID)
		require.NoError(t, json.Unmarshal([]byte(raw), &order))
		return &order
	}

	svc.paypal = &fakeVerifier{orders: map[string]*paypal.Order{
		"WH-OK":     newOrder("WH-OK", fmt.Sprintf("%d", user.ID), "monthly"),
		"WH-NOUSER": newOrder("WH-NOUSER", "", "monthly"),
	}}

	t.Run("completed order activates via webhook", func(t *testing.T) {
		state, err := svc.HandlePayPalWebhook(context.Background(), "WH-OK")
		require.NoError(t, err)
		assert.Equal(t, dto.DerivedActive, state.Status)
	})

	t.Run("duplicate delivery is absorbed", func(t *testing.T) {
		state, err := svc.HandlePayPalWebhook(context.Background(), "WH-OK")
		require.NoError(t, err)
		assert.Equal(t, dto.DerivedActive, state.Status)

		payments, total, err := svc.ListPayments(user.ID, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Len(t, payments, 1)
	})

	t.Run("order without custom_id is rejected", func(t *testing.T) {
		_, err := svc.HandlePayPalWebhook(context.Background(), "WH-NOUSER")
		assert.ErrorIs(t, err, ErrOrderNotVerified)
	})

	t.Run("unknown order is rejected", func(t *testing.T) {
		_, err := svc.HandlePayPalWebhook(context.Background(), "WH-MISSING")
		assert.ErrorIs(t, err, ErrOrderNotVerified)
	})
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, daysUntil(now, now))
	assert.Equal(t, 0, daysUntil(now, now.Add(-time.Hour)))
	assert.Equal(t, 1, daysUntil(now, now.Add(time.Hour)))
	assert.Equal(t, 1, daysUntil(now, now.Add(24*time.Hour)))
	assert.Equal(t, 2, daysUntil(now, now.Add(25*time.Hour)))
}
