package service

import (
	"context"
	"errors"
	"log"
	"math"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/planhub/planhub_go_server/config"
	"github.com/planhub/planhub_go_server/internal/model"
	"github.com/planhub/planhub_go_server/internal/model/dto"
	"github.com/planhub/planhub_go_server/internal/pkg/paypal"
	"github.com/planhub/planhub_go_server/internal/repository"
)

var (
	ErrPlanNotFound         = errors.New("套餐不存在")
	ErrSubscriptionNotFound = errors.New("订阅不存在")
	ErrInvalidTransition    = errors.New("当前订阅状态不允许此操作")
	ErrOrderNotVerified     = errors.New("支付订单核验失败")
)

// PayPalVerifier 订单核验接口，测试时可注入假实现
type PayPalVerifier interface {
	VerifyCompletedOrder(ctx context.Context, orderID string) (*paypal.Order, error)
}

type BillingService struct {
	subRepo *repository.SubscriptionRepository
	cfg     *config.Config
	paypal  PayPalVerifier
	now     func() time.Time
}

func NewBillingService(subRepo *repository.SubscriptionRepository, cfg *config.Config, pp PayPalVerifier) *BillingService {
	return &BillingService{
		subRepo: subRepo,
		cfg:     cfg,
		paypal:  pp,
		now:     time.Now,
	}
}

// Evaluate 从订阅记录和给定时间计算派生状态。纯函数，不读写存储。
// 记录缺失或字段异常时一律判定为受限（宁可错拦不可错放）。
func Evaluate(sub *model.Subscription, now time.Time) *dto.DerivedState {
	if sub == nil {
		return &dto.DerivedState{
			Status:  dto.DerivedNoSubscription,
			Blocked: true,
		}
	}

	state := &dto.DerivedState{
		PlanType: string(sub.PlanType),
	}

	switch sub.Status {
	case model.StatusTrial:
		if sub.TrialEndAt == nil {
			state.Status = dto.DerivedUnknown
			state.Blocked = true
			return state
		}
		state.TrialEndAt = sub.TrialEndAt.Format(time.RFC3339)
		if now.Before(*sub.TrialEndAt) {
			state.Status = dto.DerivedTrial
			state.DaysRemaining = daysUntil(now, *sub.TrialEndAt)
			return state
		}
		state.Status = dto.DerivedTrialExpired
		state.IsTrialExpired = true
		state.Blocked = true
		return state

	case model.StatusActive:
		if sub.CurrentPeriodEnd == nil {
			state.Status = dto.DerivedUnknown
			state.Blocked = true
			return state
		}
		state.CurrentPeriodEnd = sub.CurrentPeriodEnd.Format(time.RFC3339)
		if now.Before(*sub.CurrentPeriodEnd) {
			state.Status = dto.DerivedActive
			state.DaysRemaining = daysUntil(now, *sub.CurrentPeriodEnd)
			return state
		}
		state.Status = dto.DerivedExpired
		state.IsSubscriptionExpired = true
		state.Blocked = true
		return state

	case model.StatusExpired:
		state.Status = dto.DerivedExpired
		state.IsSubscriptionExpired = true
		state.Blocked = true
		return state

	case model.StatusCanceled:
		state.Status = dto.DerivedCanceled
		state.Blocked = true
		return state

	default:
		state.Status = dto.DerivedUnknown
		state.Blocked = true
		return state
	}
}

// daysUntil 剩余天数，不足一天按一天计
func daysUntil(now, end time.Time) int {
	remaining := end.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Hours() / 24))
}

// GetState 查询用户当前的派生订阅状态
func (s *BillingService) GetState(userID int64) (*dto.DerivedState, error) {
	sub, err := s.subRepo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Evaluate(nil, s.now()), nil
		}
		return nil, err
	}
	return Evaluate(sub, s.now()), nil
}

// GetPlans 套餐目录
func (s *BillingService) GetPlans() []dto.PlanItem {
	items := make([]dto.PlanItem, 0, len(s.cfg.Subscription.Plans))
	for _, name := range []string{"monthly", "yearly", "test"} {
		plan, ok := s.cfg.Subscription.Plans[name]
		if !ok {
			continue
		}
		items = append(items, dto.PlanItem{
			Name:        name,
			DisplayName: plan.DisplayName,
			Price:       plan.Price,
			Currency:    plan.Currency,
			ButtonID:    plan.ButtonID,
		})
	}
	return items
}

// CapturePayPalOrder 核验 PayPal 订单并落库转换
func (s *BillingService) CapturePayPalOrder(ctx context.Context, userID int64, req *dto.CaptureRequest) (*dto.DerivedState, error) {
	if s.paypal == nil {
		return nil, ErrOrderNotVerified
	}

	order, err := s.paypal.VerifyCompletedOrder(ctx, req.OrderID)
	if err != nil {
		log.Printf("PayPal order %s verification failed for user %d: %v", req.OrderID, userID, err)
		return nil, ErrOrderNotVerified
	}

	amount, currency := order.Amount()
	return s.ApplyPayment(userID, req.OrderID, model.PlanType(req.PlanType), amount, currency, "paypal")
}

// HandlePayPalWebhook 处理 PayPal 异步通知，作为前端捕获的兜底路径。
// 结算组件下单时在 custom_id 放用户 ID、reference_id 放套餐名；
// 重复投递由支付流水的幂等逻辑吸收。
func (s *BillingService) HandlePayPalWebhook(ctx context.Context, orderID string) (*dto.DerivedState, error) {
	if s.paypal == nil {
		return nil, ErrOrderNotVerified
	}

	order, err := s.paypal.VerifyCompletedOrder(ctx, orderID)
	if err != nil {
		log.Printf("PayPal webhook order %s verification failed: %v", orderID, err)
		return nil, ErrOrderNotVerified
	}

	customID, referenceID := order.Metadata()
	userID, err := strconv.ParseInt(customID, 10, 64)
	if err != nil || userID <= 0 {
		log.Printf("PayPal webhook order %s carries no usable custom_id (%q)", orderID, customID)
		return nil, ErrOrderNotVerified
	}

	amount, currency := order.Amount()
	return s.ApplyPayment(userID, orderID, model.PlanType(referenceID), amount, currency, "paypal_webhook")
}

// ApplyPayment 幂等地应用一笔支付：写流水、迁移状态、延长周期。
// 同一 order_id 重复调用返回当前状态，订阅不被二次延期。
func (s *BillingService) ApplyPayment(userID int64, orderID string, planType model.PlanType, amount float64, currency, source string) (*dto.DerivedState, error) {
	if _, ok := s.cfg.Subscription.Plans[string(planType)]; !ok {
		return nil, ErrPlanNotFound
	}

	now := s.now()

	// 快速路径：订单已处理过，直接返回当前状态
	if _, err := s.subRepo.GetPaymentByOrderID(orderID); err == nil {
		log.Printf("Order %s already applied, returning current state for user %d", orderID, userID)
		return s.GetState(userID)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sub, err := s.subRepo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}

	if !model.CanTransition(sub.Status, model.StatusActive) {
		return nil, ErrInvalidTransition
	}

	// 续费时从当前周期末尾顺延，其余情况从现在起算
	periodStart := now
	if sub.Status == model.StatusActive && sub.CurrentPeriodEnd != nil && sub.CurrentPeriodEnd.After(now) {
		periodStart = *sub.CurrentPeriodEnd
	}
	periodEnd := addPlanPeriod(periodStart, planType)

	sub.PlanType = planType
	sub.Status = model.StatusActive
	sub.CurrentPeriodStart = &periodStart
	sub.CurrentPeriodEnd = &periodEnd
	sub.LastPaymentRef = orderID

	payment := &model.Payment{
		UserID:   userID,
		OrderID:  orderID,
		PlanType: planType,
		Amount:   amount,
		Currency: currency,
		Source:   source,
	}

	err = s.subRepo.ApplyPayment(payment, sub)
	if err != nil {
		// 并发重放：唯一索引兜底，同样按已处理返回
		if errors.Is(err, repository.ErrDuplicateOrder) {
			log.Printf("Order %s raced with a concurrent apply for user %d", orderID, userID)
			return s.GetState(userID)
		}
		return nil, err
	}

	log.Printf("User %d activated plan %s until %s (order %s)", userID, planType, periodEnd.Format(time.RFC3339), orderID)
	return Evaluate(sub, now), nil
}

// addPlanPeriod 按套餐类型计算周期终点
func addPlanPeriod(start time.Time, planType model.PlanType) time.Time {
	switch planType {
	case model.PlanYearly:
		return start.AddDate(1, 0, 0)
	case model.PlanTest:
		return start.Add(time.Hour)
	default:
		return start.AddDate(0, 1, 0)
	}
}

// Cancel 取消订阅。取消立即生效，不退剩余周期。
func (s *BillingService) Cancel(userID int64) (*dto.DerivedState, error) {
	sub, err := s.subRepo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}

	if !model.CanTransition(sub.Status, model.StatusCanceled) {
		return nil, ErrInvalidTransition
	}

	sub.Status = model.StatusCanceled
	if err := s.subRepo.Update(sub); err != nil {
		return nil, err
	}

	log.Printf("User %d canceled subscription", userID)
	return Evaluate(sub, s.now()), nil
}

// ListPayments 用户支付历史
func (s *BillingService) ListPayments(userID int64, page, pageSize int) ([]*model.Payment, int64, error) {
	return s.subRepo.ListPaymentsByUser(userID, page, pageSize)
}

// SweepLapsedActive 将已过周期的 active 订阅落库为 expired，返回处理条数。
// 派生层在落库前就会判定为受限，这里只是把存储状态收敛。
func (s *BillingService) SweepLapsedActive() (int, error) {
	now := s.now()

	subs, err := s.subRepo.ListLapsedActive(now, 500)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, sub := range subs {
		if err := s.subRepo.ExpireSubscription(sub.ID); err != nil {
			log.Printf("Failed to expire subscription %d: %v", sub.ID, err)
			continue
		}
		swept++
	}

	if swept > 0 {
		log.Printf("Expired %d lapsed subscriptions", swept)
	}
	return swept, nil
}

// CreateTrial 为新用户开通试用订阅
func (s *BillingService) CreateTrial(userID int64) (*model.Subscription, error) {
	trialEnd := s.now().Add(time.Duration(s.cfg.Subscription.TrialDays) * 24 * time.Hour)
	sub := &model.Subscription{
		UserID:     userID,
		PlanType:   model.PlanMonthly,
		Status:     model.StatusTrial,
		TrialEndAt: &trialEnd,
	}
	if err := s.subRepo.Create(sub); err != nil {
		return nil, err
	}
	return sub, nil
}
