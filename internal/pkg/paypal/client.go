package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/planhub/planhub_go_server/config"
)

var (
	ErrOrderNotFound    = errors.New("订单不存在")
	ErrOrderNotApproved = errors.New("订单未完成支付")
)

// 订单状态常量（PayPal Orders API v2）
const (
	OrderStatusCompleted = "COMPLETED"
	OrderStatusApproved  = "APPROVED"
)

type Client struct {
	httpClient *http.Client
	apiBase    string
}

// Order PayPal 订单核验结果
type Order struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Payer  struct {
		EmailAddress string `json:"email_address"`
	} `json:"payer"`
	PurchaseUnits []struct {
		ReferenceID string `json:"reference_id"`
		CustomID    string `json:"custom_id"`
		Amount      struct {
			CurrencyCode string `json:"currency_code"`
			Value        string `json:"value"`
		} `json:"amount"`
	} `json:"purchase_units"`
}

// NewClient 创建 PayPal 客户端（client_credentials 自动管理 access token）
func NewClient(cfg *config.PayPalConfig) *Client {
	ccConfig := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.Secret,
		TokenURL:     cfg.APIBase + "/v1/oauth2/token",
	}

	httpClient := ccConfig.Client(context.Background())
	httpClient.Timeout = 15 * time.Second

	return &Client{
		httpClient: httpClient,
		apiBase:    cfg.APIBase,
	}
}

// GetOrder 查询订单详情，用于核验前端上报的支付结果
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	url := fmt.Sprintf("%s/v2/checkout/orders/%s", c.apiBase, orderID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrOrderNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("paypal api error (%d): %s", resp.StatusCode, string(body))
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("failed to decode order: %w", err)
	}

	return &order, nil
}

// VerifyCompletedOrder 核验订单已完成支付，返回订单详情
func (c *Client) VerifyCompletedOrder(ctx context.Context, orderID string) (*Order, error) {
	order, err := c.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != OrderStatusCompleted {
		return nil, ErrOrderNotApproved
	}

	return order, nil
}

// Metadata 返回首个 purchase unit 携带的业务标识（custom_id 放用户 ID，reference_id 放套餐名）
func (o *Order) Metadata() (customID, referenceID string) {
	if len(o.PurchaseUnits) == 0 {
		return "", ""
	}
	return o.PurchaseUnits[0].CustomID, o.PurchaseUnits[0].ReferenceID
}

// Amount 返回订单首个 purchase unit 的金额与币种
func (o *Order) Amount() (float64, string) {
	if len(o.PurchaseUnits) == 0 {
		return 0, ""
	}

	var value float64
	fmt.Sscanf(o.PurchaseUnits[0].Amount.Value, "%f", &value)
	return value, o.PurchaseUnits[0].Amount.CurrencyCode
}
