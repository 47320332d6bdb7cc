package automaton

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tragent/account-engine/internal/catalog"
	"github.com/tragent/account-engine/internal/metrics"
)

// Client talks to the Conway automaton HTTP API.
type Client struct {
	http *resty.Client
}

// NewClient creates a client for baseURL authenticating with apiKey.
func NewClient(baseURL, apiKey string) *Client {
	rc := resty.New().
		SetTransport(&http.Transport{Proxy: http.ProxyFromEnvironment}).
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)
	if apiKey != "" {
		rc.SetAuthToken(apiKey)
	}
	return &Client{http: rc}
}

type decisionRequest struct {
	TokenID        string  `json:"tokenId"`
	TokenSymbol    string  `json:"tokenSymbol"`
	Price          float64 `json:"price"`
	Change24h      float64 `json:"change24h"`
	Volume24h      float64 `json:"volume24h"`
	LiquidityDepth int     `json:"liquidityDepth"`
	Holders        int     `json:"holders"`
	Status         string  `json:"status"`
}

func (c *Client) Status(ctx context.Context, sandboxID string) (Status, error) {
	var out Status
	err := c.do(ctx, "status", c.http.R().
		SetPathParam("id", sandboxID).
		SetResult(&out), http.MethodGet, "/v1/sandboxes/{id}/status")
	return out, err
}

func (c *Client) Decision(ctx context.Context, sandboxID string, token catalog.Token) (Decision, error) {
	var out Decision
	body := decisionRequest{
		TokenID:        token.ID,
		TokenSymbol:    token.Symbol,
		Price:          token.Price.InexactFloat64(),
		Change24h:      token.Change24h,
		Volume24h:      token.Volume24h.InexactFloat64(),
		LiquidityDepth: token.LiquidityDepth,
		Holders:        token.Holders,
		Status:         token.Status,
	}
	err := c.do(ctx, "decision", c.http.R().
		SetPathParam("id", sandboxID).
		SetBody(body).
		SetResult(&out), http.MethodPost, "/v1/sandboxes/{id}/decision")
	return out, err
}

func (c *Client) Performance(ctx context.Context, agent AgentConfig) (Performance, error) {
	var out Performance
	err := c.do(ctx, "performance", c.http.R().
		SetPathParam("id", agent.ID).
		SetResult(&out), http.MethodGet, "/v1/agents/{id}/performance")
	return out, err
}

func (c *Client) Trades(ctx context.Context, agentID string, limit int) ([]Trade, error) {
	if limit <= 0 {
		limit = DefaultTradeLimit
	}
	var out []Trade
	err := c.do(ctx, "trades", c.http.R().
		SetPathParam("id", agentID).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&out), http.MethodGet, "/v1/agents/{id}/trades")
	return out, err
}

func (c *Client) do(ctx context.Context, method string, req *resty.Request, verb, path string) error {
	resp, err := req.SetContext(ctx).Execute(verb, path)
	if err != nil {
		metrics.AutomatonRequests.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("automaton: %s request: %w", method, err)
	}
	if resp.IsError() {
		metrics.AutomatonRequests.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("%w: %s %s", ErrUpstream, method, resp.Status())
	}
	metrics.AutomatonRequests.WithLabelValues(method, "ok").Inc()
	return nil
}
