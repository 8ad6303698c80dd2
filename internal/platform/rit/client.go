// Package rit is the REST client for the RIT exchange simulator. It
// implements domain.Gateway.
package rit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultCancelSpacing = 100 * time.Millisecond
	maxCancelRounds      = 20
)

// Config configures a Client.
type Config struct {
	// BaseURL is the API root without the /v1 prefix, e.g. "http://localhost:9999".
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
	// CancelSpacing is the pause between cancellations in CancelAllOpen.
	CancelSpacing time.Duration
}

// Client is the REST client for the RIT exchange API.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	cancelPace *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a new RIT REST client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	spacing := cfg.CancelSpacing
	if spacing <= 0 {
		spacing = defaultCancelSpacing
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cancelPace: rate.NewLimiter(rate.Every(spacing), 1),
		logger:     logger.With(slog.String("component", "rit_client")),
	}
}

// CaseStatus returns the current session clock and trading status.
func (c *Client) CaseStatus(ctx context.Context) (domain.CaseStatus, error) {
	var resp caseDTO
	if err := c.do(ctx, http.MethodGet, "/v1/case", nil, &resp); err != nil {
		return domain.CaseStatus{}, fmt.Errorf("rit: case: %w", err)
	}
	return resp.toDomain(), nil
}

// Securities returns positions and quotes. An empty ticker lists every security.
func (c *Client) Securities(ctx context.Context, ticker string) ([]domain.Security, error) {
	params := url.Values{}
	if ticker != "" {
		params.Set("ticker", ticker)
	}

	var resp []securityDTO
	if err := c.do(ctx, http.MethodGet, "/v1/securities", params, &resp); err != nil {
		return nil, fmt.Errorf("rit: securities: %w", err)
	}

	out := make([]domain.Security, 0, len(resp))
	for _, s := range resp {
		out = append(out, s.toDomain())
	}
	return out, nil
}

// OrderBook returns up to depth levels per side for ticker.
func (c *Client) OrderBook(ctx context.Context, ticker string, depth int) (domain.OrderBook, error) {
	params := url.Values{}
	params.Set("ticker", ticker)
	if depth > 0 {
		params.Set("limit", strconv.Itoa(depth))
	}

	var resp bookDTO
	if err := c.do(ctx, http.MethodGet, "/v1/securities/book", params, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("rit: book %s: %w", ticker, err)
	}
	return domain.OrderBook{
		Ticker: ticker,
		Bids:   levels(resp.Bids),
		Asks:   levels(resp.Asks),
	}, nil
}

// Tenders lists the tenders currently on offer.
func (c *Client) Tenders(ctx context.Context) ([]domain.Tender, error) {
	var resp []tenderDTO
	if err := c.do(ctx, http.MethodGet, "/v1/tenders", nil, &resp); err != nil {
		return nil, fmt.Errorf("rit: tenders: %w", err)
	}

	out := make([]domain.Tender, 0, len(resp))
	for _, t := range resp {
		out = append(out, t.toDomain())
	}
	return out, nil
}

// AcceptTender accepts tender id at price and reports the exchange's verdict.
func (c *Client) AcceptTender(ctx context.Context, id int64, price float64) (bool, error) {
	params := url.Values{}
	params.Set("price", formatPrice(price))

	var resp successDTO
	if err := c.do(ctx, http.MethodPost, "/v1/tenders/"+strconv.FormatInt(id, 10), params, &resp); err != nil {
		return false, fmt.Errorf("rit: accept tender %d: %w", id, err)
	}
	return resp.Success, nil
}

// DeclineTender declines tender id.
func (c *Client) DeclineTender(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, "/v1/tenders/"+strconv.FormatInt(id, 10), nil, nil); err != nil {
		return fmt.Errorf("rit: decline tender %d: %w", id, err)
	}
	return nil
}

// SubmitOrder places a single order. The request was validated when it was
// built, so a LIMIT order always carries a price here.
func (c *Client) SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error) {
	params := url.Values{}
	params.Set("ticker", req.Ticker())
	params.Set("type", string(req.Type()))
	params.Set("quantity", strconv.FormatInt(req.Quantity(), 10))
	params.Set("action", string(req.Action()))
	if price, ok := req.Price(); ok {
		params.Set("price", formatPrice(price))
	}
	dryRun := "0"
	if req.DryRun() {
		dryRun = "1"
	}
	params.Set("dry_run", dryRun)

	var resp orderDTO
	if err := c.do(ctx, http.MethodPost, "/v1/orders", params, &resp); err != nil {
		return domain.Order{}, fmt.Errorf("rit: submit order %s: %w", req, err)
	}
	return resp.toDomain(), nil
}

// Orders lists orders, optionally filtered by status.
func (c *Client) Orders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	params := url.Values{}
	if status != "" {
		params.Set("status", string(status))
	}

	var resp []orderDTO
	if err := c.do(ctx, http.MethodGet, "/v1/orders", params, &resp); err != nil {
		return nil, fmt.Errorf("rit: orders: %w", err)
	}

	out := make([]domain.Order, 0, len(resp))
	for _, o := range resp {
		out = append(out, o.toDomain())
	}
	return out, nil
}

// CancelOrder cancels an open order by ID.
func (c *Client) CancelOrder(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, "/v1/orders/"+strconv.FormatInt(id, 10), nil, nil); err != nil {
		return fmt.Errorf("rit: cancel order %d: %w", id, err)
	}
	return nil
}

// CancelAllOpen cancels open orders until a listing comes back empty and
// returns how many cancellations succeeded. Individual cancel failures are
// logged and retried on the next round; listing failures abort.
func (c *Client) CancelAllOpen(ctx context.Context) (int, error) {
	cancelled := 0
	for round := 0; round < maxCancelRounds; round++ {
		open, err := c.Orders(ctx, domain.OrderStatusOpen)
		if err != nil {
			return cancelled, err
		}
		if len(open) == 0 {
			c.logger.InfoContext(ctx, "all open orders cancelled", slog.Int("cancelled", cancelled))
			return cancelled, nil
		}

		for _, o := range open {
			if err := c.cancelPace.Wait(ctx); err != nil {
				return cancelled, fmt.Errorf("rit: cancel all: %w", err)
			}
			if err := c.CancelOrder(ctx, o.ID); err != nil {
				c.logger.WarnContext(ctx, "cancel failed",
					slog.Int64("order_id", o.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			cancelled++
		}
	}
	return cancelled, fmt.Errorf("rit: cancel all: %w: orders still open after %d rounds", domain.ErrTransport, maxCancelRounds)
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// do sends an authenticated request and decodes a JSON response into out
// when out is non-nil. Any failure to get a usable answer wraps
// domain.ErrTransport.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, out any) error {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", domain.ErrTransport, ctxErr)
		}
		return fmt.Errorf("%w: http request: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrTransport, err)
	}

	if err := checkStatus(resp.StatusCode, body); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrTransport, err)
	}
	return nil
}

// checkStatus maps non-2xx HTTP status codes to domain errors. Everything
// except a rejected request counts as a transport failure so callers skip
// the cycle instead of acting on missing data.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr errorDTO
	_ = json.Unmarshal(body, &apiErr)

	switch statusCode {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w: retry in %.2fs: %s", domain.ErrTransport, domain.ErrRateLimited, apiErr.Wait, apiErr.Message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, apiErr.Message)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: rejected by exchange: %s (%s)", domain.ErrValidation, apiErr.Message, apiErr.Code)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: unauthorized: %s", domain.ErrTransport, apiErr.Message)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrTransport, statusCode, apiErr.Message)
	}
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// Compile-time interface check.
var _ domain.Gateway = (*Client)(nil)
