package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kabradhruv/triarb-scanner/internal/config"
	"github.com/kabradhruv/triarb-scanner/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Client talks to the public Binance spot REST API. Only the read-only
// bookTicker endpoint is used; the scanner never trades.
type Client struct {
	cfg  *config.Config
	log  *zap.Logger
	http *http.Client
}

func NewClient(cfg *config.Config, log *zap.Logger) (*Client, error) {
	return &Client{cfg: cfg, log: log, http: &http.Client{Timeout: 6 * time.Second}}, nil
}

type bookTickerResp struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	AskPrice string `json:"askPrice"`
}

// BestBidAsk fetches a fresh best bid/ask for symbol. Prices come back
// as decimal strings and are parsed losslessly; an unknown symbol or a
// transport error surfaces as an error, never as a zero quote.
func (c *Client) BestBidAsk(ctx context.Context, symbol string) (types.Quote, error) {
	endpoint := c.cfg.Binance.RestURL + "/api/v3/ticker/bookTicker?symbol=" + url.QueryEscape(symbol)
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return types.Quote{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return types.Quote{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return types.Quote{}, fmt.Errorf("bookTicker %s %d: %s", symbol, resp.StatusCode, string(b))
	}
	var br bookTickerResp
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return types.Quote{}, err
	}
	bid, err := decimal.NewFromString(br.BidPrice)
	if err != nil {
		return types.Quote{}, fmt.Errorf("bookTicker %s: bad bid %q: %w", symbol, br.BidPrice, err)
	}
	ask, err := decimal.NewFromString(br.AskPrice)
	if err != nil {
		return types.Quote{}, fmt.Errorf("bookTicker %s: bad ask %q: %w", symbol, br.AskPrice, err)
	}
	return types.Quote{Symbol: br.Symbol, BestBid: bid, BestAsk: ask}, nil
}
