// Package indexer provides the client for the Moralis deep-index API, the
// external source of swap activity and token metadata.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/swap-notifier/internal/circuitbreaker"
	"github.com/swap-notifier/internal/config"
	"github.com/swap-notifier/internal/logging"
	"github.com/swap-notifier/internal/models"
	"github.com/swap-notifier/internal/retry"
)

// Client fetches swap and metadata pages from the indexer. All requests pass
// through a shared rate limiter sized for the API plan, and a circuit breaker
// sheds calls while the upstream is persistently failing.
type Client struct {
	apiKey   string
	baseURL  string
	pageSize int
	client   *http.Client
	limiter  *rate.Limiter
	retryCfg *retry.Config
	breaker  *circuitbreaker.CircuitBreaker
}

// NewClient creates a new indexer client
func NewClient(cfg *config.IndexerConfig) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 3.0
	}

	return &Client{
		apiKey:   cfg.APIKey,
		baseURL:  cfg.BaseURL,
		pageSize: pageSize,
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		retryCfg: retry.DefaultConfig(),
		breaker:  circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig("indexer", logging.GetGlobalLogger())),
	}
}

// swapsResponse is the envelope returned by the swaps endpoint
type swapsResponse struct {
	Result []models.RawSwap `json:"result"`
}

// RecentSwaps fetches the most recent swaps for a token on a chain, newest
// first, bounded by the configured page size.
func (c *Client) RecentSwaps(ctx context.Context, tokenAddress, chain string) ([]models.RawSwap, error) {
	endpoint := fmt.Sprintf("%s/erc20/%s/swaps", c.baseURL, url.PathEscape(tokenAddress))

	params := url.Values{}
	params.Set("chain", chain)
	params.Set("order", "DESC")
	params.Set("limit", strconv.Itoa(c.pageSize))

	var resp swapsResponse
	if err := c.getJSON(ctx, endpoint, params, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch swaps for %s on %s: %w", tokenAddress, chain, err)
	}

	return resp.Result, nil
}

// metadataItem is one entry of the metadata endpoint response
type metadataItem struct {
	Address               string `json:"address"`
	Name                  string `json:"name"`
	Symbol                string `json:"symbol"`
	Decimals              string `json:"decimals"`
	Logo                  string `json:"logo"`
	FullyDilutedValuation string `json:"fully_diluted_valuation"`
}

// TokenMetadata fetches ERC-20 metadata for a token on a chain.
func (c *Client) TokenMetadata(ctx context.Context, tokenAddress, chain string) (*models.TokenMetadata, error) {
	endpoint := fmt.Sprintf("%s/erc20/metadata", c.baseURL)

	params := url.Values{}
	params.Set("chain", chain)
	params.Set("addresses[0]", tokenAddress)

	var items []metadataItem
	if err := c.getJSON(ctx, endpoint, params, &items); err != nil {
		return nil, fmt.Errorf("failed to fetch metadata for %s on %s: %w", tokenAddress, chain, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("token metadata not found for %s on %s", tokenAddress, chain)
	}

	item := items[0]
	decimals, _ := strconv.Atoi(item.Decimals)
	fdv, _ := strconv.ParseFloat(item.FullyDilutedValuation, 64)

	return &models.TokenMetadata{
		TokenAddress:          tokenAddress,
		Chain:                 chain,
		Name:                  item.Name,
		Symbol:                item.Symbol,
		Decimals:              decimals,
		Logo:                  item.Logo,
		FullyDilutedValuation: fdv,
	}, nil
}

// getJSON performs a rate-limited GET with retries on transient failures and
// decodes the JSON response into out. One logical request is one circuit
// breaker sample, however many retries it takes.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	return c.breaker.Execute(ctx, func() error {
		return c.doJSON(ctx, endpoint, params, out)
	})
}

func (c *Client) doJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	return c.retryCfg.Do(ctx, func(ctx context.Context, attempt int) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
		if err != nil {
			return err
		}
		req.Header.Set("X-API-Key", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer func() {
			_ = resp.Body.Close() // nolint:errcheck // cleanup in defer
		}()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("indexer returned status %d: %s", resp.StatusCode, string(body))
		}

		return json.Unmarshal(body, out)
	})
}
