package quote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"marketwatch-backend/internal/types"

	log "github.com/sirupsen/logrus"
)

const (
	fmpBase = "https://financialmodelingprep.com/stable"

	// maxConcurrent caps in-flight quote requests, staying well under the
	// FMP 300 calls/min limit.
	maxConcurrent = 10
)

// Client fetches quotes from the FMP stable API.
type Client struct {
	apiKey     string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// BatchQuotes fetches the latest quote for each symbol concurrently. Symbols
// that fail to price are omitted from the result; partial results are valid.
func (c *Client) BatchQuotes(ctx context.Context, symbols []string) map[string]types.Quote {
	quotes := make(map[string]types.Quote, len(symbols))
	if len(symbols) == 0 {
		return quotes
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, maxConcurrent)
	)

	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			q, ok := c.fetchSingle(ctx, symbol)
			if !ok {
				return
			}

			mu.Lock()
			quotes[symbol] = q
			mu.Unlock()
		}(symbol)
	}

	wg.Wait()
	return quotes
}

func (c *Client) fetchSingle(ctx context.Context, symbol string) (types.Quote, bool) {
	endpoint := fmpBase + "/quote?" + url.Values{
		"symbol": {symbol},
		"apikey": {c.apiKey},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		log.Errorf("failed to build quote request for %s: %v", symbol, err)
		return types.Quote{}, false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Errorf("FMP quote error for %s: %v", symbol, err)
		return types.Quote{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Errorf("FMP quote error for %s: status %d", symbol, resp.StatusCode)
		return types.Quote{}, false
	}

	var payload []struct {
		Symbol           string  `json:"symbol"`
		Name             string  `json:"name"`
		Price            float64 `json:"price"`
		ChangePercentage float64 `json:"changePercentage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		log.Errorf("failed to parse FMP quote for %s: %v", symbol, err)
		return types.Quote{}, false
	}
	if len(payload) == 0 {
		return types.Quote{}, false
	}

	return types.Quote{
		Price:     payload[0].Price,
		ChangePct: payload[0].ChangePercentage,
		Name:      payload[0].Name,
	}, true
}
