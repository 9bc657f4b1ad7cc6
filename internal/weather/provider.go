package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"weatherapi/m/domain"
)

// Provider fetches current weather for a city from the upstream source.
type Provider interface {
	Fetch(ctx context.Context, city string) (domain.Payload, error)
}

// maxPayloadBytes bounds how much of an upstream response is read.
const maxPayloadBytes = 1 << 20

// OpenWeatherClient calls the OpenWeatherMap current-weather endpoint.
type OpenWeatherClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewOpenWeatherClient constructs a client with the given request timeout.
func NewOpenWeatherClient(baseURL, apiKey string, timeout time.Duration) *OpenWeatherClient {
	return &OpenWeatherClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Fetch returns the provider's JSON body unchanged. Transport errors,
// non-2xx statuses and non-JSON bodies are all failures.
func (c *OpenWeatherClient) Fetch(ctx context.Context, city string) (domain.Payload, error) {
	u, err := url.Parse(c.baseURL + "/data/2.5/weather")
	if err != nil {
		return nil, fmt.Errorf("invalid provider url: %w", err)
	}
	q := u.Query()
	q.Set("q", city)
	q.Set("appid", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("provider returned invalid JSON")
	}
	return domain.Payload(body), nil
}
