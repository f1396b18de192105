package openweathermap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/weather-tracker/internal/domain"
	"github.com/couchcryptid/weather-tracker/internal/observability"
	json "github.com/goccy/go-json"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public OpenWeatherMap API root.
const DefaultBaseURL = "https://api.openweathermap.org"

var (
	errEmptyWeather = errors.New("response has no weather conditions")
	errCircuitOpen  = errors.New("circuit breaker open")
)

// Client implements domain.WeatherLookup using the OpenWeatherMap current
// weather endpoint. Requests are rate limited and guarded by a circuit breaker;
// failed requests are not retried.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	circuit    *gobreaker.CircuitBreaker
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	Burst     int
}

// NewClient creates an OpenWeatherMap client.
func NewClient(apiKey string, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 1
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}

	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		baseURL: opts.BaseURL,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst),
		circuit: newCircuit(logger),
		metrics: metrics,
		logger:  logger,
	}
}

func newCircuit(logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweathermap",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
}

// Current fetches the current weather at coord in metric units.
func (c *Client) Current(ctx context.Context, coord domain.Coordinate) (domain.WeatherSnapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		c.metrics.LookupRequests.WithLabelValues("rejected").Inc()
		return domain.WeatherSnapshot{}, fmt.Errorf("rate limit: %w", err)
	}

	params := url.Values{
		"lat":   {strconv.FormatFloat(coord.Lat, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(coord.Lon, 'f', -1, 64)},
		"units": {"metric"},
		"appid": {c.apiKey},
	}
	fullURL := c.baseURL + "/data/2.5/weather?" + params.Encode()

	start := time.Now()
	result, err := c.circuit.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, fullURL)
	})
	c.metrics.LookupDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.metrics.LookupRequests.WithLabelValues("rejected").Inc()
			return domain.WeatherSnapshot{}, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		c.metrics.LookupRequests.WithLabelValues("error").Inc()
		return domain.WeatherSnapshot{}, err
	}

	c.metrics.LookupRequests.WithLabelValues("success").Inc()
	snap, _ := result.(domain.WeatherSnapshot)
	c.logger.Debug("weather lookup", "lat", coord.Lat, "lon", coord.Lon, "provider_id", snap.ProviderLocationID)
	return snap, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.WeatherSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.WeatherSnapshot{}, fmt.Errorf("openweathermap API error: status %d: %s", resp.StatusCode, body)
	}

	var owmResp response
	if err := json.NewDecoder(resp.Body).Decode(&owmResp); err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("decode response: %w", err)
	}
	if owmResp.Cod != 0 && owmResp.Cod != http.StatusOK {
		return domain.WeatherSnapshot{}, fmt.Errorf("openweathermap API error: cod %d: %s", owmResp.Cod, owmResp.Message)
	}
	if len(owmResp.Weather) == 0 {
		return domain.WeatherSnapshot{}, errEmptyWeather
	}

	return domain.WeatherSnapshot{
		ProviderLocationID: owmResp.ID,
		TemperatureCelsius: owmResp.Main.Temp,
		IconCode:           owmResp.Weather[0].Icon,
		Description:        owmResp.Weather[0].Description,
	}, nil
}

// OpenWeatherMap API response types.

type response struct {
	ID      int64       `json:"id"`
	Name    string      `json:"name"`
	Cod     statusCode  `json:"cod"`
	Message string      `json:"message"`
	Main    mainBlock   `json:"main"`
	Weather []condition `json:"weather"`
}

type mainBlock struct {
	Temp float64 `json:"temp"`
}

type condition struct {
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// statusCode accepts "cod" as either a number or a numeric string; the API
// sends both depending on the endpoint and outcome.
type statusCode int

func (s *statusCode) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		n, err := strconv.Atoi(str)
		if err != nil {
			return fmt.Errorf("cod %q: %w", str, err)
		}
		*s = statusCode(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = statusCode(n)
	return nil
}
