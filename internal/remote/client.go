package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"planethub/pkg/models"
)

const maxBodyBytes = 8 << 20

// Catalog is implemented by anything that can produce the remote planet list.
type Catalog interface {
	FetchCatalog(ctx context.Context) ([]models.Planet, error)
}

// Client fetches the planet list from the remote API with a single GET.
// It never retries; the caller decides whether to try again on its next pass.
type Client struct {
	URL     string
	HTTP    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewClient(url string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		URL:    url,
		HTTP:   &http.Client{Timeout: timeout},
		logger: logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "planets-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name), zap.Stringer("from", from), zap.Stringer("to", to))
		},
		// only an unreachable or failing server trips the breaker
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var fe *FetchError
			if errors.As(err, &fe) {
				switch fe.Kind {
				case KindShape:
					return true
				case KindStatus:
					return fe.Code < 500
				}
			}
			return false
		},
	})
	return c
}

// FetchCatalog returns the normalized remote planets or a *FetchError.
func (c *Client) FetchCatalog(ctx context.Context) ([]models.Planet, error) {
	out, err := c.breaker.Execute(func() (any, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &FetchError{Kind: KindTransport, Err: err}
		}
		c.logger.Warn("fetch catalog failed", zap.String("url", c.URL), zap.Error(err))
		return nil, err
	}
	planets := out.([]models.Planet)
	c.logger.Debug("fetched catalog", zap.String("url", c.URL), zap.Int("planets", len(planets)))
	return planets, nil
}

// FetchRaw returns the response body untouched once it is known to be a
// valid JSON array. export-mirror snapshots it for the mirror server.
func (c *Client) FetchRaw(ctx context.Context) ([]byte, error) {
	out, err := c.breaker.Execute(func() (any, error) {
		body, err := c.get(ctx)
		if err != nil {
			return nil, err
		}
		trimmed := bytes.TrimSpace(body)
		if len(trimmed) == 0 || trimmed[0] != '[' || !json.Valid(trimmed) {
			return nil, &FetchError{Kind: KindShape, Err: errors.New("response body is not a JSON array")}
		}
		return trimmed, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &FetchError{Kind: KindTransport, Err: err}
		}
		return nil, err
	}
	return out.([]byte), nil
}

func (c *Client) fetch(ctx context.Context) ([]models.Planet, error) {
	body, err := c.get(ctx)
	if err != nil {
		return nil, err
	}
	return decodeCatalog(body)
}

func (c *Client) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			Kind: KindStatus,
			Code: resp.StatusCode,
			Err:  errors.New(string(bytes.TrimSpace(snippet(body)))),
		}
	}
	return body, nil
}

func decodeCatalog(body []byte) ([]models.Planet, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &FetchError{Kind: KindShape, Err: errors.New("response body is not a JSON array")}
	}

	var raw []rawPlanet
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, &FetchError{Kind: KindShape, Err: fmt.Errorf("decode json: %w", err)}
	}

	planets := make([]models.Planet, 0, len(raw))
	for _, r := range raw {
		p := normalize(r)
		if p.Name == "" {
			continue
		}
		planets = append(planets, p)
	}
	return planets, nil
}

func snippet(b []byte) []byte {
	if len(b) > 256 {
		return b[:256]
	}
	return b
}
