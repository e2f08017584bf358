package extractor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/aymarr/mediguardian-backend/internal/pkg/errors"
	"github.com/aymarr/mediguardian-backend/internal/pkg/logger"
	"github.com/aymarr/mediguardian-backend/internal/utils"
)

// httpClient talks to the external embedding service. Calls are bounded by a
// timeout and a small retry budget; anything past that surfaces as a
// transient failure for the caller layer to handle.
type httpClient struct {
	log *logger.Logger

	baseURL string
	apiKey  string

	timeout    time.Duration
	maxRetries int

	hc *http.Client
}

func NewHTTPClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	clientLog := log.With("client", "ExtractorHTTP")

	baseURL := strings.TrimRight(strings.TrimSpace(utils.GetEnv("EXTRACTOR_URL", "", log)), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing EXTRACTOR_URL")
	}
	apiKey := utils.GetEnv("EXTRACTOR_API_KEY", "", log)
	timeoutSec := utils.GetEnvAsInt("EXTRACTOR_TIMEOUT_SECONDS", 30, log)
	maxRetries := utils.GetEnvAsInt("EXTRACTOR_MAX_RETRIES", 1, log)
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &httpClient{
		log:        clientLog,
		baseURL:    baseURL,
		apiKey:     apiKey,
		timeout:    time.Duration(timeoutSec) * time.Second,
		maxRetries: maxRetries,
		hc:         &http.Client{},
	}, nil
}

type embedRequest struct {
	Image   string `json:"image"`
	Augment bool   `json:"augment,omitempty"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

func (c *httpClient) Extract(ctx context.Context, image []byte) ([]float64, error) {
	return c.embed(ctx, image, false)
}

// ExtractForRegistration runs two passes, plain and augmented, and averages
// them so the stored vector is less sensitive to the single registration
// photo's lighting.
func (c *httpClient) ExtractForRegistration(ctx context.Context, image []byte) (*Result, error) {
	plain, err := c.embed(ctx, image, false)
	if err != nil {
		return nil, err
	}
	augmented, err := c.embed(ctx, image, true)
	if err != nil {
		return nil, err
	}
	if len(augmented) != len(plain) {
		return nil, fmt.Errorf("extractor returned inconsistent vector lengths: %d vs %d", len(plain), len(augmented))
	}
	avg := make([]float64, len(plain))
	for i := range plain {
		avg[i] = (plain[i] + augmented[i]) / 2
	}
	return &Result{Vector: avg, Confidence: 1.0, FeatureCount: len(avg)}, nil
}

func (c *httpClient) embed(ctx context.Context, image []byte, augment bool) ([]float64, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", pkgerrors.ErrInvalidArgument)
	}

	payload, err := json.Marshal(embedRequest{
		Image:   base64.StdEncoding.EncodeToString(image),
		Augment: augment,
	})
	if err != nil {
		return nil, fmt.Errorf("encode embed request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", pkgerrors.ErrTransient, ctx.Err())
			case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
			}
		}
		vec, retryable, err := c.embedOnce(ctx, payload)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		c.log.Warn("Embedding request failed, retrying", "attempt", attempt+1, "error", err)
	}
	return nil, lastErr
}

func (c *httpClient) embedOnce(ctx context.Context, payload []byte) (vec []float64, retryable bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: embed: %v", pkgerrors.ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, true, fmt.Errorf("%w: read embed response: %v", pkgerrors.ErrTransient, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		// Undecodable or malformed image: reject, never retry.
		return nil, false, fmt.Errorf("%w: extractor rejected image: %s", pkgerrors.ErrInvalidArgument, strings.TrimSpace(string(body)))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("%w: extractor returned %d", pkgerrors.ErrTransient, resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("extractor returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed embedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, false, fmt.Errorf("decode embed response: %w", err)
	}
	if parsed.Error != "" {
		return nil, false, fmt.Errorf("extractor error: %s", parsed.Error)
	}
	if len(parsed.Embedding) == 0 {
		return nil, false, fmt.Errorf("extractor returned an empty embedding")
	}
	return parsed.Embedding, false, nil
}
