package expo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	pkgerrors "github.com/aymarr/mediguardian-backend/internal/pkg/errors"
	"github.com/aymarr/mediguardian-backend/internal/pkg/logger"
	"github.com/aymarr/mediguardian-backend/internal/utils"
)

// Expo caps one push request at 100 messages; larger sends must be chunked by
// the caller.
const maxBatchSize = 100

var tokenPattern = regexp.MustCompile(`^Expo(nent)?PushToken\[[^\]]+\]$`)

// IsPushToken reports whether the token has the Expo push token shape.
// Malformed tokens are skipped before a send, never submitted.
func IsPushToken(token string) bool {
	return tokenPattern.MatchString(token)
}

type Message struct {
	To        string         `json:"to"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Sound     string         `json:"sound,omitempty"`
	ChannelID string         `json:"channelId,omitempty"`
	Priority  string         `json:"priority,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

type TicketStatus string

const (
	TicketOK    TicketStatus = "ok"
	TicketError TicketStatus = "error"
)

// Ticket is the per-message delivery receipt returned by the push service.
type Ticket struct {
	To     string       `json:"to,omitempty"`
	ID     string       `json:"id,omitempty"`
	Status TicketStatus `json:"status"`
	Detail string       `json:"detail,omitempty"`
}

// Transport is the outbound push interface the dispatch coordinator uses.
type Transport interface {
	// SendBatch submits at most MaxBatchSize messages and returns one ticket
	// per message, in order.
	SendBatch(ctx context.Context, messages []Message) ([]Ticket, error)
	MaxBatchSize() int
}

type client struct {
	log *logger.Logger

	baseURL     string
	accessToken string

	timeout    time.Duration
	maxRetries int

	httpClient *http.Client
}

func NewClient(log *logger.Logger) (Transport, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	clientLog := log.With("client", "ExpoPush")

	baseURL := strings.TrimRight(utils.GetEnv("EXPO_PUSH_URL", "https://exp.host/--/api/v2/push/send", log), "/")
	accessToken := utils.GetEnv("EXPO_ACCESS_TOKEN", "", log)
	timeoutSec := utils.GetEnvAsInt("EXPO_PUSH_TIMEOUT_SECONDS", 15, log)
	maxRetries := utils.GetEnvAsInt("EXPO_PUSH_MAX_RETRIES", 2, log)
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &client{
		log:         clientLog,
		baseURL:     baseURL,
		accessToken: accessToken,
		timeout:     time.Duration(timeoutSec) * time.Second,
		maxRetries:  maxRetries,
		httpClient:  &http.Client{},
	}, nil
}

func (c *client) MaxBatchSize() int {
	return maxBatchSize
}

type pushResponse struct {
	Data []struct {
		Status  string `json:"status"`
		ID      string `json:"id"`
		Message string `json:"message"`
		Details struct {
			Error string `json:"error"`
		} `json:"details"`
	} `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *client) SendBatch(ctx context.Context, messages []Message) ([]Ticket, error) {
	if len(messages) == 0 {
		return nil, nil
	}
	if len(messages) > maxBatchSize {
		return nil, fmt.Errorf("%w: batch of %d exceeds push transport limit %d", pkgerrors.ErrInvalidArgument, len(messages), maxBatchSize)
	}

	payload, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("encode push batch: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", pkgerrors.ErrTransient, ctx.Err())
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}
		tickets, retryable, err := c.sendOnce(ctx, payload, messages)
		if err == nil {
			return tickets, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		c.log.Warn("Push batch send failed, retrying", "attempt", attempt+1, "error", err)
	}
	return nil, lastErr
}

func (c *client) sendOnce(ctx context.Context, payload []byte, messages []Message) (tickets []Ticket, retryable bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: push send: %v", pkgerrors.ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, true, fmt.Errorf("%w: read push response: %v", pkgerrors.ErrTransient, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("%w: push service returned %d", pkgerrors.ErrTransient, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("push service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed pushResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, false, fmt.Errorf("decode push response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return nil, false, fmt.Errorf("push service error: %s (%s)", parsed.Errors[0].Message, parsed.Errors[0].Code)
	}

	out := make([]Ticket, 0, len(parsed.Data))
	for i, d := range parsed.Data {
		to := ""
		if i < len(messages) {
			to = messages[i].To
		}
		ticket := Ticket{To: to, ID: d.ID, Status: TicketStatus(d.Status)}
		if d.Status != string(TicketOK) {
			ticket.Status = TicketError
			ticket.Detail = d.Message
			if d.Details.Error != "" {
				ticket.Detail = d.Details.Error
			}
		}
		out = append(out, ticket)
	}
	return out, false, nil
}
