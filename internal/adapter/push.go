package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/signalhouse/dispatch/internal/config"
	"github.com/signalhouse/dispatch/internal/domain"
)

// pushConcurrency bounds parallel token sends within one job.
const pushConcurrency = 8

// PushAdapter delivers to a push gateway over HTTP, one request per
// device token. A job succeeds only when every token send succeeds;
// tokens the gateway reports as unregistered are surfaced for
// deactivation.
type PushAdapter struct {
	client *http.Client
	url    string
}

// NewPushAdapter creates a new PushAdapter
func NewPushAdapter(cfg config.PushConfig) *PushAdapter {
	return &PushAdapter{
		client: &http.Client{Timeout: cfg.Timeout},
		url:    cfg.GatewayURL,
	}
}

func (a *PushAdapter) Channel() domain.Channel {
	return domain.ChannelPush
}

type pushPayload struct {
	Token string         `json:"token"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

// Send fans out to every active token in parallel and aggregates the
// per-token outcomes into a single adapter error.
func (a *PushAdapter) Send(ctx context.Context, recipient domain.Recipient, msg domain.Message) error {
	if len(recipient.Tokens) == 0 {
		return domain.ErrRecipientMissing
	}

	results := make([]error, len(recipient.Tokens))

	g := new(errgroup.Group)
	g.SetLimit(pushConcurrency)
	for i, token := range recipient.Tokens {
		g.Go(func() error {
			results[i] = a.sendToken(ctx, token.Token, msg)
			return nil
		})
	}
	_ = g.Wait()

	var invalid []string
	var transient, failed int
	var firstErr error
	for _, err := range results {
		if err == nil {
			continue
		}
		failed++
		if firstErr == nil {
			firstErr = err
		}

		var adapterErr *domain.AdapterError
		if errors.As(err, &adapterErr) {
			invalid = append(invalid, adapterErr.Tokens...)
			if adapterErr.Retryable {
				transient++
			}
		} else {
			transient++
		}
	}

	if failed == 0 {
		return nil
	}

	message := fmt.Sprintf("%d of %d token sends failed: %v", failed, len(recipient.Tokens), firstErr)
	var out *domain.AdapterError
	if transient > 0 {
		out = domain.NewTransientAdapterError(message)
	} else {
		out = domain.NewPermanentAdapterError(message)
	}
	out.Tokens = invalid
	return out
}

func (a *PushAdapter) sendToken(ctx context.Context, token string, msg domain.Message) error {
	body, err := json.Marshal(pushPayload{
		Token: token,
		Title: msg.Title,
		Body:  msg.Body,
		Data:  msg.Metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return domain.NewTransientAdapterError(fmt.Sprintf("push request failed: %v", err))
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted:
		return nil

	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		// Unregistered token; stop targeting this device.
		out := domain.NewPermanentAdapterError(fmt.Sprintf("push gateway rejected token: %s", respBody))
		out.Tokens = []string{token}
		return out

	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return domain.NewTransientAdapterError(fmt.Sprintf("push gateway returned %d: %s", resp.StatusCode, respBody))

	default:
		return domain.NewPermanentAdapterError(fmt.Sprintf("push gateway returned %d: %s", resp.StatusCode, respBody))
	}
}
