// Package fetch provides the client for the upstream person data source.
// The pipeline core only consumes the record lists this client returns;
// retry, backoff, and paging policy live entirely here.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/veilpipe/veilpipe/internal/errors"
	"github.com/veilpipe/veilpipe/pkg/types"
)

// maxPerRequest is the upstream's per-call record cap.
const maxPerRequest = 1000

// Client fetches raw person records over HTTP with retry and backoff.
type Client struct {
	baseURL       string
	retryAttempts int
	httpClient    *http.Client
}

// NewClient creates a client for the given base URL. retryAttempts is the
// number of retries after the initial attempt; timeout bounds each request.
func NewClient(baseURL string, retryAttempts int, timeout time.Duration) *Client {
	return &Client{
		baseURL:       baseURL,
		retryAttempts: retryAttempts,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

// envelope is the upstream response wrapper.
type envelope struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Data    []types.RawRecord `json:"data"`
}

// Persons fetches up to quantity person records (capped at maxPerRequest),
// optionally filtered by gender, with birthdays at or after birthdayStart.
// Transient failures (network errors, 429, 5xx) are retried with exponential
// backoff; upstream application errors are not.
func (c *Client) Persons(ctx context.Context, quantity int, gender, birthdayStart string) ([]types.RawRecord, error) {
	if quantity > maxPerRequest {
		log.Printf("[WARN] fetch: quantity %d capped at %d per request", quantity, maxPerRequest)
		quantity = maxPerRequest
	}

	params := url.Values{}
	params.Set("_quantity", fmt.Sprintf("%d", quantity))
	params.Set("_birthday_start", birthdayStart)
	if gender != "" {
		params.Set("_gender", gender)
	}
	requestURL := fmt.Sprintf("%s/persons?%s", c.baseURL, params.Encode())

	body, err := c.getWithRetry(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.NewFetchError(errors.CodeDecodeFailed, "failed to decode response", err)
	}
	if env.Status != "OK" {
		msg := env.Message
		if msg == "" {
			msg = "unknown upstream error"
		}
		return nil, errors.New(errors.ErrCategoryFetch, errors.CodeUpstreamError, msg)
	}
	if len(env.Data) == 0 {
		log.Printf("[WARN] fetch: upstream returned empty data")
	}

	return env.Data, nil
}

// PersonsAll pages through the upstream source until total records are
// collected, at most maxPerRequest per call.
func (c *Client) PersonsAll(ctx context.Context, total int, gender, birthdayStart string) ([]types.RawRecord, error) {
	records := make([]types.RawRecord, 0, total)

	remaining := total
	for remaining > 0 {
		quantity := remaining
		if quantity > maxPerRequest {
			quantity = maxPerRequest
		}

		batch, err := c.Persons(ctx, quantity, gender, birthdayStart)
		if err != nil {
			return nil, err
		}
		records = append(records, batch...)
		remaining -= quantity
		log.Printf("fetch: collected %d of %d records", len(records), total)
	}

	return records, nil
}

// getWithRetry performs a GET, retrying retryable failures with exponential
// backoff and honoring context cancellation.
func (c *Client) getWithRetry(ctx context.Context, requestURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retryAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, err := c.get(ctx, requestURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !errors.IsRetryable(err) {
			return nil, err
		}

		if attempt < c.retryAttempts {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * 100 * time.Millisecond
			log.Printf("[WARN] fetch: attempt %d failed, retrying in %v: %v", attempt+1, backoff, err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return nil, errors.Wrap(errors.ErrCategoryFetch, errors.CodeRetriesExceeded,
		fmt.Sprintf("request failed after %d attempts", c.retryAttempts+1), lastErr)
}

// get performs a single GET. Transport failures and retryable status codes
// come back flagged retryable; everything else is terminal.
func (c *Client) get(ctx context.Context, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, errors.NewFetchError(errors.CodeDecodeFailed, "failed to build request", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewFetchError(errors.CodeRequestFailed, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return nil, errors.NewFetchError(errors.CodeRequestFailed,
			fmt.Sprintf("upstream returned status %d", resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.ErrCategoryFetch, errors.CodeUpstreamError,
			fmt.Sprintf("upstream returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewFetchError(errors.CodeRequestFailed, "failed to read response", err)
	}

	log.Printf("fetch: request completed in %v", time.Since(start).Round(time.Millisecond))
	return body, nil
}
