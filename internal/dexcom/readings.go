package dexcom

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/mrcode/glucoshare/internal/models"
)

// Vendor limits for a single glucose request
const (
	MaxMinutes  = 1440
	MaxMaxCount = 288
)

// FetchReadings returns up to maxCount raw readings from the last minutes,
// newest first as delivered by the service. A rejected session is
// re-established and the request repeated at most the configured number of
// times.
func (c *Client) FetchReadings(ctx context.Context, minutes, maxCount int) ([]models.RawReading, error) {
	if minutes < 1 || minutes > MaxMinutes {
		return nil, &ConfigurationError{Field: "minutes", Reason: fmt.Sprintf("must be between 1 and %d", MaxMinutes)}
	}
	if maxCount < 1 || maxCount > MaxMaxCount {
		return nil, &ConfigurationError{Field: "max count", Reason: fmt.Sprintf("must be between 1 and %d", MaxMaxCount)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	readings, err := withSessionRetry(ctx, c.sessionRetries, func(err error) {
		c.logger.Warn("dexcom session rejected, re-authenticating", "error", err)
		c.recorder.RecordSessionRetry()
		c.invalidateLocked()
	}, func(ctx context.Context) ([]models.RawReading, error) {
		return c.fetchOnceLocked(ctx, minutes, maxCount)
	})
	if err != nil {
		c.recorder.RecordFetch("error", time.Since(start))
		return nil, err
	}

	c.recorder.RecordFetch("success", time.Since(start))
	c.logger.Debug("dexcom readings fetched", "count", len(readings), "minutes", minutes, "maxCount", maxCount)

	return readings, nil
}

// FetchCurrent returns the newest reading of the last ten minutes, or nil
// when there is none
func (c *Client) FetchCurrent(ctx context.Context) (*models.RawReading, error) {
	readings, err := c.FetchReadings(ctx, 10, 1)
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, nil
	}
	return &readings[0], nil
}

// fetchOnceLocked runs a single glucose request. Session rejections are
// returned unwrapped so the retry loop can recognize them.
func (c *Client) fetchOnceLocked(ctx context.Context, minutes, maxCount int) ([]models.RawReading, error) {
	session, err := c.ensureSessionLocked(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("sessionId", string(session.Token))
	params.Set("minutes", strconv.Itoa(minutes))
	params.Set("maxCount", strconv.Itoa(maxCount))

	body, err := c.post(ctx, endpointReadings, params, struct{}{})
	if err != nil {
		if IsSessionInvalid(err) {
			return nil, err
		}
		return nil, &DataFetchError{Attempts: 1, Err: err}
	}

	var readings []models.RawReading
	if err := json.Unmarshal(body, &readings); err != nil {
		return nil, &DataFetchError{Attempts: 1, Err: fmt.Errorf("parsing readings: %w", err)}
	}
	if readings == nil {
		readings = []models.RawReading{}
	}

	return readings, nil
}

// withSessionRetry runs fn, calling onInvalid and retrying while fn reports a
// rejected session, up to maxRetries extra attempts. Other errors end the
// loop immediately.
func withSessionRetry[T any](ctx context.Context, maxRetries int, onInvalid func(error), fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if !IsSessionInvalid(err) {
			return zero, err
		}
		if attempt >= maxRetries {
			return zero, &DataFetchError{Attempts: attempt + 1, Err: err}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, &DataFetchError{Attempts: attempt + 1, Err: ctxErr}
		}
		onInvalid(err)
	}
}
