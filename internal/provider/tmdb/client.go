package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Digital-Shane/moviedb/internal/provider"
	"github.com/google/uuid"
)

const (
	// DefaultBaseURL is the v3 API root.
	DefaultBaseURL = "https://api.themoviedb.org/3"

	acceptHeader = "application/json,image/*"
)

// apiClient issues throttled GET requests against the service and decodes
// JSON bodies. Every call, including fallbacks, settings and searches, passes
// through the shared limiter.
type apiClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	userAgent  string
	limiter    *rateLimiter
	logger     *slog.Logger
}

// get fetches path with query and decodes the body into out.
func (c *apiClient) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.wait(ctx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := url.Values{}
	for k, v := range query {
		params[k] = append([]string(nil), v...)
	}
	params.Set("api_key", c.apiKey)

	endpoint := c.baseURL + path + "?" + params.Encode()
	requestID := uuid.NewString()
	logger := c.logger.With(slog.String("request_id", requestID), slog.String("path", path))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logger.Warn("tmdb request failed", slog.String("error", err.Error()))
		return &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeTransient,
			Message:  "request " + path + " failed",
			Retry:    true,
			Err:      err,
		}
	}
	defer resp.Body.Close()

	logger.Debug("tmdb response",
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		perr := mapStatus(resp, path)
		if perr.Code == provider.CodeNotFound {
			logger.Debug("tmdb record not found")
		} else {
			logger.Warn("tmdb request rejected", slog.Int("status", resp.StatusCode), slog.String("code", perr.Code))
		}
		return perr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeMalformed,
			Message:  "decode " + path,
			Err:      err,
		}
	}
	return nil
}

// mapStatus maps a non-success response to a provider error
func mapStatus(resp *http.Response, path string) *provider.ProviderError {
	switch resp.StatusCode {
	case http.StatusNotFound:
		return &provider.ProviderError{
			Provider:   providerName,
			Code:       provider.CodeNotFound,
			Message:    "no record at " + path,
			StatusCode: resp.StatusCode,
		}
	case http.StatusUnauthorized:
		return &provider.ProviderError{
			Provider:   providerName,
			Code:       provider.CodeAuthFailed,
			Message:    "TMDB authentication failed",
			StatusCode: resp.StatusCode,
			Retry:      false,
		}
	case http.StatusTooManyRequests:
		retryAfter := 10
		if v, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After"))); err == nil && v > 0 {
			retryAfter = v
		}
		return &provider.ProviderError{
			Provider:   providerName,
			Code:       provider.CodeRateLimited,
			Message:    "TMDB rate limit exceeded",
			StatusCode: resp.StatusCode,
			Retry:      true,
			RetryAfter: retryAfter,
		}
	}

	return &provider.ProviderError{
		Provider:   providerName,
		Code:       provider.CodeTransient,
		Message:    fmt.Sprintf("TMDB returned %d for %s", resp.StatusCode, path),
		StatusCode: resp.StatusCode,
		Retry:      resp.StatusCode >= 500,
	}
}

// mapError maps errors from the go-tmdb search client, which only exposes
// status information through the message text.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "404") || strings.Contains(errStr, "not found"):
		return &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeNotFound,
			Message:  "TMDB search found nothing",
			Err:      err,
		}
	case strings.Contains(errStr, "401") || strings.Contains(errStr, "unauthorized"):
		return &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeAuthFailed,
			Message:  "TMDB authentication failed",
			Err:      err,
		}
	case strings.Contains(errStr, "429") || strings.Contains(errStr, "rate limit"):
		return &provider.ProviderError{
			Provider:   providerName,
			Code:       provider.CodeRateLimited,
			Message:    "TMDB rate limit exceeded",
			Retry:      true,
			RetryAfter: 10,
			Err:        err,
		}
	case strings.Contains(errStr, "invalid character") || strings.Contains(errStr, "cannot unmarshal"):
		return &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeMalformed,
			Message:  "TMDB search response could not be decoded",
			Err:      err,
		}
	}

	return &provider.ProviderError{
		Provider: providerName,
		Code:     provider.CodeTransient,
		Message:  "TMDB search failed",
		Retry:    true,
		Err:      err,
	}
}
