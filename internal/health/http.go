/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package health

import (
	"context"
	"fmt"
	"net/http"
)

// HTTPHealthChecker implements the HealthChecker interface using HTTP requests.
type HTTPHealthChecker struct {
	*BaseChecker
	httpClient *http.Client
}

var _ HealthChecker = (*HTTPHealthChecker)(nil)

// NewHTTPHealthChecker creates a new health checker that uses HTTP requests.
func NewHTTPHealthChecker(config HealthCheckConfig) (*HTTPHealthChecker, error) {
	if config.Type == "" {
		config.Type = HTTPHealthCheck
	} else if config.Type != HTTPHealthCheck {
		return nil, fmt.Errorf("invalid health check type for HTTPHealthChecker: %s", config.Type)
	}

	baseChecker, err := NewBaseChecker(HTTPHealthCheck, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create base checker: %w", err)
	}

	httpClient := &http.Client{
		Timeout: baseChecker.Config.Timeout,
	}

	return &HTTPHealthChecker{
		BaseChecker: baseChecker,
		httpClient:  httpClient,
	}, nil
}

// URL returns the endpoint polled for the given service.
func (h *HTTPHealthChecker) URL() string {
	if h.Config.Port > 0 {
		return fmt.Sprintf("http://%s:%d%s", h.Config.Host, h.Config.Port, h.Config.Endpoint)
	}
	return fmt.Sprintf("http://%s%s", h.Config.Host, h.Config.Endpoint)
}

// Check performs a health check on the specified service using an HTTP request.
func (h *HTTPHealthChecker) Check(ctx context.Context, service string) (bool, error) {
	result, err := h.CheckWithDetails(ctx, service)
	return result.Healthy, err
}

// CheckWithDetails performs an HTTP health check and returns detailed information.
func (h *HTTPHealthChecker) CheckWithDetails(ctx context.Context, service string) (HealthCheckResult, error) {
	targetURL := h.URL()

	checkCtx, cancel := context.WithTimeout(ctx, h.Config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, targetURL, nil)
	if err != nil {
		message := fmt.Sprintf("Failed to create HTTP request for %s: %v", targetURL, err)
		h.UpdateStatus(false, message)
		return h.CreateHealthCheckResult(), fmt.Errorf("%s", message)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		message := fmt.Sprintf("HTTP request failed for %s: %v", targetURL, err)
		h.UpdateStatus(false, message)
		return h.CreateHealthCheckResult(), fmt.Errorf("%s", message)
	}
	defer resp.Body.Close()

	// Any 2xx response counts as healthy
	var healthy bool
	var message string
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		healthy = true
		message = fmt.Sprintf("HTTP check successful for %s: Status %d", targetURL, resp.StatusCode)
	} else {
		healthy = false
		message = fmt.Sprintf("HTTP check failed for %s: Status %d", targetURL, resp.StatusCode)
	}

	h.UpdateStatus(healthy, message)
	return h.CreateHealthCheckResult(), nil
}
