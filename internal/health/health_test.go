/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package health

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dosnap/internal/runtime"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name        string
		config      HealthCheckConfig
		expectError bool
	}{
		{
			name:        "Valid docker config",
			config:      HealthCheckConfig{Type: DockerHealthCheck},
			expectError: false,
		},
		{
			name:        "Invalid type",
			config:      HealthCheckConfig{Type: "telepathy"},
			expectError: true,
		},
		{
			name:        "HTTP requires endpoint",
			config:      HealthCheckConfig{Type: HTTPHealthCheck, Port: 8080},
			expectError: true,
		},
		{
			name:        "TCP requires port",
			config:      HealthCheckConfig{Type: TCPHealthCheck},
			expectError: true,
		},
		{
			name:        "TCP port too large",
			config:      HealthCheckConfig{Type: TCPHealthCheck, Port: 70000},
			expectError: true,
		},
		{
			name:        "Command requires command",
			config:      HealthCheckConfig{Type: CommandHealthCheck},
			expectError: true,
		},
		{
			name:        "Timeout below minimum",
			config:      HealthCheckConfig{Type: DockerHealthCheck, Timeout: 500 * time.Millisecond},
			expectError: true,
		},
		{
			name:        "Timeout above maximum",
			config:      HealthCheckConfig{Type: DockerHealthCheck, Timeout: 10 * time.Minute},
			expectError: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateConfig(&tc.config)
			if tc.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateConfigAppliesDefaults(t *testing.T) {
	config := HealthCheckConfig{Type: DockerHealthCheck}
	require.NoError(t, ValidateConfig(&config))

	assert.Equal(t, DefaultTimeout, config.Timeout)
	assert.Equal(t, DefaultRetryInterval, config.RetryInterval)
	assert.Equal(t, DefaultSuccessThreshold, config.SuccessThreshold)
	assert.Equal(t, DefaultFailureThreshold, config.FailureThreshold)
	assert.Equal(t, DefaultHost, config.Host)
}

func TestValidateConfigNormalizesEndpoint(t *testing.T) {
	config := HealthCheckConfig{Type: HTTPHealthCheck, Endpoint: "healthz"}
	require.NoError(t, ValidateConfig(&config))
	assert.Equal(t, "/healthz", config.Endpoint)
}

func TestDockerHealthChecker(t *testing.T) {
	adapter := runtime.NewStubAdapter(map[string]string{"web": "nginx:1.25"})

	checker, err := NewDockerHealthChecker(HealthCheckConfig{Type: DockerHealthCheck}, adapter)
	require.NoError(t, err)
	assert.Equal(t, DockerHealthCheck, checker.GetType())

	healthy, err := checker.Check(context.Background(), "web")
	require.NoError(t, err)
	assert.True(t, healthy)

	adapter.Running["web"] = false
	result, err := checker.CheckWithDetails(context.Background(), "web")
	require.NoError(t, err)
	assert.False(t, result.Healthy)
	assert.Contains(t, result.Message, "not running")
}

func TestDockerHealthCheckerUnknownService(t *testing.T) {
	adapter := runtime.NewStubAdapter(nil)

	checker, err := NewDockerHealthChecker(HealthCheckConfig{}, adapter)
	require.NoError(t, err)

	healthy, err := checker.Check(context.Background(), "ghost")
	assert.Error(t, err)
	assert.False(t, healthy)
}

func TestDockerHealthCheckerRequiresAdapter(t *testing.T) {
	_, err := NewDockerHealthChecker(HealthCheckConfig{}, nil)
	assert.Error(t, err)
}

func hostPort(t *testing.T, rawURL string) (string, int) {
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return u.Hostname(), port
}

func TestHTTPHealthChecker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	host, port := hostPort(t, server.URL)

	checker, err := NewHTTPHealthChecker(HealthCheckConfig{
		Type:     HTTPHealthCheck,
		Host:     host,
		Port:     port,
		Endpoint: "/healthz",
	})
	require.NoError(t, err)

	healthy, err := checker.Check(context.Background(), "web")
	require.NoError(t, err)
	assert.True(t, healthy)
}

func TestHTTPHealthCheckerNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	host, port := hostPort(t, server.URL)

	checker, err := NewHTTPHealthChecker(HealthCheckConfig{
		Type:     HTTPHealthCheck,
		Host:     host,
		Port:     port,
		Endpoint: "/healthz",
	})
	require.NoError(t, err)

	healthy, err := checker.Check(context.Background(), "web")
	require.NoError(t, err)
	assert.False(t, healthy)
}

func TestHTTPHealthCheckerURL(t *testing.T) {
	checker, err := NewHTTPHealthChecker(HealthCheckConfig{
		Type:     HTTPHealthCheck,
		Port:     8080,
		Endpoint: "/status",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/status", checker.URL())
}

func TestTCPHealthChecker(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	port := listener.Addr().(*net.TCPAddr).Port

	checker, err := NewTCPHealthChecker(HealthCheckConfig{
		Type: TCPHealthCheck,
		Host: "127.0.0.1",
		Port: port,
	})
	require.NoError(t, err)

	healthy, err := checker.Check(context.Background(), "db")
	require.NoError(t, err)
	assert.True(t, healthy)

	// A closed port reports unhealthy without raising.
	listener.Close()
	healthy, err = checker.Check(context.Background(), "db")
	require.NoError(t, err)
	assert.False(t, healthy)
}

func TestCommandHealthChecker(t *testing.T) {
	adapter := runtime.NewStubAdapter(map[string]string{"redis": "redis:7"})

	checker, err := NewCommandHealthChecker(HealthCheckConfig{
		Type:    CommandHealthCheck,
		Command: "redis-cli PING",
	}, adapter)
	require.NoError(t, err)

	healthy, err := checker.Check(context.Background(), "redis")
	require.NoError(t, err)
	assert.True(t, healthy)
	assert.Equal(t, 1, adapter.ServiceCallCount("ExecInService", "redis"))
}

func TestNewHealthCheckerFactory(t *testing.T) {
	adapter := runtime.NewStubAdapter(map[string]string{"svc": "img:v1"})

	tests := []struct {
		name         string
		config       HealthCheckConfig
		expectedType HealthCheckType
		expectError  bool
	}{
		{
			name:         "Docker",
			config:       HealthCheckConfig{Type: DockerHealthCheck},
			expectedType: DockerHealthCheck,
		},
		{
			name:         "HTTP",
			config:       HealthCheckConfig{Type: HTTPHealthCheck, Port: 8080, Endpoint: "/health"},
			expectedType: HTTPHealthCheck,
		},
		{
			name:         "TCP",
			config:       HealthCheckConfig{Type: TCPHealthCheck, Port: 5432},
			expectedType: TCPHealthCheck,
		},
		{
			name:         "Command",
			config:       HealthCheckConfig{Type: CommandHealthCheck, Command: "true"},
			expectedType: CommandHealthCheck,
		},
		{
			name:        "Empty type",
			config:      HealthCheckConfig{},
			expectError: true,
		},
		{
			name:        "Unknown type",
			config:      HealthCheckConfig{Type: "telepathy"},
			expectError: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			checker, err := NewHealthChecker(tc.config, adapter)
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedType, checker.GetType())
		})
	}
}

func TestBaseCheckerThresholds(t *testing.T) {
	base, err := NewBaseChecker(DockerHealthCheck, HealthCheckConfig{
		Type:             DockerHealthCheck,
		SuccessThreshold: 2,
		FailureThreshold: 2,
	})
	require.NoError(t, err)

	base.UpdateStatus(true, "first success")
	healthy, _, _ := base.GetStatus()
	assert.False(t, healthy, "one success is below the threshold of two")

	base.UpdateStatus(true, "second success")
	healthy, _, _ = base.GetStatus()
	assert.True(t, healthy)

	// One failure resets the success streak but not yet the status.
	base.UpdateStatus(false, "first failure")
	healthy, _, _ = base.GetStatus()
	assert.True(t, healthy)

	base.UpdateStatus(false, "second failure")
	healthy, _, _ = base.GetStatus()
	assert.False(t, healthy)
}

func TestStubHealthCheckerCountsChecks(t *testing.T) {
	stub := NewStubHealthChecker(DockerHealthCheck, true)

	healthy, err := stub.Check(context.Background(), "svc")
	require.NoError(t, err)
	assert.True(t, healthy)

	_, err = stub.CheckWithDetails(context.Background(), "svc")
	require.NoError(t, err)
	assert.Equal(t, 2, stub.Checks)
}
