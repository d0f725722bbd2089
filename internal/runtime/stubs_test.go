/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubAdapterListServicesSorted(t *testing.T) {
	stub := NewStubAdapter(map[string]string{
		"web": "nginx:1.25",
		"api": "api:v1",
		"db":  "postgres:16",
	})

	services, err := stub.ListServices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "db", "web"}, services)
}

func TestStubAdapterLifecycle(t *testing.T) {
	stub := NewStubAdapter(map[string]string{"web": "nginx:1.25"})

	running, err := stub.IsRunning(context.Background(), "web")
	require.NoError(t, err)
	assert.True(t, running)

	require.NoError(t, stub.Stop(context.Background(), "web"))
	running, err = stub.IsRunning(context.Background(), "web")
	require.NoError(t, err)
	assert.False(t, running)

	require.NoError(t, stub.Start(context.Background(), "web"))
	running, err = stub.IsRunning(context.Background(), "web")
	require.NoError(t, err)
	assert.True(t, running)

	require.NoError(t, stub.SetImage(context.Background(), "web", "nginx:1.27"))
	img, err := stub.GetImage(context.Background(), "web")
	require.NoError(t, err)
	assert.Equal(t, "nginx:1.27", img)
}

func TestStubAdapterUnknownService(t *testing.T) {
	stub := NewStubAdapter(nil)

	_, err := stub.GetImage(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrServiceNotFound)

	_, err = stub.IsRunning(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestStubAdapterForcedFailures(t *testing.T) {
	stub := NewStubAdapter(map[string]string{"web": "nginx:1.25"})
	stub.FailStop["web"] = true
	stub.FailStart["web"] = true
	stub.FailSetImage["web"] = true

	assert.Error(t, stub.Stop(context.Background(), "web"))
	assert.Error(t, stub.Start(context.Background(), "web"))
	assert.Error(t, stub.SetImage(context.Background(), "web", "nginx:1.27"))
}

func TestStubAdapterCallCounting(t *testing.T) {
	stub := NewStubAdapter(map[string]string{"a": "a:v1", "b": "b:v1"})

	require.NoError(t, stub.Stop(context.Background(), "a"))
	require.NoError(t, stub.Stop(context.Background(), "a"))
	require.NoError(t, stub.Stop(context.Background(), "b"))

	assert.Equal(t, 3, stub.CallCount("Stop"))
	assert.Equal(t, 2, stub.ServiceCallCount("Stop", "a"))
	assert.Equal(t, 1, stub.ServiceCallCount("Stop", "b"))
	assert.Equal(t, 0, stub.CallCount("Start"))
}

func TestStubAdapterVolumeExportImport(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "stub-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	stub := NewStubAdapter(nil)
	archive := filepath.Join(tempDir, "vol.tar.gz")

	require.NoError(t, stub.ExportVolume(context.Background(), "vol", archive))
	_, statErr := os.Stat(archive)
	assert.NoError(t, statErr)

	require.NoError(t, stub.ImportVolume(context.Background(), "vol", archive))
	assert.Error(t, stub.ImportVolume(context.Background(), "vol", filepath.Join(tempDir, "missing.tar.gz")))
}
