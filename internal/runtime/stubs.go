/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package runtime

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
)

// StubAdapter provides an in-memory Adapter implementation for testing. It
// tracks every call by method name so tests can assert on exact call counts,
// and lets individual operations be forced to fail per service or volume.
type StubAdapter struct {
	mu sync.Mutex

	// Images maps service name to its current image reference.
	Images map[string]string

	// Running maps service name to its running state.
	Running map[string]bool

	// Volumes maps service name to its attached named volumes.
	Volumes map[string][]string

	// FailStop, FailStart, FailSetImage, FailExport, FailImport force the
	// corresponding operation to fail for the named service or volume.
	FailStop     map[string]bool
	FailStart    map[string]bool
	FailSetImage map[string]bool
	FailExport   map[string]bool
	FailImport   map[string]bool

	// calls counts invocations per method name.
	calls map[string]int

	// perService counts invocations per method+service pair.
	perService map[string]int
}

var _ Adapter = (*StubAdapter)(nil)

// NewStubAdapter creates a stub with the given service -> image mapping, all
// services initially running.
func NewStubAdapter(images map[string]string) *StubAdapter {
	running := make(map[string]bool, len(images))
	imgCopy := make(map[string]string, len(images))
	for svc, img := range images {
		running[svc] = true
		imgCopy[svc] = img
	}
	return &StubAdapter{
		Images:       imgCopy,
		Running:      running,
		Volumes:      make(map[string][]string),
		FailStop:     make(map[string]bool),
		FailStart:    make(map[string]bool),
		FailSetImage: make(map[string]bool),
		FailExport:   make(map[string]bool),
		FailImport:   make(map[string]bool),
		calls:        make(map[string]int),
		perService:   make(map[string]int),
	}
}

func (s *StubAdapter) record(method, target string) {
	s.calls[method]++
	if target != "" {
		s.perService[method+":"+target]++
	}
}

// CallCount returns how many times the named method was invoked.
func (s *StubAdapter) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// ServiceCallCount returns how many times the method was invoked for the
// given service or volume.
func (s *StubAdapter) ServiceCallCount(method, target string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perService[method+":"+target]
}

func (s *StubAdapter) ListServices(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ListServices", "")

	services := make([]string, 0, len(s.Images))
	for svc := range s.Images {
		services = append(services, svc)
	}
	sort.Strings(services)
	return services, nil
}

func (s *StubAdapter) GetImage(ctx context.Context, service string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetImage", service)

	img, ok := s.Images[service]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrServiceNotFound, service)
	}
	return img, nil
}

func (s *StubAdapter) IsRunning(ctx context.Context, service string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("IsRunning", service)

	if _, ok := s.Images[service]; !ok {
		return false, fmt.Errorf("%w: %s", ErrServiceNotFound, service)
	}
	return s.Running[service], nil
}

func (s *StubAdapter) Stop(ctx context.Context, service string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Stop", service)

	if s.FailStop[service] {
		return fmt.Errorf("forced stop failure for %s", service)
	}
	s.Running[service] = false
	return nil
}

func (s *StubAdapter) Start(ctx context.Context, service string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Start", service)

	if s.FailStart[service] {
		return fmt.Errorf("forced start failure for %s", service)
	}
	s.Running[service] = true
	return nil
}

func (s *StubAdapter) SetImage(ctx context.Context, service string, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SetImage", service)

	if s.FailSetImage[service] {
		return fmt.Errorf("forced image restore failure for %s", service)
	}
	if _, ok := s.Images[service]; !ok {
		return fmt.Errorf("%w: %s", ErrServiceNotFound, service)
	}
	s.Images[service] = ref
	return nil
}

func (s *StubAdapter) ServiceVolumes(ctx context.Context, service string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ServiceVolumes", service)
	return append([]string(nil), s.Volumes[service]...), nil
}

func (s *StubAdapter) ExportVolume(ctx context.Context, volume string, destPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ExportVolume", volume)

	if s.FailExport[volume] {
		return fmt.Errorf("forced export failure for %s", volume)
	}
	// Write a small placeholder archive so the staged file exists on disk.
	return os.WriteFile(destPath, []byte("stub-archive:"+volume), 0644)
}

func (s *StubAdapter) ImportVolume(ctx context.Context, volume string, srcPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ImportVolume", volume)

	if s.FailImport[volume] {
		return fmt.Errorf("forced import failure for %s", volume)
	}
	if _, err := os.Stat(srcPath); err != nil {
		return fmt.Errorf("archive missing for volume %s: %w", volume, err)
	}
	return nil
}

func (s *StubAdapter) SignalService(ctx context.Context, service string, signal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SignalService", service)
	return nil
}

func (s *StubAdapter) ExecInService(ctx context.Context, service string, cmd []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ExecInService", service)
	return nil
}
