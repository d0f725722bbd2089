/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package rollback

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/distribution/reference"

	"dosnap/internal/dependency"
	"dosnap/internal/history"
	"dosnap/internal/logx"
	"dosnap/internal/runtime"
	"dosnap/internal/strategy"
)

// idAttempts bounds how often id generation retries on collision.
const idAttempts = 5

// Manager orchestrates rollback point creation, listing, deletion and
// full-system restores. Creation never touches running services; restores
// are best-effort per service from the stop phase onward, and always attempt
// to start every targeted service so a partial failure never leaves the
// whole stack down.
type Manager struct {
	Repo     *Repository
	Configs  *ConfigStore
	Archiver *Archiver

	adapter    runtime.Adapter
	strategies map[string]strategy.RollbackStrategy
	fallback   strategy.RollbackStrategy
	graph      *dependency.Graph
	history    *history.Collector
	logger     logx.Logger
	cfg        ManagerConfig
}

// NewManager creates a rollback manager. Strategies are resolved once here,
// from the configured service kinds; services without configuration get the
// generic strategy.
func NewManager(cfg ManagerConfig, adapter runtime.Adapter, logger logx.Logger) (*Manager, error) {
	if adapter == nil {
		return nil, fmt.Errorf("runtime adapter is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rollback configuration: %w", err)
	}
	cfg.ApplyDefaults()

	if logger == nil {
		logger = logx.NewDefaultLogger()
	}

	repo, err := NewRepository(cfg.BackupRoot, logger)
	if err != nil {
		return nil, WrapError(err, "repository", "failed to create repository", "")
	}
	configs, err := NewConfigStore(cfg.BackupRoot, cfg.SourceRoot, logger)
	if err != nil {
		return nil, WrapError(err, "configstore", "failed to create config store", "")
	}
	archiver, err := NewArchiver(cfg.BackupRoot, adapter, logger)
	if err != nil {
		return nil, WrapError(err, "archiver", "failed to create volume archiver", "")
	}

	fallback, err := strategy.New(strategy.Config{}, adapter, logger)
	if err != nil {
		return nil, WrapError(err, "strategy", "failed to create generic strategy", "")
	}

	strategies := make(map[string]strategy.RollbackStrategy, len(cfg.ServiceStrategies))
	for service, strategyCfg := range cfg.ServiceStrategies {
		s, err := strategy.New(strategyCfg, adapter, logger)
		if err != nil {
			return nil, WrapError(err, "strategy", "failed to create strategy", service)
		}
		strategies[service] = s
	}

	return &Manager{
		Repo:       repo,
		Configs:    configs,
		Archiver:   archiver,
		adapter:    adapter,
		strategies: strategies,
		fallback:   fallback,
		logger:     logger,
		cfg:        cfg,
	}, nil
}

// SetDependencyGraph enables dependency-ordered starts. Optional: without a
// graph, services start in capture order.
func (m *Manager) SetDependencyGraph(graph *dependency.Graph) {
	m.graph = graph
}

// SetHistory enables audit recording of rollback executions. Optional.
func (m *Manager) SetHistory(collector *history.Collector) {
	m.history = collector
}

// SetStrategy overrides the strategy for one service. Primarily useful for
// tests.
func (m *Manager) SetStrategy(service string, s strategy.RollbackStrategy) {
	m.strategies[service] = s
}

func (m *Manager) strategyFor(service string) strategy.RollbackStrategy {
	if s, ok := m.strategies[service]; ok {
		return s
	}
	return m.fallback
}

// opCtx derives a context bounded by the configured operation timeout, so no
// runtime adapter call can hang indefinitely.
func (m *Manager) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.cfg.OperationTimeout)
}

// forEach runs fn for every service through a bounded worker pool and waits
// for the whole phase to finish before returning.
func (m *Manager) forEach(services []string, fn func(service string)) {
	sem := make(chan struct{}, m.cfg.Workers)
	var wg sync.WaitGroup
	for _, service := range services {
		wg.Add(1)
		sem <- struct{}{}
		go func(service string) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(service)
		}(service)
	}
	wg.Wait()
}

// newID generates a point id that is in use neither by the index nor by a
// leftover staging directory, retrying on collision.
func (m *Manager) newID() (string, error) {
	for attempt := 0; attempt < idAttempts; attempt++ {
		id, err := NewPointID()
		if err != nil {
			return "", err
		}
		exists, err := m.Repo.Exists(id)
		if err != nil {
			return "", err
		}
		if exists {
			continue
		}
		if _, err := os.Stat(m.Repo.PointDir(id)); err == nil {
			continue
		}
		return id, nil
	}
	return "", fmt.Errorf("could not generate a unique rollback point id after %d attempts", idAttempts)
}

// resolveServices picks the target service set for a new rollback point:
// the explicit list, or every currently running service when none is given.
// An explicitly named service that is not running fails the creation: a
// snapshot of a stopped service's image is meaningless and most likely a
// configuration mistake.
func (m *Manager) resolveServices(ctx context.Context, services []string) ([]string, error) {
	if len(services) == 0 {
		listCtx, cancel := m.opCtx(ctx)
		defer cancel()
		all, err := m.adapter.ListServices(listCtx)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to list services: %v", ErrCreation, err)
		}
		var running []string
		for _, service := range all {
			ok, err := m.adapter.IsRunning(listCtx, service)
			if err != nil {
				return nil, fmt.Errorf("%w: failed to inspect service %s: %v", ErrCreation, service, err)
			}
			if ok {
				running = append(running, service)
			}
		}
		if len(running) == 0 {
			return nil, fmt.Errorf("%w: no running services to capture", ErrCreation)
		}
		return running, nil
	}

	checkCtx, cancel := m.opCtx(ctx)
	defer cancel()
	for _, service := range services {
		ok, err := m.adapter.IsRunning(checkCtx, service)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to inspect service %s: %v", ErrCreation, service, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: service %s is not running", ErrCreation, service)
		}
	}
	return append([]string(nil), services...), nil
}

// CreateRollbackPoint captures the current deployment state into a new
// rollback point. The operation is read-only with respect to running
// services, and atomic with respect to the index: the metadata entry is only
// appended after every backing file is staged. A failed creation can leave
// orphaned staging files behind, but never a partial index entry.
func (m *Manager) CreateRollbackPoint(ctx context.Context, description string, services []string, includeVolumes bool) (Point, error) {
	if description == "" {
		description = DefaultDescription
	}

	targets, err := m.resolveServices(ctx, services)
	if err != nil {
		return Point{}, err
	}

	imageRefs := make(map[string]string, len(targets))
	for _, service := range targets {
		imgCtx, cancel := m.opCtx(ctx)
		ref, err := m.adapter.GetImage(imgCtx, service)
		cancel()
		if err != nil {
			return Point{}, fmt.Errorf("%w: failed to read image for service %s: %v", ErrCreation, service, err)
		}
		if _, parseErr := reference.ParseNormalizedNamed(ref); parseErr != nil {
			m.logger.Warn("Image reference %q for service %s does not parse: %v", ref, service, parseErr)
		}
		imageRefs[service] = ref
	}

	id, err := m.newID()
	if err != nil {
		return Point{}, fmt.Errorf("%w: %v", ErrCreation, err)
	}

	configHashes, err := m.Configs.Capture(id, m.cfg.ConfigPaths)
	if err != nil {
		return Point{}, fmt.Errorf("%w: %v", ErrCreation, err)
	}

	var volumes []string
	if includeVolumes {
		names, err := m.collectVolumes(ctx, targets)
		if err != nil {
			return Point{}, err
		}
		archived, err := m.Archiver.Backup(ctx, id, names)
		if err != nil {
			// Orphaned staging files for this id are acceptable; the
			// index never references them.
			m.logger.Error("Volume backup for %s failed, aborting creation: %v", id, err)
			return Point{}, fmt.Errorf("%w: %v", ErrCreation, err)
		}
		volumes = archived
	}

	hostname, _ := os.Hostname()
	point := Point{
		ID:           id,
		Timestamp:    time.Now().UTC(),
		Description:  description,
		Services:     targets,
		ImageRefs:    imageRefs,
		ConfigHashes: configHashes,
		Volumes:      volumes,
		Metadata: map[string]string{
			"hostname":        hostname,
			"include_volumes": fmt.Sprintf("%t", includeVolumes),
		},
	}

	if err := m.Repo.Append(point); err != nil {
		return Point{}, err
	}
	if err := m.Repo.EnforceRetention(m.cfg.MaxRollbackPoints); err != nil {
		// Retention failures never fail the create that triggered them.
		m.logger.Warn("Retention enforcement after creating %s failed: %v", id, err)
	}

	m.logger.Info("Created rollback point %s (%q) covering %d services", id, description, len(targets))
	return point, nil
}

// collectVolumes resolves the named volumes attached to the target services,
// preserving service order and dropping duplicates.
func (m *Manager) collectVolumes(ctx context.Context, services []string) ([]string, error) {
	seen := make(map[string]struct{})
	var volumes []string
	for _, service := range services {
		volCtx, cancel := m.opCtx(ctx)
		names, err := m.adapter.ServiceVolumes(volCtx, service)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to resolve volumes for service %s: %v", ErrCreation, service, err)
		}
		for _, name := range names {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			volumes = append(volumes, name)
		}
	}
	return volumes, nil
}

// ListRollbackPoints returns all rollback points, newest first.
func (m *Manager) ListRollbackPoints() ([]Point, error) {
	return m.Repo.List()
}

// DeleteRollbackPoint removes a rollback point and its backing files.
// Returns false when the id did not exist.
func (m *Manager) DeleteRollbackPoint(id string) (bool, error) {
	return m.Repo.Delete(id)
}

// Plan computes the execution plan for restoring a rollback point without
// performing any mutating action.
func (m *Manager) Plan(ctx context.Context, id string) (*Plan, error) {
	point, err := m.Repo.Get(id)
	if err != nil {
		return nil, err
	}
	return m.planFor(ctx, point)
}

func (m *Manager) planFor(ctx context.Context, point Point) (*Plan, error) {
	entries := make([]PlanEntry, 0, len(point.Services))
	for _, service := range point.Services {
		target := point.ImageRefs[service]
		current := "unknown"
		imgCtx, cancel := m.opCtx(ctx)
		if ref, err := m.adapter.GetImage(imgCtx, service); err == nil {
			current = ref
		}
		cancel()

		entries = append(entries, PlanEntry{
			Service:      service,
			CurrentImage: current,
			TargetImage:  target,
			ImageChanged: current != target,
		})
	}

	configFiles := make([]string, 0, len(point.ConfigHashes))
	for path := range point.ConfigHashes {
		configFiles = append(configFiles, path)
	}
	sort.Strings(configFiles)

	startOrder := append([]string(nil), point.Services...)
	if m.graph != nil {
		ordered, err := m.graph.StartOrder(point.Services)
		if err != nil {
			return nil, WrapError(err, "dependency", "failed to order service starts", "")
		}
		startOrder = ordered
	}

	return &Plan{
		PointID:     point.ID,
		Description: point.Description,
		CreatedAt:   point.Timestamp,
		Entries:     entries,
		ConfigFiles: configFiles,
		Volumes:     append([]string(nil), point.Volumes...),
		StartOrder:  startOrder,
	}, nil
}

// resultTracker accumulates per-service outcomes across restore phases.
type resultTracker struct {
	mu      sync.Mutex
	order   []string
	results map[string]*ServiceResult
}

func newResultTracker(services []string) *resultTracker {
	t := &resultTracker{
		order:   services,
		results: make(map[string]*ServiceResult, len(services)),
	}
	for _, service := range services {
		t.results[service] = &ServiceResult{Service: service, State: StatePending}
	}
	return t
}

func (t *resultTracker) setState(service string, state ServiceState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.results[service].State = state
}

// fail records the first failure reason for a service; later phases still
// run so the reason reflects the original cause.
func (t *resultTracker) fail(service, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.results[service]
	if r.Reason == "" {
		r.Reason = reason
	}
}

func (t *resultTracker) failed(service string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.results[service].Reason != ""
}

func (t *resultTracker) finish(service string, healthy bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.results[service]
	r.HealthVerified = healthy
	if healthy {
		r.State = StateHealthy
	} else {
		r.State = StateUnhealthy
		if r.Reason == "" {
			r.Reason = "health verification failed"
		}
	}
	r.Succeeded = healthy && r.Reason == ""
}

func (t *resultTracker) list() []ServiceResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ServiceResult, 0, len(t.order))
	for _, service := range t.order {
		out = append(out, *t.results[service])
	}
	return out
}

// Rollback restores the deployment to the given rollback point. With dryRun
// it only computes and logs the plan, issuing no mutating call against the
// runtime; the attempt still lands in the audit history. Otherwise it
// drives all targeted services through stop, config restore, image restore,
// optional volume restore, start and health verification. Every step from
// the stop phase onward is best-effort per service; the overall result is
// true only when every service verifies healthy. A false result never
// triggers an automatic rollback to an earlier point.
func (m *Manager) Rollback(ctx context.Context, id string, dryRun bool) (bool, []ServiceResult, error) {
	point, err := m.Repo.Get(id)
	if err != nil {
		return false, nil, err
	}

	plan, err := m.planFor(ctx, point)
	if err != nil {
		return false, nil, err
	}

	started := time.Now()

	if dryRun {
		m.logger.Info("Dry run, no services will be touched:\n%s", plan.String())
		m.recordExecution(point, true, true, time.Since(started), nil)
		return true, nil, nil
	}
	m.logger.Info("Rolling back to %s (%q, created %s)", point.ID, point.Description, point.Timestamp.Format(time.RFC3339))

	tracker := newResultTracker(point.Services)
	globalOK := true

	// Phase 1: pre-rollback hooks, while services are still running.
	m.forEach(point.Services, func(service string) {
		tracker.setState(service, StatePreHook)
		hookCtx, cancel := m.opCtx(ctx)
		defer cancel()
		if err := m.strategyFor(service).PreRollback(hookCtx, service); err != nil {
			m.logger.Warn("Pre-rollback hook for %s failed: %v", service, err)
			tracker.fail(service, fmt.Sprintf("pre-rollback hook failed: %v", err))
		}
	})

	// Phase 2: stop everything. All stops are issued before any restore
	// begins.
	m.forEach(point.Services, func(service string) {
		stopCtx, cancel := m.opCtx(ctx)
		defer cancel()
		if err := m.adapter.Stop(stopCtx, service); err != nil {
			m.logger.Error("Failed to stop %s: %v", service, err)
			tracker.fail(service, fmt.Sprintf("stop failed: %v", err))
			return
		}
		tracker.setState(service, StateStopped)
	})

	// Phase 3: restore configuration files.
	if err := m.Configs.Restore(point.ID, m.Configs.SourceRoot); err != nil {
		m.logger.Error("Config restore for %s failed: %v", point.ID, err)
		globalOK = false
	} else {
		for _, service := range point.Services {
			if !tracker.failed(service) {
				tracker.setState(service, StateConfigRestored)
			}
		}
	}

	// Phase 4: restore image references.
	m.forEach(point.Services, func(service string) {
		ref, ok := point.ImageRefs[service]
		if !ok {
			tracker.fail(service, "no image reference captured")
			return
		}
		imgCtx, cancel := m.opCtx(ctx)
		defer cancel()
		if err := m.adapter.SetImage(imgCtx, service, ref); err != nil {
			m.logger.Error("Failed to restore image for %s: %v", service, err)
			tracker.fail(service, fmt.Sprintf("image restore failed: %v", err))
			return
		}
		tracker.setState(service, StateImageRestored)
	})

	// Phase 5: restore volumes, only when the point explicitly includes
	// them. Destructive; the CLI boundary has already confirmed.
	if len(point.Volumes) > 0 {
		if err := m.Archiver.Restore(ctx, point.ID, point.Volumes); err != nil {
			m.logger.Error("Volume restore for %s failed: %v", point.ID, err)
			globalOK = false
		}
	}

	// Phase 6: start everything, in dependency order when available. Every
	// service is attempted even when an earlier step failed for it; the
	// worst outcome of a partial rollback is a stack left stopped.
	for _, service := range plan.StartOrder {
		startCtx, cancel := m.opCtx(ctx)
		if err := m.adapter.Start(startCtx, service); err != nil {
			m.logger.Error("Failed to start %s: %v", service, err)
			tracker.fail(service, fmt.Sprintf("start failed: %v", err))
		} else {
			tracker.setState(service, StateStarted)
		}
		cancel()
	}

	// Phase 7: post-rollback hooks and health verification. Each service
	// finishes its own state machine regardless of its siblings.
	m.forEach(point.Services, func(service string) {
		strat := m.strategyFor(service)

		postCtx, cancel := m.opCtx(ctx)
		if err := strat.PostRollback(postCtx, service); err != nil {
			m.logger.Warn("Post-rollback hook for %s failed: %v", service, err)
			tracker.fail(service, fmt.Sprintf("post-rollback hook failed: %v", err))
		}
		cancel()

		tracker.setState(service, StateHealthChecking)
		healthy := strat.VerifyHealth(ctx, service)
		tracker.finish(service, healthy)
	})

	results := tracker.list()
	ok := globalOK
	for _, r := range results {
		if !r.Succeeded {
			ok = false
		}
	}

	m.recordExecution(point, false, ok, time.Since(started), results)

	if ok {
		m.logger.Info("Rollback to %s completed, all %d services healthy", point.ID, len(results))
	} else {
		m.logger.Warn("Rollback to %s finished with failures; inspect per-service results", point.ID)
	}
	return ok, results, nil
}

// recordExecution writes the attempt to the audit history. Best-effort: a
// history failure is logged and never affects the rollback result.
func (m *Manager) recordExecution(point Point, dryRun, ok bool, duration time.Duration, results []ServiceResult) {
	if m.history == nil {
		return
	}

	outcomes := make([]history.ServiceOutcome, 0, len(results))
	for _, r := range results {
		outcomes = append(outcomes, history.ServiceOutcome{
			Service:        r.Service,
			Succeeded:      r.Succeeded,
			HealthVerified: r.HealthVerified,
			State:          string(r.State),
			Reason:         r.Reason,
		})
	}

	if err := m.history.RecordExecution(point.ID, point.Description, dryRun, ok, duration, outcomes); err != nil {
		m.logger.Warn("Failed to record rollback execution for %s: %v", point.ID, err)
	}
}
