// Package orchestrator fans one request out across landing zones with
// a bounded worker pool. A run always completes: a zone that fails to
// acquire credentials or to scan is recorded as failed and the rest of
// the zones proceed.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/google/uuid"

	"github.com/nisops/lzops/config"
	"github.com/nisops/lzops/executor"
	"github.com/nisops/lzops/match"
	"github.com/nisops/lzops/scanner"
	"github.com/nisops/lzops/session"
	"github.com/nisops/lzops/telemetry"
	"github.com/nisops/lzops/types"
)

// ZoneScanner resolves a zone's matching resources.
type ZoneScanner interface {
	Scan(ctx context.Context, services []string, override match.Policy, replace bool) ([]types.Resource, []scanner.ServiceError)
}

// ZoneExecutor applies an action within one zone.
type ZoneExecutor interface {
	Apply(ctx context.Context, action types.Action, resources []types.Resource, opts executor.Options) (*executor.Result, error)
}

// Orchestrator runs requests. Zone credentials come from the injected
// provider; scanner and executor construction is injectable for tests.
type Orchestrator struct {
	cfg    *config.Config
	creds  session.Provider
	logger *telemetry.Logger

	workers     int
	scannerFor  func(aws.Config, types.Zone, *telemetry.Logger) ZoneScanner
	executorFor func(aws.Config, *telemetry.Logger) ZoneExecutor
}

// New builds an orchestrator with real AWS-backed zone components.
// confirmer may be nil when runs are always dry or forced.
func New(cfg *config.Config, creds session.Provider, confirmer executor.Confirmer, logger *telemetry.Logger) *Orchestrator {
	defaults := cfg.DefaultPolicies()
	return &Orchestrator{
		cfg:     cfg,
		creds:   creds,
		logger:  logger,
		workers: cfg.Performance.BatchSize,
		scannerFor: func(awsCfg aws.Config, zone types.Zone, log *telemetry.Logger) ZoneScanner {
			return scanner.New(awsCfg, zone, defaults, log)
		},
		executorFor: func(awsCfg aws.Config, log *telemetry.Logger) ZoneExecutor {
			return executor.New(awsCfg, confirmer, log)
		},
	}
}

// NewWithFactories wires explicit zone component factories; used by tests.
func NewWithFactories(cfg *config.Config, creds session.Provider, logger *telemetry.Logger,
	scannerFor func(aws.Config, types.Zone, *telemetry.Logger) ZoneScanner,
	executorFor func(aws.Config, *telemetry.Logger) ZoneExecutor) *Orchestrator {
	workers := cfg.Performance.BatchSize
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		cfg:         cfg,
		creds:       creds,
		logger:      logger,
		workers:     workers,
		scannerFor:  scannerFor,
		executorFor: executorFor,
	}
}

// Run processes every zone in the request. Cancelling ctx stops
// dispatching new zones; zones already in flight finish and are
// included in the result.
func (o *Orchestrator) Run(ctx context.Context, req Request) *RunResult {
	start := time.Now()
	correlationID := uuid.New().String()
	logger := o.logger.WithRun(correlationID)

	result := &RunResult{
		CorrelationID: correlationID,
		Action:        req.Action,
		DryRun:        req.Options.DryRun,
	}

	logger.Info().
		Str("action", string(req.Action)).
		Int("zones", len(req.Zones)).
		Strs("services", req.Services).
		Bool("dry_run", req.Options.DryRun).
		Msg("run started")

	workers := o.workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(req.Zones) {
		workers = len(req.Zones)
	}

	zoneCh := make(chan types.Zone)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for zone := range zoneCh {
				zr := o.runZone(ctx, logger, req, zone)
				mu.Lock()
				result.PerZone = append(result.PerZone, zr)
				result.ZonesProcessed++
				if zr.Status == ZoneFailed {
					result.ZonesFailed++
					result.Errors = append(result.Errors, zone.Name+": "+zr.Error)
				}
				result.ResourcesFound += len(zr.Resources)
				if zr.Action != nil {
					result.ActionsSucceeded += zr.Action.Applied + zr.Action.AlreadySet
					result.ActionsFailed += zr.Action.Failed
				}
				for _, se := range zr.ScanErrs {
					result.Errors = append(result.Errors, zone.Name+": "+se.Error())
				}
				mu.Unlock()
			}
		}()
	}

dispatch:
	for _, zone := range req.Zones {
		if ctx.Err() != nil {
			logger.Warn().Err(ctx.Err()).Msg("run cancelled, draining in-flight zones")
			break
		}
		select {
		case zoneCh <- zone:
		case <-ctx.Done():
			logger.Warn().Err(ctx.Err()).Msg("run cancelled, draining in-flight zones")
			break dispatch
		}
	}
	close(zoneCh)
	wg.Wait()

	result.Elapsed = time.Since(start)
	logger.Info().
		Int("zones_processed", result.ZonesProcessed).
		Int("zones_failed", result.ZonesFailed).
		Int("resources_found", result.ResourcesFound).
		Int("actions_succeeded", result.ActionsSucceeded).
		Int("actions_failed", result.ActionsFailed).
		Dur("elapsed", result.Elapsed).
		Msg("run complete")
	return result
}

func (o *Orchestrator) runZone(ctx context.Context, logger *telemetry.Logger, req Request, zone types.Zone) ZoneResult {
	start := time.Now()
	zoneLog := logger.WithZone(zone, string(req.Action))
	zoneLog.Info().Msg("zone started")

	zr := ZoneResult{Zone: zone, Status: ZoneInProgress}

	// A credential failure fails the whole zone. No retry: the next
	// run will pick the zone up again.
	awsCfg, err := o.creds.Acquire(ctx, zone)
	if err != nil {
		zoneLog.Error().Err(err).Msg("credential acquisition failed")
		zr.Status = ZoneFailed
		zr.Error = err.Error()
		zr.Elapsed = time.Since(start)
		return zr
	}

	scn := o.scannerFor(awsCfg, zone, zoneLog)
	resources, scanErrs := scn.Scan(ctx, req.Services, req.Policy, req.ReplaceDefaults)
	zr.Resources = resources
	zr.ScanErrs = scanErrs
	for _, se := range scanErrs {
		zoneLog.Warn().Str("service", se.Service).Err(se.Err).Msg("service scan failed")
	}

	if req.Action != "" && req.Action != types.ActionScan {
		// A batch that reached the executor runs to completion even if
		// the run is cancelled: mutations are never aborted mid-call.
		// Per-call timeouts still bound each provider call.
		batchCtx := context.WithoutCancel(ctx)
		exec := o.executorFor(awsCfg, zoneLog)
		actionResult, err := exec.Apply(batchCtx, req.Action, resources, req.Options)
		if err != nil {
			zoneLog.Error().Err(err).Msg("action failed")
			zr.Status = ZoneFailed
			zr.Error = err.Error()
			zr.Elapsed = time.Since(start)
			return zr
		}
		zr.Action = actionResult
	}

	zr.Status = ZoneCompleted
	zr.Elapsed = time.Since(start)
	zoneLog.Info().
		Int("resources", len(resources)).
		Dur("elapsed", zr.Elapsed).
		Msg("zone complete")
	return zr
}
