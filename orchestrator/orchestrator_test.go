package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nisops/lzops/config"
	"github.com/nisops/lzops/executor"
	"github.com/nisops/lzops/match"
	"github.com/nisops/lzops/scanner"
	"github.com/nisops/lzops/session"
	"github.com/nisops/lzops/telemetry"
	"github.com/nisops/lzops/types"
)

type fakeCreds struct {
	mu       sync.Mutex
	failFor  map[string]error
	acquired []string
}

func (f *fakeCreds) Acquire(_ context.Context, zone types.Zone) (aws.Config, error) {
	f.mu.Lock()
	f.acquired = append(f.acquired, zone.Name)
	f.mu.Unlock()
	if err, ok := f.failFor[zone.Name]; ok {
		return aws.Config{}, &session.CredentialError{Zone: zone.Name, Err: err}
	}
	return aws.Config{}, nil
}

type fakeZoneScanner struct {
	resources []types.Resource
	errs      []scanner.ServiceError
}

func (f *fakeZoneScanner) Scan(context.Context, []string, match.Policy, bool) ([]types.Resource, []scanner.ServiceError) {
	return f.resources, f.errs
}

type fakeZoneExecutor struct {
	mu      sync.Mutex
	applied int
	err     error
	outcome *executor.Result
}

func (f *fakeZoneExecutor) Apply(_ context.Context, action types.Action, resources []types.Resource, opts executor.Options) (*executor.Result, error) {
	f.mu.Lock()
	f.applied++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.outcome != nil {
		out := *f.outcome
		out.Action = action
		return &out, nil
	}
	result := &executor.Result{Action: action, DryRun: opts.DryRun, Applied: len(resources)}
	return result, nil
}

func testZones(names ...string) []types.Zone {
	zones := make([]types.Zone, 0, len(names))
	for _, n := range names {
		zones = append(zones, types.Zone{
			Name:      n,
			AccountID: "123456789012",
			RoleName:  "viewer",
			Region:    "ap-southeast-2",
		})
	}
	return zones
}

func testConfig(workers int) *config.Config {
	cfg := config.Default()
	cfg.Performance.BatchSize = workers
	return cfg
}

func newTestOrchestrator(cfg *config.Config, creds session.Provider, scn ZoneScanner, exec ZoneExecutor) *Orchestrator {
	return NewWithFactories(cfg, creds, telemetry.NewComponent("test"),
		func(aws.Config, types.Zone, *telemetry.Logger) ZoneScanner { return scn },
		func(aws.Config, *telemetry.Logger) ZoneExecutor { return exec },
	)
}

func TestRunCompletesDespiteCredentialFailure(t *testing.T) {
	creds := &fakeCreds{failFor: map[string]error{
		"zone-b": errors.New("assume role denied"),
	}}
	scn := &fakeZoneScanner{resources: []types.Resource{
		{Service: "ec2", ARN: "arn:aws:ec2:ap-southeast-2:123456789012:instance/i-1", LocalID: "i-1"},
	}}
	o := newTestOrchestrator(testConfig(2), creds, scn, &fakeZoneExecutor{})

	result := o.Run(context.Background(), Request{
		Zones:    testZones("zone-a", "zone-b", "zone-c"),
		Services: []string{"ec2"},
		Action:   types.ActionScan,
	})

	assert.Equal(t, 3, result.ZonesProcessed, "a failed zone still counts as processed")
	assert.Equal(t, 1, result.ZonesFailed)
	assert.Equal(t, 2, result.ResourcesFound)
	assert.Len(t, result.PerZone, 3)
	assert.NotEmpty(t, result.CorrelationID)

	var failed *ZoneResult
	for i := range result.PerZone {
		if result.PerZone[i].Zone.Name == "zone-b" {
			failed = &result.PerZone[i]
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, ZoneFailed, failed.Status)
	assert.Contains(t, failed.Error, "assume role denied")

	// Each zone is attempted exactly once, no credential retry.
	assert.Len(t, creds.acquired, 3)
}

func TestRunAppliesActionPerZone(t *testing.T) {
	creds := &fakeCreds{}
	scn := &fakeZoneScanner{resources: []types.Resource{
		{Service: "ec2", ARN: "arn:aws:ec2:ap-southeast-2:123456789012:instance/i-1", LocalID: "i-1", State: types.StateRunning},
	}}
	exec := &fakeZoneExecutor{}
	o := newTestOrchestrator(testConfig(2), creds, scn, exec)

	result := o.Run(context.Background(), Request{
		Zones:    testZones("zone-a", "zone-b"),
		Services: []string{"ec2"},
		Action:   types.ActionStop,
		Options:  executor.Options{Force: true},
	})

	assert.Equal(t, 2, exec.applied)
	assert.Equal(t, 0, result.ZonesFailed)
	assert.Equal(t, 2, result.ActionsSucceeded)
	assert.Equal(t, 0, result.ActionsFailed)
	for _, zr := range result.PerZone {
		require.NotNil(t, zr.Action)
		assert.Equal(t, types.ActionStop, zr.Action.Action)
	}
}

func TestRunCountsHardActionFailures(t *testing.T) {
	scn := &fakeZoneScanner{resources: []types.Resource{
		{Service: "ebs", ARN: "arn:aws:ec2:ap-southeast-2:123456789012:volume/vol-1", LocalID: "vol-1"},
		{Service: "ebs", ARN: "arn:aws:ec2:ap-southeast-2:123456789012:volume/vol-2", LocalID: "vol-2"},
	}}
	exec := &fakeZoneExecutor{outcome: &executor.Result{Failed: 2}}
	o := newTestOrchestrator(testConfig(1), &fakeCreds{}, scn, exec)

	result := o.Run(context.Background(), Request{
		Zones:    testZones("zone-a"),
		Services: []string{"ebs"},
		Action:   types.ActionDelete,
		Options:  executor.Options{Force: true},
	})

	// Per-resource failures do not fail the zone, but they must be
	// visible at run level so the caller can exit non-zero.
	assert.Equal(t, 0, result.ZonesFailed)
	require.Len(t, result.PerZone, 1)
	assert.Equal(t, ZoneCompleted, result.PerZone[0].Status)
	assert.Equal(t, 2, result.ActionsFailed)
	assert.Equal(t, 0, result.ActionsSucceeded)
}

func TestRunScanDoesNotTouchExecutor(t *testing.T) {
	exec := &fakeZoneExecutor{}
	o := newTestOrchestrator(testConfig(1), &fakeCreds{}, &fakeZoneScanner{}, exec)

	result := o.Run(context.Background(), Request{
		Zones:    testZones("zone-a"),
		Services: []string{"ec2"},
		Action:   types.ActionScan,
	})

	assert.Equal(t, 0, exec.applied)
	assert.Equal(t, ZoneCompleted, result.PerZone[0].Status)
	assert.Nil(t, result.PerZone[0].Action)
}

func TestRunRecordsServiceErrors(t *testing.T) {
	scn := &fakeZoneScanner{errs: []scanner.ServiceError{
		{Service: "rds", Err: errors.New("access denied")},
	}}
	o := newTestOrchestrator(testConfig(1), &fakeCreds{}, scn, &fakeZoneExecutor{})

	result := o.Run(context.Background(), Request{
		Zones:    testZones("zone-a"),
		Services: []string{"rds"},
		Action:   types.ActionScan,
	})

	assert.Equal(t, 0, result.ZonesFailed, "a partial scan does not fail the zone")
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "rds")
}

func TestRunFailsZoneWhenActionErrors(t *testing.T) {
	scn := &fakeZoneScanner{resources: []types.Resource{
		{Service: "ec2", ARN: "arn:aws:ec2:ap-southeast-2:123456789012:instance/i-1", LocalID: "i-1", State: types.StateRunning},
	}}
	exec := &fakeZoneExecutor{err: executor.ErrConfirmationRequired}
	o := newTestOrchestrator(testConfig(1), &fakeCreds{}, scn, exec)

	result := o.Run(context.Background(), Request{
		Zones:    testZones("zone-a"),
		Services: []string{"ec2"},
		Action:   types.ActionStop,
	})

	assert.Equal(t, 1, result.ZonesFailed)
	assert.Equal(t, ZoneFailed, result.PerZone[0].Status)
}

func TestRunCancellationStopsDispatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	creds := &fakeCreds{}
	o := newTestOrchestrator(testConfig(1), creds, &fakeZoneScanner{}, &fakeZoneExecutor{})

	result := o.Run(ctx, Request{
		Zones:    testZones("zone-a", "zone-b", "zone-c"),
		Services: []string{"ec2"},
		Action:   types.ActionScan,
	})

	assert.Equal(t, 0, result.ZonesProcessed, "cancellation must stop dispatching new zones")
}
