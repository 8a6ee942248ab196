package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/nisops/lzops/arn"
	"github.com/nisops/lzops/config"
	"github.com/nisops/lzops/executor"
	"github.com/nisops/lzops/match"
	"github.com/nisops/lzops/orchestrator"
	"github.com/nisops/lzops/report"
	"github.com/nisops/lzops/session"
	"github.com/nisops/lzops/telemetry"
	"github.com/nisops/lzops/types"
	"github.com/nisops/lzops/zones"
)

// runtime holds everything a command needs after config is loaded.
type runtime struct {
	cfg    *config.Config
	logger *telemetry.Logger
	orch   *orchestrator.Orchestrator
	closer func() error
}

func buildRuntime() (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if flagDebug {
		cfg.Logging.Level = "debug"
	}
	if flagDryRun {
		cfg.Features.DryRun = true
	}

	logger, closer, err := telemetry.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("logging setup: %w", err)
	}

	creds := session.NewSTSProvider("lzops")
	var confirmer executor.Confirmer
	if cfg.Features.ConfirmationPrompts {
		confirmer = newPromptConfirmer()
	}
	orch := orchestrator.New(cfg, creds, confirmer, logger)

	return &runtime{cfg: cfg, logger: logger, orch: orch, closer: closer}, nil
}

// loadConfig falls back to built-in defaults when the default config
// path does not exist; an explicitly given path must exist.
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(flagConfig); os.IsNotExist(err) {
		if flagConfig == "config.yaml" {
			return config.Default(), nil
		}
		return nil, fmt.Errorf("config file not found: %s", flagConfig)
	}
	return config.Load(flagConfig)
}

// resolveZones builds the target zone list from flags and config. The
// test flag narrows to the configured test account; otherwise explicit
// zone flags, then the config zones, then the zone inventory URL.
func resolveZones(ctx context.Context, cfg *config.Config) ([]types.Zone, error) {
	if flagTestAccount {
		if cfg.AWS.TestAccount.ID == "" {
			return nil, fmt.Errorf("no test account configured")
		}
		zone := types.Zone{
			Name:      cfg.AWS.TestAccount.Name,
			AccountID: cfg.AWS.TestAccount.ID,
			RoleName:  cfg.AWS.Roles.Provision,
			Region:    cfg.AWS.Region,
		}
		if err := zone.Validate(); err != nil {
			return nil, fmt.Errorf("test account: %w", err)
		}
		return []types.Zone{zone}, nil
	}

	inventory, err := loadInventory(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if len(flagZones) > 0 {
		picked, err := pickZones(cfg, inventory, flagZones)
		if err != nil {
			return nil, err
		}
		return dedupeZones(picked), nil
	}

	configured := cfg.ZoneList()
	if flagEnvironment != "" {
		var filtered []types.Zone
		for _, z := range configured {
			if strings.HasSuffix(z.Name, flagEnvironment) {
				filtered = append(filtered, z)
			}
		}
		configured = filtered

		for _, e := range zones.FilterByEnvironment(inventory, flagEnvironment) {
			configured = append(configured, types.Zone{
				Name:      e.Name,
				AccountID: e.AccountID,
				RoleName:  cfg.AWS.Roles.Provision,
				Region:    cfg.AWS.Region,
			})
		}
	}

	configured = dedupeZones(configured)
	if len(configured) == 0 {
		return nil, fmt.Errorf("no landing zones selected; configure zones or pass --landing-zones")
	}
	return configured, nil
}

// dedupeZones keeps the first zone per account and region. A zone
// listed both in the config and the inventory must be mutated once.
func dedupeZones(list []types.Zone) []types.Zone {
	seen := make(map[string]bool, len(list))
	var kept []types.Zone
	for _, z := range list {
		if seen[z.Key()] {
			continue
		}
		seen[z.Key()] = true
		kept = append(kept, z)
	}
	return kept
}

func loadInventory(ctx context.Context, cfg *config.Config) ([]zones.Entry, error) {
	if cfg.AWS.ZonesURL == "" {
		return nil, nil
	}
	inventory, err := zones.FetchURL(ctx, cfg.AWS.ZonesURL)
	if err != nil {
		return nil, fmt.Errorf("zone inventory: %w", err)
	}
	return inventory, nil
}

// pickZones resolves each zone argument against config zones, the
// inventory, or a name:account_id override, in that order.
func pickZones(cfg *config.Config, inventory []zones.Entry, args []string) ([]types.Zone, error) {
	configured := make(map[string]types.Zone, len(cfg.AWS.Zones))
	for _, z := range cfg.ZoneList() {
		configured[z.Name] = z
	}

	var picked []types.Zone
	for _, a := range args {
		if z, ok := configured[a]; ok {
			picked = append(picked, z)
			continue
		}
		if matched := zones.FilterByName(inventory, []string{a}); len(matched) > 0 {
			picked = append(picked, types.Zone{
				Name:      matched[0].Name,
				AccountID: matched[0].AccountID,
				RoleName:  cfg.AWS.Roles.Provision,
				Region:    cfg.AWS.Region,
			})
			continue
		}
		if e, ok := zones.ParseOverride(a); ok {
			zone := types.Zone{
				Name:      e.Name,
				AccountID: e.AccountID,
				RoleName:  cfg.AWS.Roles.Provision,
				Region:    cfg.AWS.Region,
			}
			if err := zone.Validate(); err != nil {
				return nil, fmt.Errorf("zone %s: %w", a, err)
			}
			picked = append(picked, zone)
			continue
		}
		return nil, fmt.Errorf("unknown landing zone: %s", a)
	}
	return picked, nil
}

// operatorPolicy turns --include/--exclude key=value flags into a
// match policy overlay.
func operatorPolicy() (match.Policy, error) {
	var policy match.Policy
	for _, raw := range flagInclude {
		rule, err := parseRule(raw, match.MatchExact)
		if err != nil {
			return policy, err
		}
		policy.Includes = append(policy.Includes, rule)
	}
	for _, raw := range flagExclude {
		rule, err := parseRule(raw, match.MatchContains)
		if err != nil {
			return policy, err
		}
		policy.Excludes = append(policy.Excludes, rule)
	}
	return policy, nil
}

func parseRule(raw string, mt match.MatchType) (match.Rule, error) {
	key, value, found := strings.Cut(raw, "=")
	if key == "" {
		return match.Rule{}, fmt.Errorf("invalid rule %q: expected key or key=value", raw)
	}
	rule := match.Rule{Key: key, MatchType: mt}
	if found {
		rule.Values = []string{value}
	}
	return rule, nil
}

func targetServices() ([]string, error) {
	if len(flagServices) == 0 {
		return arn.Services(), nil
	}
	for _, s := range flagServices {
		if !arn.Registered(s) {
			return nil, fmt.Errorf("unknown service %q (known: %s)", s, strings.Join(arn.Services(), ","))
		}
	}
	return flagServices, nil
}

// runAction is the shared command body: resolve zones, fan out, write
// reports, print the summary.
func runAction(cmd *cobra.Command, action types.Action, tags map[string]string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.closer() //nolint:errcheck

	ctx := cmd.Context()

	targets, err := resolveZones(ctx, rt.cfg)
	if err != nil {
		return err
	}
	services, err := targetServices()
	if err != nil {
		return err
	}
	policy, err := operatorPolicy()
	if err != nil {
		return err
	}

	req := orchestrator.Request{
		Zones:           targets,
		Services:        services,
		Policy:          policy,
		ReplaceDefaults: flagReplaceExcludes,
		Action:          action,
		Options: executor.Options{
			DryRun:        rt.cfg.Features.DryRun,
			Force:         flagForce,
			Tags:          tags,
			RetryAttempts: rt.cfg.Performance.RetryAttempts,
			RetryBackoff:  time.Second,
			CallTimeout:   rt.cfg.Performance.Timeout,
		},
	}

	result := rt.orch.Run(ctx, req)

	writer := report.NewWriter(flagReportsDir, rt.logger)
	paths, err := writer.WriteRun(result)
	if err != nil {
		rt.logger.Error().Err(err).Msg("report writing failed")
	}

	printSummary(cmd, result, paths)

	if result.ZonesFailed > 0 {
		return fmt.Errorf("%d of %d zones failed", result.ZonesFailed, result.ZonesProcessed)
	}
	if result.ActionsFailed > 0 {
		return fmt.Errorf("%d action(s) failed", result.ActionsFailed)
	}
	return nil
}

func printSummary(cmd *cobra.Command, result *orchestrator.RunResult, reportPaths []string) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Run %s (%s)\n", result.CorrelationID, result.Action)
	if result.DryRun {
		fmt.Fprintln(out, "DRY RUN - no changes were made")
	}
	fmt.Fprintf(out, "Zones: %d processed, %d failed\n", result.ZonesProcessed, result.ZonesFailed)
	fmt.Fprintf(out, "Resources matched: %d\n", result.ResourcesFound)
	if result.ActionsSucceeded > 0 || result.ActionsFailed > 0 {
		fmt.Fprintf(out, "Actions: %d succeeded, %d failed\n", result.ActionsSucceeded, result.ActionsFailed)
	}

	for _, zr := range result.PerZone {
		if zr.Status == orchestrator.ZoneFailed {
			fmt.Fprintf(out, "  %s: FAILED (%s)\n", zr.Zone.Name, zr.Error)
			continue
		}
		line := fmt.Sprintf("  %s: %d resource(s)", zr.Zone.Name, len(zr.Resources))
		if zr.Action != nil {
			line += fmt.Sprintf(", %d applied, %d already set, %d skipped, %d simulated, %d failed",
				zr.Action.Applied, zr.Action.AlreadySet, zr.Action.Skipped, zr.Action.Simulated, zr.Action.Failed)
		}
		fmt.Fprintln(out, line)
	}
	for _, p := range reportPaths {
		fmt.Fprintf(out, "Report: %s\n", p)
	}
}

// promptConfirmer asks on the terminal. Only "y" and "yes" confirm.
// One answer covers the whole run: zone workers prompt concurrently,
// so the first decision is cached and replayed, and prompting is
// serialized so no worker can consume input buffered for another.
type promptConfirmer struct {
	mu     sync.Mutex
	in     *bufio.Reader
	asked  bool
	answer bool
}

func newPromptConfirmer() *promptConfirmer {
	return &promptConfirmer{in: bufio.NewReader(os.Stdin)}
}

func (p *promptConfirmer) Confirm(_ context.Context, description string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.asked {
		return p.answer, nil
	}
	fmt.Fprintf(os.Stderr, "About to %s. Continue? [y/N]: ", description)
	line, err := p.in.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	p.answer = answer == "y" || answer == "yes"
	p.asked = true
	return p.answer, nil
}
