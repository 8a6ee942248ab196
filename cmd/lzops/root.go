package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"

	flagConfig          string
	flagZones           []string
	flagEnvironment     string
	flagServices        []string
	flagInclude         []string
	flagExclude         []string
	flagDryRun          bool
	flagForce           bool
	flagReplaceExcludes bool
	flagTestAccount     bool
	flagDebug           bool
	flagReportsDir      string

	rootCmd = &cobra.Command{
		Use:   "lzops",
		Short: "Landing zone resource operations",
		Long: `lzops - Landing Zone Resource Operations

Discovers resources across landing zone accounts by tag policy and
applies bulk actions to the matching set. Every mutating action is
gated: dry-run shows what would happen, and real runs require either
an interactive confirmation or --force.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command under the signal-aware context.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`lzops {{.Version}}
`)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "config.yaml", "Path to the configuration file")
	pf.StringSliceVarP(&flagZones, "landing-zones", "z", nil, "Landing zones to target, by name or name:account_id")
	pf.StringVarP(&flagEnvironment, "environment", "e", "", "Only target zones whose name ends with this suffix")
	pf.StringSliceVarP(&flagServices, "services", "s", nil, "Services to scan (ec2,ebs,sg,asg,s3,rds,lambda,...)")
	pf.StringSliceVar(&flagInclude, "include", nil, "Extra include rule key=value (replaces configured includes)")
	pf.StringSliceVar(&flagExclude, "exclude", nil, "Extra exclude rule key=value (appended to configured excludes)")
	pf.BoolVar(&flagDryRun, "dry-run", false, "Show what would happen without touching anything")
	pf.BoolVar(&flagForce, "force", false, "Skip the confirmation prompt")
	pf.BoolVar(&flagReplaceExcludes, "replace-excludes", false, "Operator excludes replace configured defaults instead of extending them")
	pf.BoolVar(&flagTestAccount, "test", false, "Target only the configured test account")
	pf.BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	pf.StringVar(&flagReportsDir, "reports-dir", "reports", "Directory for CSV reports")
}
