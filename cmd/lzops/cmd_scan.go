package main

import (
	"github.com/spf13/cobra"

	"github.com/nisops/lzops/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find resources matching the tag policy",
	Long: `Scan the selected landing zones and report every resource that
matches the effective tag policy. Read-only; matched resources are
written to per-zone CSV reports.`,
	Example: `  lzops scan                               # All configured zones, all services
  lzops scan -z cmsnonprod                 # One zone
  lzops scan -e nonprod -s ec2,rds         # All nonprod zones, two services
  lzops scan --include environment=dev     # Override configured includes`,
	RunE: runScanCmd,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	return runAction(cmd, types.ActionScan, nil)
}
