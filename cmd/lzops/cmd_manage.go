package main

import (
	"github.com/spf13/cobra"

	"github.com/nisops/lzops/types"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start matching stopped instances",
	Long: `Start every matching EC2 instance and RDS database that is
currently stopped. Resources in any other state are skipped.`,
	Example: `  lzops start -e nonprod -s ec2 --dry-run
  lzops start -z cmsnonprod -s ec2,rds --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, types.ActionStart, nil)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop matching running instances",
	Long: `Stop every matching EC2 instance and RDS database that is
currently running. Resources in any other state are skipped.`,
	Example: `  lzops stop -e nonprod -s ec2 --dry-run
  lzops stop -z cmsnonprod -s ec2,rds --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, types.ActionStop, nil)
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
}
