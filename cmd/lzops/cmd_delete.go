package main

import (
	"github.com/spf13/cobra"

	"github.com/nisops/lzops/types"
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete matching resources",
	Long: `Delete every resource matching the tag policy. Destructive and
not recoverable; run with --dry-run first and review the report. A
real run prompts for confirmation unless --force is given.`,
	Example: `  lzops delete -z cmsnonprod -s ebs --dry-run
  lzops delete -z cmsnonprod -s ebs,sg --include status=orphaned`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, types.ActionDelete, nil)
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
