package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nisops/lzops/types"
)

var tagValues []string

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Apply tags to matching resources",
	Long: `Apply one or more tags to every resource matching the tag policy.
Resources that already carry all requested values are left alone and
reported as already set.`,
	Example: `  lzops tag -z cmsnonprod --tag owner=platform --dry-run
  lzops tag -e nonprod --tag environment=nonprod --tag managed=true --force`,
	RunE: runTagCmd,
}

func init() {
	rootCmd.AddCommand(tagCmd)
	tagCmd.Flags().StringSliceVar(&tagValues, "tag", nil, "Tag to apply as key=value (repeatable)")
}

func runTagCmd(cmd *cobra.Command, args []string) error {
	tags, err := parseTags(tagValues)
	if err != nil {
		return err
	}
	if len(tags) == 0 {
		return fmt.Errorf("at least one --tag key=value is required")
	}
	return runAction(cmd, types.ActionTag, tags)
}

func parseTags(raw []string) (map[string]string, error) {
	tags := make(map[string]string, len(raw))
	for _, r := range raw {
		key, value, ok := strings.Cut(r, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid tag %q: expected key=value", r)
		}
		tags[key] = value
	}
	return tags, nil
}
