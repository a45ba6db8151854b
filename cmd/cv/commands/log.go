package commands

import (
	"fmt"

	cvrpc "curationvault/pkg/api/cvrpc/v1"

	"github.com/spf13/cobra"
)

var logLimit int

var logCmd = &cobra.Command{
	Use:   "log [committer]",
	Short: "Show versions committed by a user",
	Long:  `Lists the newest versions committed by the given user (or the acting user), across all files.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		committer := ""
		if len(args) > 0 {
			committer = args[0]
		} else {
			u, err := userKey()
			if err != nil {
				return err
			}
			committer = u
		}

		cli, err := actorClient()
		if err != nil {
			return err
		}
		resp, err := cli.Actor.VersionsByCommitter(cmd.Context(), &cvrpc.VersionsByCommitterRequest{
			Committer: committer,
			Limit:     logLimit,
		})
		if err != nil {
			return fmt.Errorf("log failed: %w", err)
		}
		printVersions(cmd.OutOrStdout(), resp.Versions)
		return nil
	},
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 0, "max versions to show (default 50)")
	rootCmd.AddCommand(logCmd)
}
