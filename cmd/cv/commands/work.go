package commands

import (
	"fmt"
	"strings"

	cvrpc "curationvault/pkg/api/cvrpc/v1"

	"github.com/spf13/cobra"
)

var workVisibility string

var workCmd = &cobra.Command{
	Use:   "work",
	Short: "Manage works (parent containers of files)",
}

var workCreateCmd = &cobra.Command{
	Use:   "create [title]",
	Short: "Create a work",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := userKey()
		if err != nil {
			return err
		}
		cli, err := actorClient()
		if err != nil {
			return err
		}

		req := &cvrpc.CreateWorkRequest{UserKey: user, Visibility: workVisibility}
		if len(args) > 0 {
			req.Title = []string{args[0]}
		}
		resp, err := cli.Actor.CreateWork(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("create work failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp.Work.ID)
		return nil
	},
}

var workRepresentCmd = &cobra.Command{
	Use:   "represent [work-id] [file-id]",
	Short: "Make a member file the representative of a work",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := userKey()
		if err != nil {
			return err
		}
		cli, err := actorClient()
		if err != nil {
			return err
		}

		_, err = cli.Actor.SetRepresentative(cmd.Context(), &cvrpc.SetRepresentativeRequest{
			UserKey: user,
			WorkID:  args[0],
			FileID:  args[1],
		})
		if err != nil {
			return fmt.Errorf("represent failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s now represents %s\n", args[1], args[0])
		return nil
	},
}

var workShowCmd = &cobra.Command{
	Use:   "show [work-id]",
	Short: "Show a work and its member files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := actorClient()
		if err != nil {
			return err
		}
		resp, err := cli.Actor.GetWork(cmd.Context(), &cvrpc.GetWorkRequest{WorkID: args[0]})
		if err != nil {
			return err
		}

		w := resp.Work
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "id:             %s\n", w.ID)
		fmt.Fprintf(out, "title:          %s\n", strings.Join(w.Title, "; "))
		fmt.Fprintf(out, "depositor:      %s\n", w.Depositor)
		fmt.Fprintf(out, "visibility:     %s\n", w.Visibility)
		fmt.Fprintf(out, "representative: %s\n", w.RepresentativeID)
		for _, id := range w.FileIDs {
			fmt.Fprintf(out, "  file %s\n", id)
		}
		return nil
	},
}

var uploadSetCmd = &cobra.Command{
	Use:   "uploadset",
	Short: "Manage upload sets",
}

var uploadSetCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Open a new upload set",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := userKey()
		if err != nil {
			return err
		}
		cli, err := actorClient()
		if err != nil {
			return err
		}
		resp, err := cli.Actor.CreateUploadSet(cmd.Context(), &cvrpc.CreateUploadSetRequest{UserKey: user})
		if err != nil {
			return fmt.Errorf("create upload set failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp.ID)
		return nil
	},
}

func init() {
	workCreateCmd.Flags().StringVar(&workVisibility, "visibility", "", "restricted, authenticated or open")

	workCmd.AddCommand(workCreateCmd, workRepresentCmd, workShowCmd)
	uploadSetCmd.AddCommand(uploadSetCreateCmd)
	rootCmd.AddCommand(workCmd, uploadSetCmd)
}
