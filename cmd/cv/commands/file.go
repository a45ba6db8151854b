package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	cvrpc "curationvault/pkg/api/cvrpc/v1"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
)

var (
	fileWorkID      string
	fileUploadSetID string
	uploadMimeType  string
	catLabel        string
)

var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Manage file objects",
}

var fileCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new file object",
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

		resp, err := cli.Actor.CreateMetadata(cmd.Context(), &cvrpc.CreateMetadataRequest{
			UserKey:     user,
			UploadSetID: fileUploadSetID,
			WorkID:      fileWorkID,
		})
		if err != nil {
			return fmt.Errorf("create failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp.File.ID)
		return nil
	},
}

var fileUploadCmd = &cobra.Command{
	Use:   "upload [file-id] [path]",
	Short: "Upload a local file as the next version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := userKey()
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[1], err)
		}
		mime := uploadMimeType
		if mime == "" && len(data) > 0 {
			mime = mimetype.Detect(data).String()
		}

		cli, err := actorClient()
		if err != nil {
			return err
		}
		resp, err := cli.Actor.CreateContent(cmd.Context(), &cvrpc.CreateContentRequest{
			UserKey:  user,
			FileID:   args[0],
			Filename: filepath.Base(args[1]),
			MimeType: mime,
			Content:  data,
		})
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%d bytes, %s)\n", resp.Version.Label, resp.Version.Size, resp.Version.MimeType)
		return nil
	},
}

var fileRevertCmd = &cobra.Command{
	Use:   "revert [file-id] [label]",
	Short: "Restore an earlier version as the newest version",
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

		resp, err := cli.Actor.RevertContent(cmd.Context(), &cvrpc.RevertContentRequest{
			UserKey: user,
			FileID:  args[0],
			Label:   args[1],
		})
		if err != nil {
			return fmt.Errorf("revert failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s restored as %s\n", args[1], resp.Version.Label)
		return nil
	},
}

var fileShowCmd = &cobra.Command{
	Use:   "show [file-id]",
	Short: "Show file metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := actorClient()
		if err != nil {
			return err
		}
		resp, err := cli.Actor.GetFile(cmd.Context(), &cvrpc.GetFileRequest{FileID: args[0]})
		if err != nil {
			return err
		}
		printFile(cmd.OutOrStdout(), &resp.File)
		return nil
	},
}

var fileVersionsCmd = &cobra.Command{
	Use:   "versions [file-id]",
	Short: "List the version history of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := actorClient()
		if err != nil {
			return err
		}
		resp, err := cli.Actor.ListVersions(cmd.Context(), &cvrpc.ListVersionsRequest{FileID: args[0]})
		if err != nil {
			return err
		}
		printVersions(cmd.OutOrStdout(), resp.Versions)
		return nil
	},
}

var fileRmCmd = &cobra.Command{
	Use:   "rm [file-id]",
	Short: "Destroy a file and all of its versions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := userKey()
		if err != nil {
			return err
		}
		cli, err := actorClient()
		if err != nil {
			return err
		}
		if _, err := cli.Actor.Destroy(cmd.Context(), &cvrpc.DestroyRequest{UserKey: user, FileID: args[0]}); err != nil {
			return fmt.Errorf("rm failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
		return nil
	},
}

var fileCatCmd = &cobra.Command{
	Use:   "cat [file-id]",
	Short: "Write the content of a version to stdout",
	Long:  `Writes the newest version unless --version is given. Redirect to save binary content: cv file cat <id> > out.bin`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := actorClient()
		if err != nil {
			return err
		}
		resp, err := cli.Actor.GetContent(cmd.Context(), &cvrpc.GetContentRequest{FileID: args[0], Label: catLabel})
		if err != nil {
			return fmt.Errorf("cat failed: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(resp.Content)
		return err
	},
}

func printFile(w io.Writer, f *cvrpc.File) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "id:\t%s\n", f.ID)
	fmt.Fprintf(tw, "label:\t%s\n", f.Label)
	fmt.Fprintf(tw, "title:\t%s\n", strings.Join(f.Title, "; "))
	fmt.Fprintf(tw, "depositor:\t%s\n", f.Depositor)
	fmt.Fprintf(tw, "visibility:\t%s\n", f.Visibility)
	if f.UploadSetID != "" {
		fmt.Fprintf(tw, "upload set:\t%s\n", f.UploadSetID)
	}
	if len(f.WorkIDs) > 0 {
		fmt.Fprintf(tw, "works:\t%s\n", strings.Join(f.WorkIDs, ", "))
	}
	if f.DateUploaded != nil {
		fmt.Fprintf(tw, "uploaded:\t%s\n", f.DateUploaded.Format(time.RFC1123))
	}
	if f.DateModified != nil {
		fmt.Fprintf(tw, "modified:\t%s\n", f.DateModified.Format(time.RFC1123))
	}
	if f.LatestVersion != "" {
		fmt.Fprintf(tw, "latest:\t%s (%d versions)\n", f.LatestVersion, f.VersionCount)
	}
	if f.CharacterizedVersion > 0 {
		fmt.Fprintf(tw, "characterized:\tversion%d %s %d bytes sha256:%s\n",
			f.CharacterizedVersion, f.MimeType, f.FileSize, f.Checksum)
	}
}

func printVersions(w io.Writer, versions []cvrpc.Version) {
	if len(versions) == 0 {
		fmt.Fprintln(w, "No versions yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "FILE\tLABEL\tCOMMITTER\tSIZE\tMIME\tDATE")
	for _, v := range versions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			v.FileID, v.Label, v.Committer, v.Size, v.MimeType, v.CreatedAt.Format(time.RFC3339))
	}
}

func init() {
	fileCreateCmd.Flags().StringVar(&fileWorkID, "work", "", "attach the new file to this work")
	fileCreateCmd.Flags().StringVar(&fileUploadSetID, "upload-set", "", "record the upload set the file arrived in")
	fileUploadCmd.Flags().StringVar(&uploadMimeType, "mime", "", "override the detected mime type")
	fileCatCmd.Flags().StringVar(&catLabel, "version", "", "version label (default newest)")

	fileCmd.AddCommand(fileCreateCmd, fileUploadCmd, fileRevertCmd, fileShowCmd, fileVersionsCmd, fileRmCmd, fileCatCmd)
	rootCmd.AddCommand(fileCmd)
}
