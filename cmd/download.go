package cmd

import (
	"github.com/spf13/cobra"

	"drivemanager/pkg/utils"
)

var downloadCmd = &cobra.Command{
	Use:   "download [name]",
	Short: "Download the first file whose name contains the given text",
	Long: `Download the first file whose name contains the given text.

The file is written into the destination directory under its remote title. An
existing local file is skipped unless --overwrite is set. With --delete the
remote file is removed after the download (or skip).

If no destination is specified, the file will be downloaded to the current directory.`,
	Example: `  # Download a file
  drivemanager download report.pdf

  # Download to a specific destination
  drivemanager download report.pdf --destination /tmp/downloads/

  # Only match PDF files and remove the remote copy afterwards
  drivemanager download report --mime-type application/pdf --delete`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runDownload(cmd, args)
	},
}

func runDownload(cmd *cobra.Command, args []string) {
	name := args[0]
	destination, _ := cmd.Flags().GetString("destination")
	mimeType, _ := cmd.Flags().GetString("mime-type")

	// If destination is empty, use current directory
	if destination == "" {
		destination = "."
	}

	if !confirmOperation(cmd, "Download", [][2]string{
		{"File", name},
		{"Destination", destination},
	}) {
		return
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	client, closeClient, err := newClient(ctx, getBackend(cmd))
	if err != nil {
		utils.PrintError(err, "download")
		return
	}
	defer closeClient()

	if isVerbose(cmd) {
		cmd.Printf("Starting download operation...\n")
		cmd.Printf("  File: %s\n", name)
		cmd.Printf("  Destination: %s\n", destination)
	}

	result, err := newDownloader(cmd, client).DownloadFile(ctx, name, mimeType, destination)
	printResult(cmd, result, err)

	if err == nil && isVerbose(cmd) {
		cmd.Println("Download operation completed successfully")
		cmd.Printf("Downloaded file: %s\n", result.Items[0].LocalPath)
	}
}

func init() {
	downloadCmd.Flags().StringP("destination", "d", "", "Local destination directory (default: current directory)")
	downloadCmd.Flags().String("mime-type", "", "Only match files of this mime type")
}
