package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"drivemanager/internal/models"
	"drivemanager/pkg/utils"
)

var downloadFolderCmd = &cobra.Command{
	Use:   "download-folder [name]",
	Short: "Download the files of the first folder whose name contains the given text",
	Long: `Download the direct files of a folder (not its subfolders) into one local directory.

With a batch size above zero the files are split into batches of that size. The
session is refreshed before every batch and the files of a batch are downloaded
in parallel, one worker per file. A batch size of 0 downloads all files at once
on --processes workers and, with --delete, removes the remote folder when every
file succeeded.`,
	Example: `  # Download a folder in batches of 4 (default)
  drivemanager download-folder Inbox -d ./inbox

  # One dispatch on 8 workers, then delete the remote folder
  drivemanager download-folder Inbox -d ./inbox --batch-size 0 --processes 8 --delete

  # Sequential batches of 10
  drivemanager download-folder Inbox -d ./inbox --batch-size 10 --no-parallel`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runDownloadFolder(cmd, args)
	},
}

func runDownloadFolder(cmd *cobra.Command, args []string) {
	folder := args[0]
	destination, _ := cmd.Flags().GetString("destination")
	noParallel, _ := cmd.Flags().GetBool("no-parallel")
	batchSize := intFlag(cmd, "batch-size", cfg.BatchSize)
	processes := intFlag(cmd, "processes", cfg.Processes)

	if destination == "" {
		destination = "."
	}

	if !confirmOperation(cmd, "Download", [][2]string{
		{"Folder", folder},
		{"Destination", destination},
		{"Batch size", strconv.Itoa(batchSize)},
	}) {
		return
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	client, closeClient, err := newClient(ctx, getBackend(cmd))
	if err != nil {
		utils.PrintError(err, "download-folder")
		return
	}
	defer closeClient()

	d := newDownloader(cmd, client)

	var result *models.DownloadResult
	if batchSize > 0 {
		result, err = d.DownloadFolderInBatches(ctx, folder, destination, batchSize, !noParallel)
	} else {
		result, err = d.DownloadFolder(ctx, folder, destination, !noParallel, processes)
	}
	printResult(cmd, result, err)

	if result != nil && isVerbose(cmd) {
		cmd.Printf("Downloaded %d, skipped %d, failed %d of %d files\n",
			result.DownloadedFiles, result.SkippedFiles, result.FailedFiles, result.TotalFiles)
	}
}

func init() {
	downloadFolderCmd.Flags().StringP("destination", "d", "", "Local destination directory (default: current directory)")
	downloadFolderCmd.Flags().Int("batch-size", 4, "Files per batch, 0 to disable batching (default from BATCH_SIZE)")
	downloadFolderCmd.Flags().Int("processes", 4, "Parallel downloads without batching (default from PROCESSES)")
	downloadFolderCmd.Flags().Bool("no-parallel", false, "Download files one after another")
}
