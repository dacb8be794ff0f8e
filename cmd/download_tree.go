package cmd

import (
	"github.com/spf13/cobra"

	"drivemanager/internal/downloader"
	"drivemanager/pkg/utils"
)

var downloadTreeCmd = &cobra.Command{
	Use:   "download-tree [name]",
	Short: "Download every file below a folder into one directory",
	Long: `Walk a folder tree breadth first, starting at the first folder whose name
contains the given text, and download the files of every subfolder into one flat
local directory.

Files directly inside the starting folder are not downloaded unless
--include-root is set. Files with the same name in different folders share one
local path; the first one wins unless --overwrite is set.`,
	Example: `  # Download everything below Reports
  drivemanager download-tree Reports -d ./reports

  # Include the files of Reports itself, 8 parallel downloads per folder
  drivemanager download-tree Reports -d ./reports --include-root --processes 8`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runDownloadTree(cmd, args)
	},
}

func runDownloadTree(cmd *cobra.Command, args []string) {
	root := args[0]
	destination, _ := cmd.Flags().GetString("destination")
	includeRoot, _ := cmd.Flags().GetBool("include-root")

	if destination == "" {
		destination = "."
	}

	if !confirmOperation(cmd, "Download", [][2]string{
		{"Folder tree", root},
		{"Destination", destination},
	}) {
		return
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	client, closeClient, err := newClient(ctx, getBackend(cmd))
	if err != nil {
		utils.PrintError(err, "download-tree")
		return
	}
	defer closeClient()

	result, err := newDownloader(cmd, client).WalkAndDownload(ctx, root, destination, downloader.WalkOptions{
		Concurrency:      intFlag(cmd, "processes", cfg.Processes),
		IncludeRootFiles: includeRoot,
	})
	printResult(cmd, result, err)

	if result != nil && isVerbose(cmd) {
		for _, folder := range result.Folders {
			cmd.Printf("  %s\n", folder.Label)
		}
		cmd.Printf("Visited %d folders, downloaded %d files\n", len(result.Folders), result.DownloadedFiles)
	}
}

func init() {
	downloadTreeCmd.Flags().StringP("destination", "d", "", "Local destination directory (default: current directory)")
	downloadTreeCmd.Flags().Int("processes", 4, "Parallel downloads per folder (default from PROCESSES)")
	downloadTreeCmd.Flags().Bool("include-root", false, "Also download the files of the starting folder")
}
