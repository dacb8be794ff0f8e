package cmd

import (
	"github.com/spf13/cobra"

	"drivemanager/internal/models"
	"drivemanager/pkg/utils"
)

var searchFolderCmd = &cobra.Command{
	Use:   "search-folder [name]",
	Short: "Find the first folder whose name contains the given text",
	Long: `Find the first non-trashed folder whose name contains the given text and print
its id, title and mime type.`,
	Example: `  # Find a folder
  drivemanager search-folder Reports

  # Search an S3 bucket instead of Google Drive
  drivemanager search-folder Reports --backend s3`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSearch(cmd, args[0], true)
	},
}

var searchFileCmd = &cobra.Command{
	Use:   "search-file [name]",
	Short: "Find the first file whose name contains the given text",
	Long: `Find the first non-trashed file whose name contains the given text, optionally
restricted to one mime type, and print its id, title and mime type.`,
	Example: `  # Find a file
  drivemanager search-file invoice

  # Only PDF files
  drivemanager search-file invoice --mime-type application/pdf`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSearch(cmd, args[0], false)
	},
}

func runSearch(cmd *cobra.Command, name string, folder bool) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	client, closeClient, err := newClient(ctx, getBackend(cmd))
	if err != nil {
		utils.PrintError(err, cmd.Name())
		return
	}
	defer closeClient()

	var obj models.Object
	if folder {
		obj, err = client.SearchFolder(ctx, name)
	} else {
		mimeType, _ := cmd.Flags().GetString("mime-type")
		obj, err = client.SearchFile(ctx, name, mimeType)
	}
	if err != nil {
		utils.PrintError(err, cmd.Name())
		return
	}

	printResult(cmd, &models.SearchResult{
		Backend: getBackend(cmd),
		Query:   name,
		Object:  obj,
	}, nil)
}

func init() {
	searchFileCmd.Flags().String("mime-type", "", "Only match files of this mime type")
}
