package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"drivemanager/config"
	"drivemanager/internal/blobstore"
	"drivemanager/internal/downloader"
	"drivemanager/internal/gdrive"
	"drivemanager/internal/remote"
	"drivemanager/internal/s3client"
	"drivemanager/pkg/utils"
)

var (
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "drivemanager",
	Short: "Search and download files from cloud storage",
	Long: `Drive Manager is a command-line tool for finding folders and files in cloud
storage and downloading them into one local directory: a single file, the files
of a folder (optionally in session-refreshed batches) or every file of a folder
tree.

Backends: Google Drive (drive), S3 compatible storage (s3) and any gocloud.dev
bucket URL (blob). Configuration is loaded from .env file or environment variables`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if isVerbose(cmd) {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		}
	},
}

func Execute(config *config.Config) error {
	cfg = config
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(searchFolderCmd)
	rootCmd.AddCommand(searchFileCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(downloadFolderCmd)
	rootCmd.AddCommand(downloadTreeCmd)

	rootCmd.PersistentFlags().String("backend", "", "Override backend from config: drive, s3 or blob")
	rootCmd.PersistentFlags().Bool("delete", false, "Delete remote objects after download (default from DELETE)")
	rootCmd.PersistentFlags().Bool("overwrite", false, "Overwrite existing local files (default from OVERWRITE)")
	rootCmd.PersistentFlags().Int("retries", 0, "Retries per remote call (default from RETRIES)")
	rootCmd.PersistentFlags().Duration("call-timeout", 0, "Timeout for each remote call, 0 for none")
	rootCmd.PersistentFlags().Int("timeout", 0, "Timeout in seconds for the whole operation, 0 for none")
	rootCmd.PersistentFlags().Bool("confirm", false, "Skip confirmation prompt")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
}

func getBackend(cmd *cobra.Command) string {
	backend, _ := cmd.Flags().GetString("backend")
	if backend != "" {
		return backend
	}
	return cfg.Backend
}

func isVerbose(cmd *cobra.Command) bool {
	verbose, _ := cmd.Flags().GetBool("verbose")
	return verbose
}

// boolFlag returns the flag value when it was set on the command line and
// fallback otherwise.
func boolFlag(cmd *cobra.Command, name string, fallback bool) bool {
	if !cmd.Flags().Changed(name) {
		return fallback
	}
	value, _ := cmd.Flags().GetBool(name)
	return value
}

func intFlag(cmd *cobra.Command, name string, fallback int) int {
	if !cmd.Flags().Changed(name) {
		return fallback
	}
	value, _ := cmd.Flags().GetInt(name)
	return value
}

// commandContext applies the --timeout flag.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout, _ := cmd.Flags().GetInt("timeout")
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
}

// newClient builds the remote client for the selected backend.
var newClient = func(ctx context.Context, backend string) (remote.Client, func(), error) {
	switch backend {
	case config.BackendDrive:
		client, err := gdrive.New(ctx, cfg)
		return client, func() {}, err
	case config.BackendS3:
		client, err := s3client.New(cfg)
		return client, func() {}, err
	case config.BackendBlob:
		client, err := blobstore.Open(ctx, cfg.BlobURL)
		if err != nil {
			return nil, nil, err
		}
		return client, func() { client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q, want %s, %s or %s",
			backend, config.BackendDrive, config.BackendS3, config.BackendBlob)
	}
}

func newDownloader(cmd *cobra.Command, client remote.Client) *downloader.Downloader {
	callTimeout, _ := cmd.Flags().GetDuration("call-timeout")
	return downloader.New(client, downloader.Options{
		Delete:      boolFlag(cmd, "delete", cfg.Delete),
		Overwrite:   boolFlag(cmd, "overwrite", cfg.Overwrite),
		Retry:       downloader.RetryPolicy{Attempts: intFlag(cmd, "retries", cfg.Retries)},
		CallTimeout: callTimeout,
		Backend:     getBackend(cmd),
	})
}

// confirmOperation prints the summary and asks for confirmation unless
// --confirm is set.
func confirmOperation(cmd *cobra.Command, title string, summary [][2]string) bool {
	if confirm, _ := cmd.Flags().GetBool("confirm"); confirm {
		return true
	}

	fmt.Printf("%s operation summary:\n", title)
	fmt.Printf("Backend: %s\n", getBackend(cmd))
	for _, line := range summary {
		fmt.Printf("%s: %s\n", line[0], line[1])
	}
	if boolFlag(cmd, "delete", cfg.Delete) {
		fmt.Println("WARNING: remote objects will be deleted after download")
	}

	fmt.Printf("Continue with %s? (y/N): ", strings.ToLower(title))
	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		utils.PrintError(err, cmd.Name())
		return false
	}
	if !slices.Contains([]string{"y", "yes"}, strings.ToLower(response)) {
		fmt.Printf("%s cancelled.\n", title)
		return false
	}
	return true
}

// printResult prints the result, when there is one, and then the error.
func printResult[T any](cmd *cobra.Command, result *T, err error) {
	if result != nil {
		if perr := utils.PrintJSON(result); perr != nil {
			utils.PrintError(perr, cmd.Name())
			return
		}
	}
	if err != nil {
		utils.PrintError(err, cmd.Name())
	}
}
