package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"drivemanager/internal/models"
	"drivemanager/internal/remote"
)

func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func PrintJSON(data interface{}) error {
	jsonOutput, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(jsonOutput))
	return nil
}

// ErrorKind classifies err for scripts reading the JSON output.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, remote.ErrNotFound):
		return "not_found"
	case errors.Is(err, remote.ErrLocalIO):
		return "local_io"
	case errors.Is(err, remote.ErrTransfer):
		return "transfer"
	case errors.Is(err, remote.ErrRemote):
		return "remote"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return ""
	}
}

func PrintError(err error, command string) {
	errorResp := models.ErrorResponse{
		Error:     err.Error(),
		Kind:      ErrorKind(err),
		Timestamp: time.Now().Format(time.RFC3339),
		Command:   command,
	}
	err = PrintJSON(errorResp)
	if err != nil {
		slog.Error("Failed to print error in JSON format", "error", err)
		fmt.Println("Error: ", errorResp)
		return
	}
}

func FormatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

// FormatDuration rounds d to milliseconds.
func FormatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
