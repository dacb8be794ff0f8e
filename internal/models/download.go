package models

type DownloadStatus string

const (
	StatusDownloaded DownloadStatus = "downloaded"
	StatusSkipped    DownloadStatus = "skipped"
	StatusFailed     DownloadStatus = "failed"
)

type DownloadItem struct {
	ID        string         `json:"id"`
	Title     string         `json:"title,omitempty"`
	LocalPath string         `json:"local_path"`
	Size      int64          `json:"size"`
	Status    DownloadStatus `json:"status"`
	Deleted   bool           `json:"deleted"`
	Error     string         `json:"error,omitempty"`
}

type DownloadResult struct {
	RunID            string         `json:"run_id"`
	Backend          string         `json:"backend,omitempty"`
	SourcePath       string         `json:"source_path"`
	Destination      string         `json:"destination"`
	Items            []DownloadItem `json:"items"`
	Batches          int            `json:"batches,omitempty"`
	TotalFiles       int            `json:"total_files"`
	DownloadedFiles  int            `json:"downloaded_files"`
	SkippedFiles     int            `json:"skipped_files"`
	FailedFiles      int            `json:"failed_files"`
	TotalSizeBytes   int64          `json:"total_size_bytes"`
	TotalSizeHuman   string         `json:"total_size_human"`
	OperationTime    string         `json:"operation_time"`
	DownloadDuration string         `json:"download_duration"`
}

// Add appends items and updates the counters.
func (r *DownloadResult) Add(items ...DownloadItem) {
	for _, item := range items {
		r.Items = append(r.Items, item)
		r.TotalFiles++
		switch item.Status {
		case StatusDownloaded:
			r.DownloadedFiles++
			r.TotalSizeBytes += item.Size
		case StatusSkipped:
			r.SkippedFiles++
		case StatusFailed:
			r.FailedFiles++
		}
	}
}

type VisitedFolder struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type WalkResult struct {
	DownloadResult
	Folders []VisitedFolder `json:"folders"`
}
