package models

// FolderMimeType marks an Object as a folder. Prefix-based backends report
// their virtual directories with the same type.
const FolderMimeType = "application/vnd.google-apps.folder"

// Object describes one remote file or folder as returned by a listing or search.
type Object struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	MimeType string `json:"mime_type"`
}

func (o Object) IsFolder() bool {
	return o.MimeType == FolderMimeType
}

// DownloadJob is a single object id paired with the local path it is written to.
type DownloadJob struct {
	ObjectID        string
	DestinationPath string
}

type SearchResult struct {
	Backend string `json:"backend"`
	Query   string `json:"query"`
	Object  Object `json:"object"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Timestamp string `json:"timestamp"`
	Command   string `json:"command"`
}
