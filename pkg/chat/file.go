package chat

// FileProcessingStatus is the ingestion state of an uploaded file.
type FileProcessingStatus string

const (
	FilePending   FileProcessingStatus = "pending"
	FileUploading FileProcessingStatus = "uploading"
	FileParsing   FileProcessingStatus = "parsing"
	FileProcessed FileProcessingStatus = "processed"
	FileError     FileProcessingStatus = "error"
)

// IsTerminal reports whether no further status changes are expected.
func (s FileProcessingStatus) IsTerminal() bool {
	return s == FileProcessed || s == FileError
}

// FileStatus is the response of the file status endpoint.
type FileStatus struct {
	ID           string               `json:"id"`
	Status       FileProcessingStatus `json:"status"`
	ErrorMessage string               `json:"error_message,omitempty"`
}

// FileInfo describes an uploaded file attached to a conversation.
type FileInfo struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	MimeType  string `json:"mimetype"`
	Size      int64  `json:"size"`
	CreatedAt string `json:"created_at"`
}
