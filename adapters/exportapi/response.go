package exportapi

import "github.com/goliatone/go-report/export"

// Response provides a minimal response interface for transport adapters.
type Response interface {
	SetHeader(name, value string)
	WriteHeader(status int)
	Write(data []byte) (int, error)
	WriteJSON(status int, payload any) error
}

// ExportResponse describes the JSON returned for stored exports when the
// client asks for metadata instead of the file.
type ExportResponse struct {
	ID          string `json:"id"`
	Format      string `json:"format"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Rows        int64  `json:"rows"`
	Size        string `json:"size"`
	Bytes       int    `json:"bytes"`
	DownloadURL string `json:"download_url,omitempty"`
}

// HistoryResponse lists recorded export outcomes.
type HistoryResponse struct {
	Entries []export.HistoryEntry `json:"entries"`
}

// ErrorResponse describes JSON error responses.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains error details.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
