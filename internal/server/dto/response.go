package dto

import "encoding/json"

// HealthResponse reports server health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// --- Files ---

// FileInfo is one directory entry.
type FileInfo struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// ListFilesResponse is a directory listing.
type ListFilesResponse struct {
	Path  string     `json:"path"`
	Files []FileInfo `json:"files"`
}

// ReadFileResponse is a file with its version token. Encoding is "base64"
// when the content is not valid UTF-8.
type ReadFileResponse struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	SHA      string `json:"sha"`
	Size     int64  `json:"size"`
	Encoding string `json:"encoding,omitempty"`
}

// WriteFileResponse reports a committed write.
type WriteFileResponse struct {
	Success bool   `json:"success"`
	Path    string `json:"path"`
	SHA     string `json:"sha"`
	Commit  string `json:"commit"`
	Message string `json:"message"`
}

// DeleteFileResponse confirms a deletion.
type DeleteFileResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

// UploadResponse reports where an upload was stored.
type UploadResponse struct {
	Success  bool   `json:"success"`
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

// --- Activity ---

// ActivityEntry is one activity log record. Timestamp is RFC 3339.
type ActivityEntry struct {
	ID          string   `json:"id"`
	Timestamp   string   `json:"timestamp"`
	Action      string   `json:"action"`
	Description string   `json:"description"`
	Files       []string `json:"files"`
	Status      string   `json:"status"`
}

// ListActivityResponse is the activity log, most recent first.
type ListActivityResponse struct {
	Activities []ActivityEntry `json:"activities"`
}

// AppendActivityResponse returns the stored entry.
type AppendActivityResponse struct {
	Success  bool          `json:"success"`
	Activity ActivityEntry `json:"activity"`
}

// ClearActivityResponse confirms the log was emptied.
type ClearActivityResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// --- Deployment ---

// TriggerDeployResponse confirms a deployment was queued.
type TriggerDeployResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	JobID   string `json:"jobId,omitempty"`
}

// DeploymentStatusResponse is the latest deployment state: one of queued,
// building, ready or error.
type DeploymentStatusResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	URL       string `json:"url,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// WebhookResponse acknowledges a deployment event.
type WebhookResponse struct {
	Received     bool   `json:"received"`
	DeploymentID string `json:"deploymentId"`
	Status       string `json:"status"`
}

// --- Chat ---

// ChatResponse is the assistant message, as returned by the completion API.
type ChatResponse struct {
	Message json.RawMessage `json:"message"`
}

// ListToolsResponse lists tool definitions in the completion API format.
type ListToolsResponse struct {
	Tools []json.RawMessage `json:"tools"`
}

// ToolCallResponse is the result of one tool invocation.
type ToolCallResponse struct {
	Tool   string `json:"tool"`
	Result any    `json:"result"`
}
