package dto

import "encoding/json"

// --- Health ---

// HealthRequest is a request to check server health.
type HealthRequest struct{}

// Validate is a no-op for HealthRequest.
func (r *HealthRequest) Validate() error {
	return nil
}

// --- Files ---

// ListFilesRequest lists a directory. An empty path is the repository root.
type ListFilesRequest struct {
	Path string `json:"path,omitempty" jsonschema:"description=Directory to list; empty for the repository root"`
}

// Validate is a no-op for ListFilesRequest.
func (r *ListFilesRequest) Validate() error {
	return nil
}

// ReadFileRequest reads one file.
type ReadFileRequest struct {
	Path string `json:"path" jsonschema:"description=Repository relative file path"`
}

// Validate validates the read file request fields.
func (r *ReadFileRequest) Validate() error {
	if r.Path == "" {
		return MissingField("path")
	}
	return nil
}

// WriteFileRequest creates or updates one file. SHA, when set, must match
// the current version of the file.
type WriteFileRequest struct {
	Path    string  `json:"path" jsonschema:"description=Repository relative file path"`
	Content *string `json:"content" jsonschema:"description=Complete new file content"`
	Message string  `json:"message" jsonschema:"description=Commit message"`
	SHA     *string `json:"sha,omitempty" jsonschema:"description=Version token returned by read_file; omit to overwrite"`
}

// Validate validates the write file request fields.
func (r *WriteFileRequest) Validate() error {
	if r.Path == "" {
		return MissingField("path")
	}
	if r.Content == nil {
		return MissingField("content")
	}
	if r.Message == "" {
		return MissingField("message")
	}
	if r.SHA != nil && *r.SHA == "" {
		return InvalidField("sha", "must not be empty when present")
	}
	return nil
}

// DeleteFileRequest deletes one file.
type DeleteFileRequest struct {
	Path    string `json:"path" jsonschema:"description=Repository relative file path"`
	Message string `json:"message,omitempty" jsonschema:"description=Commit message"`
}

// Validate validates the delete file request fields.
func (r *DeleteFileRequest) Validate() error {
	if r.Path == "" {
		return MissingField("path")
	}
	return nil
}

// UploadRequest stores a base64 encoded image under the asset directory.
type UploadRequest struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
}

// Validate validates the upload request fields.
func (r *UploadRequest) Validate() error {
	if r.Filename == "" {
		return MissingField("filename")
	}
	if r.Content == "" {
		return MissingField("content")
	}
	if r.ContentType == "" {
		return MissingField("contentType")
	}
	return nil
}

// --- Activity ---

// ListActivityRequest is a request to read the activity log. Limit, when
// positive, returns only the most recent entries.
type ListActivityRequest struct {
	Limit int `json:"-" query:"limit"`
}

// Validate validates the list activity request fields.
func (r *ListActivityRequest) Validate() error {
	if r.Limit < 0 {
		return InvalidField("limit", "must not be negative")
	}
	return nil
}

// AppendActivityRequest records one activity entry.
type AppendActivityRequest struct {
	Action      string   `json:"action" jsonschema:"description=Short category such as edit or publish"`
	Description string   `json:"description" jsonschema:"description=Human readable summary"`
	Files       []string `json:"files,omitempty"`
	Status      string   `json:"status,omitempty"`
}

// Validate validates the append activity request fields.
func (r *AppendActivityRequest) Validate() error {
	if r.Action == "" {
		return MissingField("action")
	}
	if r.Description == "" {
		return MissingField("description")
	}
	return nil
}

// ClearActivityRequest is a request to empty the activity log.
type ClearActivityRequest struct{}

// Validate is a no-op for ClearActivityRequest.
func (r *ClearActivityRequest) Validate() error {
	return nil
}

// --- Deployment ---

// TriggerDeployRequest queues a deployment.
type TriggerDeployRequest struct {
	Message string `json:"message,omitempty" jsonschema:"description=Reason recorded in the activity log"`
}

// Validate is a no-op for TriggerDeployRequest.
func (r *TriggerDeployRequest) Validate() error {
	return nil
}

// DeploymentStatusRequest is a request for the latest deployment state.
type DeploymentStatusRequest struct{}

// Validate is a no-op for DeploymentStatusRequest.
func (r *DeploymentStatusRequest) Validate() error {
	return nil
}

// --- Chat ---

// ChatRequest forwards a conversation to the completion API. Messages are
// passed through untouched.
type ChatRequest struct {
	Messages []json.RawMessage `json:"messages"`
}

// Validate validates the chat request fields.
func (r *ChatRequest) Validate() error {
	if len(r.Messages) == 0 {
		return MissingField("messages")
	}
	return nil
}

// ListToolsRequest is a request for the agent tool definitions.
type ListToolsRequest struct{}

// Validate is a no-op for ListToolsRequest.
func (r *ListToolsRequest) Validate() error {
	return nil
}
