// Converts domain types to API types.

package handlers

import (
	"time"

	"github.com/havenrealty/sitekeeper/internal/activity"
	"github.com/havenrealty/sitekeeper/internal/contentstore"
	"github.com/havenrealty/sitekeeper/internal/server/dto"
)

func activityToDTO(e *activity.Entry) dto.ActivityEntry {
	files := e.Files
	if files == nil {
		files = []string{}
	}
	return dto.ActivityEntry{
		ID:          e.ID,
		Timestamp:   e.Timestamp.UTC().Format(time.RFC3339),
		Action:      e.Action,
		Description: e.Description,
		Files:       files,
		Status:      e.Status,
	}
}

func activitiesToDTO(entries []activity.Entry) []dto.ActivityEntry {
	out := make([]dto.ActivityEntry, len(entries))
	for i := range entries {
		out[i] = activityToDTO(&entries[i])
	}
	return out
}

func entryToDTO(e *contentstore.Entry) dto.FileInfo {
	return dto.FileInfo{
		Name: e.Name,
		Path: e.Path,
		Type: string(e.Type),
		Size: e.Size,
	}
}
