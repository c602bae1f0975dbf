// Reads deployment state from the platform REST API.

package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultAPIURL is the platform API endpoint.
const DefaultAPIURL = "https://api.vercel.com"

// Vercel queries deployments of one project.
type Vercel struct {
	// BaseURL defaults to DefaultAPIURL.
	BaseURL   string
	Token     string
	ProjectID string
	// TeamID scopes the query to a team when set.
	TeamID string
	Client *http.Client
}

// Status is the state of the most recent deployment.
type Status struct {
	ID        string
	State     State
	URL       string
	CreatedAt time.Time
}

// Latest returns the newest deployment of the project. It returns a nil
// Status when the project has no deployments.
func (v *Vercel) Latest(ctx context.Context) (*Status, error) {
	if v == nil || v.Token == "" || v.ProjectID == "" {
		return nil, ErrNotConfigured
	}
	base := v.BaseURL
	if base == "" {
		base = DefaultAPIURL
	}
	q := url.Values{"projectId": {v.ProjectID}, "limit": {"1"}}
	if v.TeamID != "" {
		q.Set("teamId", v.TeamID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(base, "/")+"/v6/deployments?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+v.Token)
	resp, err := client(v.Client).Do(req)
	if err != nil {
		return nil, fmt.Errorf("list deployments: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	var r struct {
		Deployments []struct {
			UID        string `json:"uid"`
			URL        string `json:"url"`
			State      string `json:"state"`
			ReadyState string `json:"readyState"`
			Created    int64  `json:"created"`
			CreatedAt  int64  `json:"createdAt"`
		} `json:"deployments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode deployments: %w", err)
	}
	if len(r.Deployments) == 0 {
		return nil, nil
	}
	d := r.Deployments[0]
	s := &Status{ID: d.UID, State: platformState(d.ReadyState)}
	if d.ReadyState == "" {
		s.State = platformState(d.State)
	}
	if d.URL != "" {
		s.URL = "https://" + d.URL
	}
	created := d.CreatedAt
	if created == 0 {
		created = d.Created
	}
	if created != 0 {
		s.CreatedAt = time.UnixMilli(created).UTC()
	}
	return s, nil
}
