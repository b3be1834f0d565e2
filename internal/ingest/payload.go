// internal/ingest/payload.go
package ingest

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// EventTime unmarshals the two timestamp encodings GitHub mixes in webhook
// payloads: unix epoch integers and RFC 3339 strings.
type EventTime struct {
	time.Time
}

func (t *EventTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return err
		}
		t.Time = parsed
		return nil
	}

	epoch, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	t.Time = time.Unix(epoch, 0).UTC()
	return nil
}

// AccountPayload is the owner/sender fragment of a webhook payload.
type AccountPayload struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

// RepoPayload is the repository fragment of a webhook payload.
type RepoPayload struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	FullName        string         `json:"full_name"`
	Description     *string        `json:"description"`
	HTMLURL         string         `json:"html_url"`
	Language        *string        `json:"language"`
	StargazersCount int            `json:"stargazers_count"`
	DefaultBranch   string         `json:"default_branch"`
	Owner           AccountPayload `json:"owner"`
	CreatedAt       EventTime      `json:"created_at"`
	UpdatedAt       EventTime      `json:"updated_at"`
	PushedAt        EventTime      `json:"pushed_at"`
}

// CommitAuthorPayload identifies a commit author within a push payload.
// Username is the GitHub login when GitHub could map the author to an
// account; name and email come from the commit itself.
type CommitAuthorPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// CommitPayload is one commit descriptor within a push payload. Push payloads
// are best-effort: large pushes truncate the commit list, and descriptors may
// arrive out of order or more than once.
type CommitPayload struct {
	SHA       string              `json:"id"`
	Message   string              `json:"message"`
	Timestamp EventTime           `json:"timestamp"`
	Author    CommitAuthorPayload `json:"author"`
}

// PushEvent is the push webhook payload, reduced to the fields the pipeline
// consumes.
type PushEvent struct {
	Ref        string          `json:"ref"`
	Repository RepoPayload     `json:"repository"`
	Commits    []CommitPayload `json:"commits"`
}

// StarEvent is the star webhook payload.
type StarEvent struct {
	Action     string      `json:"action"`
	Repository RepoPayload `json:"repository"`
}

// BranchFromRef extracts the branch name from a git ref like
// "refs/heads/main". A bare branch name passes through unchanged.
func BranchFromRef(ref string) string {
	if idx := strings.LastIndex(ref, "/"); idx >= 0 {
		return ref[idx+1:]
	}
	return ref
}
