package models

// LoadSource names where the editor document came from.
type LoadSource string

const (
	SourceDraft    LoadSource = "draft"
	SourceTemplate LoadSource = "template"
	SourceRemote   LoadSource = "remote"
	SourceBlank    LoadSource = "blank"
)

// EditorSession identifies the caller of an editor operation. OwnerID is empty when
// the caller is not signed in.
type EditorSession struct {
	ClientID string
	OwnerID  string
	Claims   *JWTClaims
}

// Authenticated reports whether the session belongs to a signed-in user.
func (s EditorSession) Authenticated() bool {
	return s.OwnerID != "" && s.Claims != nil
}

// LoadResult is the outcome of resolving the editor's starting document.
type LoadResult struct {
	Document          BulletinDocument `json:"document"`
	Source            LoadSource       `json:"source"`
	HasUnsavedChanges bool             `json:"has_unsaved_changes"`
	RemoteID          string           `json:"remote_id,omitempty"`
	TemplateID        string           `json:"template_id,omitempty"`
}

// SaveRequest is the payload of an explicit save.
type SaveRequest struct {
	Document   BulletinDocument `json:"document"`
	ExistingID string           `json:"existing_id"`
}

// SaveResult reports what happened to a save attempt. Offline results are never successes.
type SaveResult struct {
	ID       string `json:"id,omitempty"`
	Slug     string `json:"slug,omitempty"`
	Saved    bool   `json:"saved"`
	Offline  bool   `json:"offline"`
	Warning  string `json:"warning,omitempty"`
	Attempts int    `json:"attempts"`
}

// SyncResult summarises a manual sync of offline bulletins.
type SyncResult struct {
	Synced    []SaveResult      `json:"synced"`
	Remaining []OfflineBulletin `json:"remaining"`
}
