package models

import "time"

// SubmissionStatus captures the review state of an announcement submission.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// Submission is an externally collected announcement candidate awaiting review.
type Submission struct {
	ID             string               `db:"id" json:"id"`
	OwnerID        string               `db:"owner_id" json:"owner_id"`
	Title          string               `db:"title" json:"title"`
	Content        string               `db:"content" json:"content"`
	Audience       AnnouncementAudience `db:"audience" json:"audience"`
	SubmitterName  string               `db:"submitter_name" json:"submitter_name"`
	SubmitterEmail string               `db:"submitter_email" json:"submitter_email"`
	Status         SubmissionStatus     `db:"status" json:"status"`
	ReviewerNotes  *string              `db:"reviewer_notes" json:"reviewer_notes,omitempty"`
	ReviewedAt     *time.Time           `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt      time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time            `db:"updated_at" json:"updated_at"`
}

// AsAnnouncement projects the submission onto the announcement shape.
func (s Submission) AsAnnouncement() Announcement {
	return Announcement{
		Title:    s.Title,
		Content:  s.Content,
		Category: DefaultAnnouncementCategory,
		Audience: s.Audience,
	}
}

// SubmissionFilter narrows submission listings.
type SubmissionFilter struct {
	OwnerID  string
	Status   *SubmissionStatus
	Audience *AnnouncementAudience
	Page     int
	PageSize int
}

// CreateSubmissionRequest is the public intake payload.
type CreateSubmissionRequest struct {
	ProfileSlug    string `json:"profile_slug" validate:"required,max=50"`
	Title          string `json:"title" validate:"required,max=200"`
	Content        string `json:"content" validate:"required"`
	Audience       string `json:"audience" validate:"omitempty,audience"`
	SubmitterName  string `json:"submitter_name" validate:"required,max=120"`
	SubmitterEmail string `json:"submitter_email" validate:"omitempty,email"`
}

// ReviewSubmissionRequest carries optional reviewer notes.
type ReviewSubmissionRequest struct {
	Notes string `json:"notes" validate:"omitempty,max=1000"`
}

// ApproveGroupRequest approves every pending submission of one audience.
type ApproveGroupRequest struct {
	Audience string `json:"audience" validate:"required,audience"`
	Notes    string `json:"notes" validate:"omitempty,max=1000"`
}

// BatchFailure records a submission that could not be transitioned.
type BatchFailure struct {
	SubmissionID string `json:"submission_id"`
	Error        string `json:"error"`
}

// BatchApprovalResult reports the outcome of a group approval.
type BatchApprovalResult struct {
	Audience     AnnouncementAudience `json:"audience"`
	Approved     []string             `json:"approved"`
	Failed       []BatchFailure       `json:"failed"`
	Announcement *Announcement        `json:"announcement,omitempty"`
	Appended     bool                 `json:"appended"`
	Warning      string               `json:"warning,omitempty"`
}

// ReviewResult reports a single review transition.
type ReviewResult struct {
	Submission Submission `json:"submission"`
	Appended   bool       `json:"appended"`
}
