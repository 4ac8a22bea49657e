// Package domain defines the lead record persisted to the ledger and the
// ledger abstraction itself. A Lead is the fully validated intake record,
// immutable once constructed and written exactly once per completed
// conversation.
package domain

import (
	"strconv"
	"time"
)

const (
	// StatusNew is the fixed initial status assigned to every new lead.
	// The bot never mutates it afterwards.
	StatusNew = "New"

	// DefaultUsername is stored when the messenger account has no username.
	DefaultUsername = "Not set"

	// SubmittedAtLayout is the ledger timestamp format, e.g. "07.01.2026 15:04".
	SubmittedAtLayout = "02.01.2006 15:04"
)

// Lead is a submission-ready intake record. The struct doubles as the GORM
// model for the SQLite ledger backend; the Sheets backend writes the same
// fields via Row.
//
// SubmittedAt is stored preformatted so both backends persist the identical
// human-readable value.
type Lead struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	Username    string    `json:"username"     gorm:"type:varchar(64);not null"`
	UserID      int64     `json:"user_id"      gorm:"not null;index:idx_leads_user"`
	Name        string    `json:"name"         gorm:"type:varchar(255);not null"`
	SubmittedAt string    `json:"submitted_at" gorm:"type:varchar(20);not null"`
	Phone       string    `json:"phone"        gorm:"type:varchar(16);not null;index:idx_leads_phone"`
	Answer      string    `json:"answer"       gorm:"type:text;not null"`
	Status      string    `json:"status"       gorm:"type:varchar(16);not null"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the database table name for Lead.
func (Lead) TableName() string { return "leads" }

// NewLead assembles a Lead from the collected session fields and message
// metadata. submittedAt must already carry the configured wall-clock offset;
// it is formatted with SubmittedAtLayout. An empty username is replaced with
// DefaultUsername.
func NewLead(username string, userID int64, name, phone, answer string, submittedAt time.Time) Lead {
	if username == "" {
		username = DefaultUsername
	}
	return Lead{
		Username:    username,
		UserID:      userID,
		Name:        name,
		SubmittedAt: submittedAt.Format(SubmittedAtLayout),
		Phone:       phone,
		Answer:      answer,
		Status:      StatusNew,
	}
}

// Row returns the lead projected into ledger column order:
// username, user_id, name, submitted_at, phone, answer, status.
func (l Lead) Row() []string {
	return []string{
		l.Username,
		strconv.FormatInt(l.UserID, 10),
		l.Name,
		l.SubmittedAt,
		l.Phone,
		l.Answer,
		l.Status,
	}
}
