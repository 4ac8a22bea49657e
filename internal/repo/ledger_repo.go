package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cryverse/telegram-30leads-bot-new/internal/domain"
)

// LeadLedger implements domain.Ledger on a GORM SQLite handle.
//
// As with the Sheets backend, IsPhoneRegistered and AppendLead are separate
// calls with no transaction spanning both; the duplicate-check race between
// two sessions submitting the same new phone number is accepted.
type LeadLedger struct {
	// DB is the database handle used for all ledger operations.
	DB *gorm.DB
}

// IsPhoneRegistered reports whether any existing row carries exactly this
// phone value.
func (l *LeadLedger) IsPhoneRegistered(ctx context.Context, phone string) (bool, error) {
	var n int64
	err := l.DB.WithContext(ctx).
		Model(&domain.Lead{}).
		Where("phone = ?", phone).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AppendLead inserts one lead row, assigning a UUID when the caller left the
// ID empty. On error nothing is written.
func (l *LeadLedger) AppendLead(ctx context.Context, lead domain.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	return l.DB.WithContext(ctx).Create(&lead).Error
}
