package domain

import "context"

// Ledger is the append-only external lead store. It is both the audit log
// and the dedup source of truth: the phone column is unique across all
// historical rows.
//
// IsPhoneRegistered and AppendLead are separate, non-transactional calls.
// Two sessions racing on the same new phone number can both pass the check
// before either appends; this is an accepted property of the ledger
// collaborator, not something the bot papers over.
type Ledger interface {
	// IsPhoneRegistered reports whether phone (digits-only, exact match)
	// already appears anywhere in the ledger's phone column.
	IsPhoneRegistered(ctx context.Context, phone string) (bool, error)

	// AppendLead appends a single row. On error the ledger is left
	// unchanged; callers may retry with the same lead.
	AppendLead(ctx context.Context, lead Lead) error
}
