package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cryverse/telegram-30leads-bot-new/internal/domain"
	"github.com/cryverse/telegram-30leads-bot-new/internal/repo"
	"github.com/cryverse/telegram-30leads-bot-new/internal/session"
)

// countingLedger wraps a real ledger, counts calls, and can be switched to
// fail appends to simulate an unreachable external store.
type countingLedger struct {
	inner      domain.Ledger
	lookups    int
	appends    int
	failAppend bool
}

func (c *countingLedger) IsPhoneRegistered(ctx context.Context, phone string) (bool, error) {
	c.lookups++
	return c.inner.IsPhoneRegistered(ctx, phone)
}

func (c *countingLedger) AppendLead(ctx context.Context, lead domain.Lead) error {
	c.appends++
	if c.failAppend {
		return errors.New("ledger down")
	}
	return c.inner.AppendLead(ctx, lead)
}

func newTestLedger(t *testing.T) *countingLedger {
	t.Helper()
	dsn := fmt.Sprintf("file:convsvc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return &countingLedger{inner: &repo.LeadLedger{DB: db}}
}

func newTestService(t *testing.T, led domain.Ledger) *ConversationService {
	t.Helper()
	return &ConversationService{
		Sessions:   session.NewStore(time.Minute),
		Ledger:     led,
		TimeOffset: 3 * time.Hour,
		Clock: func() time.Time {
			return time.Date(2026, 1, 7, 12, 4, 0, 0, time.UTC)
		},
	}
}

func send(svc *ConversationService, chatID int64, text string) Reply {
	return svc.Handle(context.Background(), Inbound{ChatID: chatID, Username: "john_doe", Text: text})
}

func lastText(t *testing.T, r Reply) string {
	t.Helper()
	if len(r.Texts) == 0 {
		t.Fatalf("reply has no texts")
	}
	return r.Texts[len(r.Texts)-1]
}

func TestHandle_NoSessionFallback(t *testing.T) {
	svc := newTestService(t, newTestLedger(t))

	got := lastText(t, send(svc, 1, "hello"))
	if got != msgUseStart {
		t.Fatalf("reply = %q, want %q", got, msgUseStart)
	}
	if _, ok := svc.Sessions.Get(1); ok {
		t.Fatalf("a non-start message must not create a session")
	}
}

func TestHandle_StartCreatesSession(t *testing.T) {
	svc := newTestService(t, newTestLedger(t))

	r := send(svc, 1, "/start")
	if len(r.Texts) != 2 || r.Texts[0] != msgGreeting || r.Texts[1] != msgAskName {
		t.Fatalf("unexpected start reply: %v", r.Texts)
	}
	sess, ok := svc.Sessions.Get(1)
	if !ok || sess.State != session.StateAwaitingName {
		t.Fatalf("session after start = %+v (ok=%v), want AwaitingName", sess, ok)
	}
}

func TestHandle_StartTriggerForms(t *testing.T) {
	svc := newTestService(t, newTestLedger(t))

	for _, text := range []string{"/start", "/start@LeadBot", "  /start  "} {
		got := send(svc, 1, text)
		if len(got.Texts) != 2 {
			t.Errorf("text %q not recognized as start trigger", text)
		}
	}
}

func TestHandle_InvalidNameKeepsState(t *testing.T) {
	svc := newTestService(t, newTestLedger(t))
	send(svc, 1, "/start")

	for _, bad := range []string{"John3", "...", "", "tel: 123"} {
		got := lastText(t, send(svc, 1, bad))
		if got != msgNameRejected {
			t.Errorf("reply to %q = %q, want %q", bad, got, msgNameRejected)
		}
		sess, _ := svc.Sessions.Get(1)
		if sess.State != session.StateAwaitingName {
			t.Fatalf("state after invalid name = %q, want AwaitingName", sess.State)
		}
	}
}

func TestHandle_NameIsTitleCased(t *testing.T) {
	svc := newTestService(t, newTestLedger(t))
	send(svc, 1, "/start")

	got := lastText(t, send(svc, 1, "john smith"))
	if !strings.Contains(got, "John Smith") {
		t.Fatalf("reply %q should greet the title-cased name", got)
	}
	sess, _ := svc.Sessions.Get(1)
	if sess.Name != "John Smith" {
		t.Fatalf("stored name = %q, want %q", sess.Name, "John Smith")
	}
}

// End-to-end scenario: start → name → formatted phone → answer yields exactly
// one append with the digits-only phone and returns the chat to no-session.
func TestHandle_HappyPath(t *testing.T) {
	led := newTestLedger(t)
	svc := newTestService(t, led)

	send(svc, 1, "/start")
	send(svc, 1, "John")

	got := lastText(t, send(svc, 1, "+7 (999) 123-45-67"))
	if got != msgAskQuestion {
		t.Fatalf("reply after phone = %q, want %q", got, msgAskQuestion)
	}

	got = lastText(t, send(svc, 1, "Freedom"))
	if got != msgAccepted {
		t.Fatalf("reply after answer = %q, want %q", got, msgAccepted)
	}

	if led.appends != 1 {
		t.Fatalf("AppendLead calls = %d, want exactly 1", led.appends)
	}
	if _, ok := svc.Sessions.Get(1); ok {
		t.Fatalf("session must be cleared after a successful append")
	}

	inner := led.inner.(*repo.LeadLedger)
	var lead domain.Lead
	if err := inner.DB.First(&lead).Error; err != nil {
		t.Fatalf("read back lead: %v", err)
	}
	if lead.Phone != "79991234567" {
		t.Errorf("Phone = %q, want %q", lead.Phone, "79991234567")
	}
	if lead.Status != domain.StatusNew {
		t.Errorf("Status = %q, want %q", lead.Status, domain.StatusNew)
	}
	if lead.Name != "John" {
		t.Errorf("Name = %q, want %q", lead.Name, "John")
	}
	if lead.Username != "john_doe" {
		t.Errorf("Username = %q, want %q", lead.Username, "john_doe")
	}
	if lead.UserID != 1 {
		t.Errorf("UserID = %d, want 1", lead.UserID)
	}
	// 12:04 UTC + 3h offset.
	if lead.SubmittedAt != "07.01.2026 15:04" {
		t.Errorf("SubmittedAt = %q, want %q", lead.SubmittedAt, "07.01.2026 15:04")
	}
}

// End-to-end scenario: a 3-digit phone is rejected without touching the
// ledger at all for that turn.
func TestHandle_ShortPhoneRejectedWithoutLedgerAccess(t *testing.T) {
	led := newTestLedger(t)
	svc := newTestService(t, led)

	send(svc, 1, "/start")
	send(svc, 1, "John")

	got := lastText(t, send(svc, 1, "123"))
	if got != msgPhoneRejected {
		t.Fatalf("reply = %q, want %q", got, msgPhoneRejected)
	}
	sess, _ := svc.Sessions.Get(1)
	if sess.State != session.StateAwaitingPhone {
		t.Fatalf("state = %q, want AwaitingPhone", sess.State)
	}
	if led.lookups != 0 || led.appends != 0 {
		t.Fatalf("ledger touched on invalid format: lookups=%d appends=%d", led.lookups, led.appends)
	}
}

// End-to-end scenario: a phone already present in the ledger is rejected at
// the phone step with no state change and no append.
func TestHandle_DuplicatePhoneRejected(t *testing.T) {
	led := newTestLedger(t)
	seed := domain.NewLead("other", 99, "Olga", "79991234567", "hi", time.Now().UTC())
	if err := led.inner.AppendLead(context.Background(), seed); err != nil {
		t.Fatalf("seed lead: %v", err)
	}

	svc := newTestService(t, led)
	send(svc, 1, "/start")
	send(svc, 1, "John")

	got := lastText(t, send(svc, 1, "79991234567"))
	if got != msgPhoneTaken {
		t.Fatalf("reply = %q, want %q", got, msgPhoneTaken)
	}
	sess, _ := svc.Sessions.Get(1)
	if sess.State != session.StateAwaitingPhone {
		t.Fatalf("state = %q, want AwaitingPhone", sess.State)
	}
	if led.appends != 0 {
		t.Fatalf("AppendLead called %d times for a duplicate, want 0", led.appends)
	}

	// A different number proceeds normally.
	got = lastText(t, send(svc, 1, "79991234568"))
	if got != msgAskQuestion {
		t.Fatalf("reply to fresh phone = %q, want %q", got, msgAskQuestion)
	}
}

// End-to-end scenario: the append fails, the user is told, the session stays
// in the question state, and resubmitting the same answer succeeds.
func TestHandle_AppendFailureRetainsSessionForRetry(t *testing.T) {
	led := newTestLedger(t)
	svc := newTestService(t, led)

	send(svc, 1, "/start")
	send(svc, 1, "John")
	send(svc, 1, "79991234567")

	led.failAppend = true
	got := lastText(t, send(svc, 1, "Freedom"))
	if got != msgLedgerFailure {
		t.Fatalf("reply on append failure = %q, want %q", got, msgLedgerFailure)
	}
	sess, ok := svc.Sessions.Get(1)
	if !ok || sess.State != session.StateAwaitingQuestion {
		t.Fatalf("session after failed append = %+v (ok=%v), want AwaitingQuestion", sess, ok)
	}

	led.failAppend = false
	got = lastText(t, send(svc, 1, "Freedom"))
	if got != msgAccepted {
		t.Fatalf("reply on retry = %q, want %q", got, msgAccepted)
	}
	if led.appends != 2 {
		t.Fatalf("AppendLead calls = %d, want 2 (one failed, one retried)", led.appends)
	}

	inner := led.inner.(*repo.LeadLedger)
	var n int64
	inner.DB.Model(&domain.Lead{}).Count(&n)
	if n != 1 {
		t.Fatalf("persisted rows = %d, want 1", n)
	}
}

func TestHandle_EmptyAnswerReprompts(t *testing.T) {
	led := newTestLedger(t)
	svc := newTestService(t, led)

	send(svc, 1, "/start")
	send(svc, 1, "John")
	send(svc, 1, "79991234567")

	got := lastText(t, send(svc, 1, "   "))
	if got != msgAnswerRejected {
		t.Fatalf("reply = %q, want %q", got, msgAnswerRejected)
	}
	if led.appends != 0 {
		t.Fatalf("AppendLead called for an empty answer")
	}
}

// Re-sending the start trigger mid-flow discards the partially entered
// name and phone.
func TestHandle_StartMidFlowResetsCollected(t *testing.T) {
	led := newTestLedger(t)
	svc := newTestService(t, led)

	send(svc, 1, "/start")
	send(svc, 1, "John")
	send(svc, 1, "79991234567")

	send(svc, 1, "/start")
	sess, ok := svc.Sessions.Get(1)
	if !ok {
		t.Fatalf("restart should leave an active session")
	}
	if sess.State != session.StateAwaitingName || sess.Name != "" || sess.Phone != "" {
		t.Fatalf("restart did not reset collected fields: %+v", sess)
	}

	// Completing the flow afterwards stores the new values.
	send(svc, 1, "Maria")
	send(svc, 1, "380501112233")
	send(svc, 1, "pricing")

	inner := led.inner.(*repo.LeadLedger)
	var lead domain.Lead
	if err := inner.DB.First(&lead).Error; err != nil {
		t.Fatalf("read back lead: %v", err)
	}
	if lead.Name != "Maria" || lead.Phone != "380501112233" {
		t.Fatalf("lead carries discarded data: %+v", lead)
	}
}

func TestHandle_LookupFailureKeepsPhoneState(t *testing.T) {
	svc := newTestService(t, &failingLookupLedger{})

	send(svc, 1, "/start")
	send(svc, 1, "John")

	got := lastText(t, send(svc, 1, "79991234567"))
	if got != msgLedgerFailure {
		t.Fatalf("reply = %q, want %q", got, msgLedgerFailure)
	}
	sess, _ := svc.Sessions.Get(1)
	if sess.State != session.StateAwaitingPhone {
		t.Fatalf("state = %q, want AwaitingPhone", sess.State)
	}
}

type failingLookupLedger struct{}

func (failingLookupLedger) IsPhoneRegistered(context.Context, string) (bool, error) {
	return false, errors.New("sheet unreachable")
}

func (failingLookupLedger) AppendLead(context.Context, domain.Lead) error {
	return errors.New("sheet unreachable")
}
