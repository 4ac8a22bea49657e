// Package services – ConversationService
//
// This file implements the finite-state machine at the heart of the bot.
// Given the chat's current session and one inbound message, it decides which
// validator to run, the next state, the reply to send, and whether to append
// a lead to the ledger. Each state validates exactly one field and performs
// at most one side-effecting check (the phone dedup lookup) before
// advancing, which keeps every retry loop local: a rejected input re-prompts
// without changing state.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cryverse/telegram-30leads-bot-new/internal/domain"
	"github.com/cryverse/telegram-30leads-bot-new/internal/session"
	"github.com/cryverse/telegram-30leads-bot-new/internal/validate"
)

// User-facing reply texts. Validation and ledger failures are always
// expressed through these; internal error text never reaches a user.
const (
	msgGreeting       = "Hi! 👋 I can help you leave a request."
	msgAskName        = "First, what is your name?"
	msgNameRejected   = "Please use letters and spaces only. What is your name?"
	msgPhoneRejected  = "That doesn't look like a phone number. Send 10 to 15 digits, please."
	msgPhoneTaken     = "This phone number is already registered. Please try another one."
	msgAskQuestion    = "Great! One last thing: do you have a question or a comment?"
	msgAnswerRejected = "Please write something."
	msgLedgerFailure  = "Something went wrong on our side. Please try again in a moment."
	msgAccepted       = "Thank you! Your request has been accepted ✅"
	msgUseStart       = "To leave a request, send /start"
)

// Inbound is one user message as seen by the engine, already detached from
// the transport.
type Inbound struct {
	ChatID   int64
	Username string
	Text     string
}

// Reply is what the engine wants sent back. Texts are delivered in order as
// separate messages (the greeting is followed by the name prompt).
type Reply struct {
	Texts []string
}

func reply(texts ...string) Reply { return Reply{Texts: texts} }

// ConversationService drives the intake flow. It owns no goroutines and has
// no internal parallelism; per-chat sequencing comes from the session
// store's turn lock, which is held for the duration of a single turn only,
// so a slow ledger call never blocks other chats.
type ConversationService struct {
	// Sessions holds one conversation state per chat.
	Sessions *session.Store

	// Ledger is the append-only lead store used for the dedup check and the
	// final append.
	Ledger domain.Ledger

	// TimeOffset is added to the UTC process clock when stamping
	// submitted_at on a lead.
	TimeOffset time.Duration

	// TitleLocale selects the casing rules applied to accepted names.
	// Defaults to English when unset.
	TitleLocale language.Tag

	// Clock is a test seam; nil means time.Now.
	Clock func() time.Time
}

// Handle processes one inbound message and returns the reply to send.
//
// The start trigger works from any state and resets the collected fields,
// discarding a partially entered name or phone. Any other message is routed
// to the current state's handler; without a session it yields an instruction
// to start.
func (s *ConversationService) Handle(ctx context.Context, in Inbound) Reply {
	release := s.Sessions.Acquire(in.ChatID)
	defer release()

	text := strings.TrimSpace(in.Text)

	if isStartTrigger(text) {
		s.Sessions.Put(in.ChatID, session.Session{State: session.StateAwaitingName})
		sessionsStarted.Inc()
		funnelReached.WithLabelValues(string(session.StateAwaitingName)).Inc()
		log.Info().Int64("chat_id", in.ChatID).Msg("session started")
		return reply(msgGreeting, msgAskName)
	}

	sess, ok := s.Sessions.Get(in.ChatID)
	if !ok {
		return reply(msgUseStart)
	}

	switch sess.State {
	case session.StateAwaitingName:
		return s.handleName(in, sess, text)
	case session.StateAwaitingPhone:
		return s.handlePhone(ctx, in, sess, text)
	case session.StateAwaitingQuestion:
		return s.handleAnswer(ctx, in, sess, text)
	default:
		// Unknown state means corrupted memory; drop the session rather
		// than loop forever.
		s.Sessions.Delete(in.ChatID)
		return reply(msgUseStart)
	}
}

func (s *ConversationService) handleName(in Inbound, sess session.Session, text string) Reply {
	name, ok := validate.Name(text)
	if !ok {
		validationRejects.WithLabelValues("name").Inc()
		return reply(msgNameRejected)
	}

	sess.Name = cases.Title(s.titleLocale()).String(name)
	sess.State = session.StateAwaitingPhone
	s.Sessions.Put(in.ChatID, sess)
	funnelReached.WithLabelValues(string(session.StateAwaitingPhone)).Inc()
	return reply(fmt.Sprintf("Nice to meet you, %s! Now send your phone number.", sess.Name))
}

func (s *ConversationService) handlePhone(ctx context.Context, in Inbound, sess session.Session, text string) Reply {
	phone, ok := validate.Phone(text)
	if !ok {
		validationRejects.WithLabelValues("phone").Inc()
		return reply(msgPhoneRejected)
	}

	if err := s.checkPhone(ctx, phone); err != nil {
		switch {
		case errors.Is(err, ErrPhoneRegistered):
			duplicatePhones.Inc()
			return reply(msgPhoneTaken)
		default:
			ledgerErrors.Inc()
			log.Error().Err(err).Int64("chat_id", in.ChatID).Msg("phone dedup lookup failed")
			return reply(msgLedgerFailure)
		}
	}

	sess.Phone = phone
	sess.State = session.StateAwaitingQuestion
	s.Sessions.Put(in.ChatID, sess)
	funnelReached.WithLabelValues(string(session.StateAwaitingQuestion)).Inc()
	return reply(msgAskQuestion)
}

func (s *ConversationService) handleAnswer(ctx context.Context, in Inbound, sess session.Session, text string) Reply {
	answer, ok := validate.Answer(text)
	if !ok {
		validationRejects.WithLabelValues("answer").Inc()
		return reply(msgAnswerRejected)
	}

	lead := domain.NewLead(in.Username, in.ChatID, sess.Name, sess.Phone, answer, s.submittedAt())
	if err := s.Ledger.AppendLead(ctx, lead); err != nil {
		// Session state stays AwaitingQuestion so the user may resubmit the
		// same answer once the ledger recovers.
		ledgerErrors.Inc()
		log.Error().Err(err).Int64("chat_id", in.ChatID).Msg("lead append failed")
		return reply(msgLedgerFailure)
	}

	s.Sessions.Delete(in.ChatID)
	leadsSaved.Inc()
	log.Info().
		Int64("chat_id", in.ChatID).
		Str("name", lead.Name).
		Str("phone", lead.Phone).
		Msg("lead saved")
	return reply(msgAccepted)
}

// checkPhone consults the ledger's phone column. It returns
// ErrPhoneRegistered for duplicates and wraps lookup failures in
// ErrLedgerUnavailable. The check and the eventual append are not atomic
// together; see domain.Ledger.
func (s *ConversationService) checkPhone(ctx context.Context, phone string) error {
	registered, err := s.Ledger.IsPhoneRegistered(ctx, phone)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	if registered {
		return ErrPhoneRegistered
	}
	return nil
}

func (s *ConversationService) submittedAt() time.Time {
	now := time.Now
	if s.Clock != nil {
		now = s.Clock
	}
	return now().UTC().Add(s.TimeOffset)
}

func (s *ConversationService) titleLocale() language.Tag {
	if s.TitleLocale == language.Und {
		return language.English
	}
	return s.TitleLocale
}

// isStartTrigger recognizes the start command, including the
// "/start@BotName" form Telegram uses in group mentions.
func isStartTrigger(text string) bool {
	cmd := text
	if i := strings.IndexAny(cmd, " \t"); i >= 0 {
		cmd = cmd[:i]
	}
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return cmd == "/start"
}
