package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/cryverse/telegram-30leads-bot-new/internal/services"
)

// Conversation is the engine surface the transport needs: one inbound
// message in, one reply out. Satisfied by services.ConversationService.
type Conversation interface {
	Handle(ctx context.Context, in services.Inbound) services.Reply
}

// Handler consumes the long-poll update stream and dispatches each text
// message to the conversation engine. Every update runs in its own
// goroutine; sequencing for a single chat is enforced by the engine's
// per-chat turn lock, so a chat waiting on a ledger call never delays
// other chats.
type Handler struct {
	bot         *tgbotapi.BotAPI
	conv        Conversation
	limiter     *FloodLimiter
	pollTimeout time.Duration
}

// NewHandler wires the transport adapter. limiter may not be nil.
func NewHandler(bot *tgbotapi.BotAPI, conv Conversation, limiter *FloodLimiter, pollTimeout time.Duration) *Handler {
	return &Handler{
		bot:         bot,
		conv:        conv,
		limiter:     limiter,
		pollTimeout: pollTimeout,
	}
}

// Run blocks, polling for updates until ctx is cancelled.
func (h *Handler) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(h.pollTimeout.Seconds())
	updates := h.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			h.bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			msg := update.Message
			if msg == nil {
				continue
			}
			if !h.limiter.Allow(msg.Chat.ID) {
				log.Debug().Int64("chat_id", msg.Chat.ID).Msg("message dropped by flood limiter")
				continue
			}
			go h.process(ctx, msg)
		}
	}
}

// process runs one conversation turn and delivers the replies.
func (h *Handler) process(ctx context.Context, msg *tgbotapi.Message) {
	in := services.Inbound{
		ChatID:   msg.Chat.ID,
		Username: username(msg.From),
		Text:     msg.Text,
	}
	reply := h.conv.Handle(ctx, in)
	for _, text := range reply.Texts {
		h.send(msg.Chat.ID, text)
	}
}

// send is fire-and-forget: delivery failures are logged, never retried, and
// never affect conversation state.
func (h *Handler) send(chatID int64, text string) {
	if _, err := h.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("send reply failed")
	}
}

func username(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return u.UserName
}
