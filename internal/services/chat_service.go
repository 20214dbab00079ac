// Package services – ChatService
//
// ChatService runs one AI exchange for a friend's chat following the calling
// protocol: it claims the chat through ExchangeTracker, records the user
// message, calls the provider outside any store lock, and applies the reply
// and its token usage exactly once, and only if the exchange is still
// current. Abandoned exchanges are discarded when they resolve.
//
// Observability: Send is OpenTelemetry-instrumented and counted in
// companion_ai_exchanges_total by outcome.
package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-companion-store/internal/ai"
	"github.com/tbourn/go-companion-store/internal/domain"
)

// Exchange outcomes reported to metrics.
const (
	outcomeApplied = "applied"
	outcomeFailed  = "failed"
	outcomeStale   = "stale"
)

// ChatService coordinates a friend's chat with the AI provider.
type ChatService struct {
	Entities   *EntityStore
	Accounting *SessionAccounting
	Config     *ConfigStore
	Provider   ai.Provider
	Tracker    *ExchangeTracker

	// HistoryLimit caps how many previous messages are sent as context
	// (0 = all).
	HistoryLimit int
	// MaxMessageRunes rejects longer user messages (0 = unlimited).
	MaxMessageRunes int
}

// NewChatService wires a ChatService with a fresh ExchangeTracker.
func NewChatService(es *EntityStore, acc *SessionAccounting, cs *ConfigStore, p ai.Provider) *ChatService {
	return &ChatService{
		Entities:     es,
		Accounting:   acc,
		Config:       cs,
		Provider:     p,
		Tracker:      NewExchangeTracker(),
		HistoryLimit: 40,
	}
}

// SendResult is the outcome of an applied exchange.
type SendResult struct {
	Reply domain.Message    `json:"reply"`
	Stats domain.TokenStats `json:"tokenStats"`
}

// Send appends text as a user message to the chat of friendID and asks the
// provider for a reply. On success the reply is appended and its usage is
// applied to the chat's TokenStats.
//
// Errors: ErrEmptyMessage, ErrNotFound (unknown friend), ErrExchangeInFlight,
// ErrProviderFailed (the user message is kept), ErrStaleExchange (the
// exchange was abandoned while the provider was working).
func (s *ChatService) Send(ctx context.Context, friendID, text string) (*SendResult, error) {
	ctx, span := otel.Tracer("services/ChatService").Start(ctx, "Send",
		trace.WithAttributes(attribute.String("friend.id", friendID)),
	)
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(text) > s.MaxMessageRunes {
		return nil, fmt.Errorf("message longer than %d characters: %w", s.MaxMessageRunes, ErrInvalidInput)
	}

	token, err := s.Tracker.Begin(friendID)
	if err != nil {
		return nil, err
	}
	finished := false
	defer func() {
		if !finished {
			s.Tracker.Finish(friendID, token)
		}
	}()

	friend, err := s.Entities.GetFriend(ctx, friendID)
	if err != nil {
		return nil, err
	}
	chat, err := s.Entities.AppendMessage(ctx, friendID, domain.Message{Type: domain.MessageUser, Text: text})
	if err != nil {
		return nil, err
	}
	cfg, err := s.Config.GetCurrentConfig(ctx)
	if err != nil {
		return nil, err
	}

	req := ai.Request{Config: cfg, Messages: s.buildPrompt(friend, chat.Messages)}
	res := s.Provider.Complete(ctx, req)

	finished = true
	if !s.Tracker.Finish(friendID, token) {
		aiExchanges.WithLabelValues(outcomeStale).Inc()
		log.Warn().Str("friend_id", friendID).Uint64("token", token).Msg("discarding response of abandoned exchange")
		return nil, ErrStaleExchange
	}
	if !res.Success {
		aiExchanges.WithLabelValues(outcomeFailed).Inc()
		span.SetStatus(codes.Error, res.Error)
		return nil, fmt.Errorf("%w: %s", ErrProviderFailed, res.Error)
	}

	reply := domain.Message{Type: domain.MessageAI, Text: res.Text, Timestamp: s.Entities.now()}
	pb := PromptBreakdown{
		Persona:     approxTokens(friend.Persona),
		ChatHistory: approxTokens(historyText(chat.Messages)),
	}
	var usage domain.Usage
	if res.Tokens != nil {
		usage = *res.Tokens
	}
	updated, err := s.Accounting.ApplyExchange(ctx, friendID, reply, pb, usage)
	if err != nil {
		aiExchanges.WithLabelValues(outcomeFailed).Inc()
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	aiExchanges.WithLabelValues(outcomeApplied).Inc()
	span.SetAttributes(attribute.Int64("tokens.total", usage.Total))

	return &SendResult{Reply: reply, Stats: updated.TokenStats}, nil
}

// Abandon discards the pending exchange of friendID; its eventual result
// will not be applied. It reports whether an exchange was pending.
func (s *ChatService) Abandon(friendID string) bool {
	return s.Tracker.Abandon(friendID)
}

// buildPrompt turns the friend persona and the most recent history into the
// provider message list.
func (s *ChatService) buildPrompt(f *domain.Friend, history []domain.Message) []ai.Message {
	if s.HistoryLimit > 0 && len(history) > s.HistoryLimit {
		history = history[len(history)-s.HistoryLimit:]
	}
	out := make([]ai.Message, 0, len(history)+1)
	if sys := systemPrompt(f); sys != "" {
		out = append(out, ai.Message{Role: ai.RoleSystem, Content: sys})
	}
	for _, m := range history {
		role := ai.RoleUser
		if m.Type == domain.MessageAI {
			role = ai.RoleAssistant
		}
		out = append(out, ai.Message{Role: role, Content: m.Text})
	}
	return out
}

func systemPrompt(f *domain.Friend) string {
	var b strings.Builder
	name := f.Realname
	if name == "" {
		name = f.Nickname
	}
	if name != "" {
		fmt.Fprintf(&b, "You are %s.", name)
	}
	if p := strings.TrimSpace(f.Persona); p != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p)
	}
	return b.String()
}

func historyText(msgs []domain.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(m.Text)
	}
	return b.String()
}

// approxTokens estimates token count at four characters per token.
func approxTokens(s string) int64 {
	n := utf8.RuneCountInString(s)
	return int64((n + 3) / 4)
}
