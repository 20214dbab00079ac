// Package services – SessionAccounting
//
// SessionAccounting keeps the per-chat TokenStats as running totals driven by
// completed AI exchanges. Accumulation is additive and deliberately not
// idempotent: applying the same usage twice counts it twice. Exactly-once
// application is the caller's job (see ExchangeTracker).
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-companion-store/internal/domain"
)

// SessionAccounting accumulates token usage into chats owned by Entities.
type SessionAccounting struct {
	Entities *EntityStore
}

// NewSessionAccounting constructs a SessionAccounting over es.
func NewSessionAccounting(es *EntityStore) *SessionAccounting {
	return &SessionAccounting{Entities: es}
}

// ApplyUsage adds usage to the running input, output and total counters of
// the chat of friendID and stamps lastUpdate. A missing chat starts from
// zero. Prompt-composition fields are left untouched. Negative amounts are
// rejected so totals never decrease.
func (a *SessionAccounting) ApplyUsage(ctx context.Context, friendID string, usage domain.Usage) (*domain.TokenStats, error) {
	ctx, span := otel.Tracer("services/SessionAccounting").Start(ctx, "ApplyUsage",
		trace.WithAttributes(attribute.String("friend.id", friendID)),
	)
	defer span.End()

	if usage.Input < 0 || usage.Output < 0 || usage.Total < 0 {
		return nil, fmt.Errorf("token usage must be non-negative: %w", ErrInvalidInput)
	}
	chat, err := a.Entities.mutateChat(ctx, friendID, func(c *domain.Chat) error {
		addUsage(&c.TokenStats, usage, a.Entities.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	countUsage(usage)
	stats := chat.TokenStats
	return &stats, nil
}

// PromptBreakdown is the composition of the prompt sent for one exchange.
type PromptBreakdown struct {
	WorldBook   int64
	Persona     int64
	ChatHistory int64
}

// ApplyExchange records the outcome of one completed AI exchange: it appends
// reply, stores the prompt breakdown and adds usage, all in a single write.
// Either everything lands or the chat is left as it was.
func (a *SessionAccounting) ApplyExchange(ctx context.Context, friendID string, reply domain.Message, pb PromptBreakdown, usage domain.Usage) (*domain.Chat, error) {
	ctx, span := otel.Tracer("services/SessionAccounting").Start(ctx, "ApplyExchange",
		trace.WithAttributes(attribute.String("friend.id", friendID)),
	)
	defer span.End()

	if usage.Input < 0 || usage.Output < 0 || usage.Total < 0 {
		return nil, fmt.Errorf("token usage must be non-negative: %w", ErrInvalidInput)
	}
	if pb.WorldBook < 0 || pb.Persona < 0 || pb.ChatHistory < 0 {
		return nil, fmt.Errorf("prompt breakdown must be non-negative: %w", ErrInvalidInput)
	}
	if reply.Type != domain.MessageAI {
		return nil, fmt.Errorf("message type %q: %w", reply.Type, ErrInvalidFormat)
	}
	now := a.Entities.now()
	if reply.Timestamp.IsZero() {
		reply.Timestamp = now
	}
	chat, err := a.Entities.mutateChat(ctx, friendID, func(c *domain.Chat) error {
		appendTo(c, reply)
		c.TokenStats.WorldBook = pb.WorldBook
		c.TokenStats.Persona = pb.Persona
		c.TokenStats.ChatHistory = pb.ChatHistory
		addUsage(&c.TokenStats, usage, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	countUsage(usage)
	return chat, nil
}

func addUsage(ts *domain.TokenStats, usage domain.Usage, now time.Time) {
	ts.Input += usage.Input
	ts.Output += usage.Output
	ts.Total += usage.Total
	ts.LastUpdate = &now
}

func countUsage(usage domain.Usage) {
	tokensApplied.WithLabelValues("input").Add(float64(usage.Input))
	tokensApplied.WithLabelValues("output").Add(float64(usage.Output))
	tokensApplied.WithLabelValues("total").Add(float64(usage.Total))
}

// ResetStats zeroes every counter of the chat of friendID. It is only called
// on explicit user action.
func (a *SessionAccounting) ResetStats(ctx context.Context, friendID string) (*domain.TokenStats, error) {
	ctx, span := otel.Tracer("services/SessionAccounting").Start(ctx, "ResetStats",
		trace.WithAttributes(attribute.String("friend.id", friendID)),
	)
	defer span.End()

	chat, err := a.Entities.mutateChat(ctx, friendID, func(c *domain.Chat) error {
		now := a.Entities.now()
		c.TokenStats = domain.TokenStats{LastUpdate: &now}
		return nil
	})
	if err != nil {
		return nil, err
	}
	stats := chat.TokenStats
	return &stats, nil
}

// GetStats returns the statistics of the chat of friendID; a friend without a
// chat has zero statistics.
func (a *SessionAccounting) GetStats(ctx context.Context, friendID string) (*domain.TokenStats, error) {
	chat, err := a.Entities.GetChat(ctx, friendID)
	if errors.Is(err, ErrNotFound) {
		if _, ferr := a.Entities.GetFriend(ctx, friendID); ferr != nil {
			return nil, ferr
		}
		return &domain.TokenStats{}, nil
	}
	if err != nil {
		return nil, err
	}
	stats := chat.TokenStats
	return &stats, nil
}
