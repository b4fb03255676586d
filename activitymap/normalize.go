// Package activitymap flattens credentials activity events into records for
// audit logs and downstream consumers.
package activitymap

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-credentials"
	"go.uber.org/zap"
)

const (
	MetadataKeyActorType = "actor_type"
	MetadataKeyFromState = "from_state"
	MetadataKeyToState   = "to_state"
)

const (
	defaultChannel    = "credentials"
	defaultObjectType = "user"
	defaultActorID    = "system"
)

// Record is the flattened form of a credentials.ActivityEvent.
type Record struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes Normalize.
type Option func(*options)

type options struct {
	channel       string
	actorFallback string
	now           func() time.Time
}

// WithChannel sets the channel of produced records.
func WithChannel(channel string) Option {
	return func(o *options) {
		o.channel = strings.TrimSpace(channel)
	}
}

// WithActorFallback sets the actor id used when neither actor nor user is known.
func WithActorFallback(actorID string) Option {
	return func(o *options) {
		o.actorFallback = strings.TrimSpace(actorID)
	}
}

// WithClock sets the time used for events recorded without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Normalize converts event into a Record. States are reported by name.
func Normalize(event credentials.ActivityEvent, opts ...Option) Record {
	o := options{
		channel:       defaultChannel,
		actorFallback: defaultActorID,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = o.now()
	}

	return Record{
		ActorID:    firstNonEmpty(strings.TrimSpace(event.Actor.ID), strings.TrimSpace(event.UserID), o.actorFallback),
		Verb:       string(event.EventType),
		ObjectType: defaultObjectType,
		ObjectID:   strings.TrimSpace(event.UserID),
		Channel:    o.channel,
		Metadata:   metadata(event),
		OccurredAt: occurredAt.UTC(),
	}
}

// ZapSink is a credentials.ActivitySink writing one log entry per event.
type ZapSink struct {
	logger *zap.Logger
	opts   []Option
}

// NewZapSink returns a sink logging through logger at info level.
func NewZapSink(logger *zap.Logger, opts ...Option) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger, opts: opts}
}

var _ credentials.ActivitySink = (*ZapSink)(nil)

func (s *ZapSink) Record(_ context.Context, event credentials.ActivityEvent) error {
	r := Normalize(event, s.opts...)
	s.logger.Info("activity",
		zap.String("verb", r.Verb),
		zap.String("actor_id", r.ActorID),
		zap.String("object_type", r.ObjectType),
		zap.String("object_id", r.ObjectID),
		zap.String("channel", r.Channel),
		zap.Any("metadata", r.Metadata),
		zap.Time("occurred_at", r.OccurredAt),
	)
	return nil
}

func metadata(event credentials.ActivityEvent) map[string]any {
	out := map[string]any{}
	for k, v := range event.Metadata {
		out[k] = v
	}

	if actorType := strings.TrimSpace(event.Actor.Type); actorType != "" {
		if _, exists := out[MetadataKeyActorType]; !exists {
			out[MetadataKeyActorType] = actorType
		}
	}

	if event.FromState.Valid() {
		out[MetadataKeyFromState] = event.FromState.String()
	}

	if event.ToState.Valid() {
		out[MetadataKeyToState] = event.ToState.String()
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
