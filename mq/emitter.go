// Package mq publishes plan change notices on a Redis channel.
package mq

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"wayfarer/metrics"
	"wayfarer/models"
)

// Channel carries one JSON models.PlanEvent per message.
const Channel = "plan-events"

type Emitter struct {
	conn    redis.UniversalClient
	channel string
	log     zerolog.Logger
}

func NewEmitter(conn redis.UniversalClient, log zerolog.Logger) *Emitter {
	return &Emitter{conn: conn, channel: Channel, log: log}
}

// Emit publishes evt. Delivery is best effort: failures are logged, never
// returned, since the change itself has already committed.
func (e *Emitter) Emit(ctx context.Context, evt models.PlanEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		e.log.Warn().Err(err).Int("planId", evt.PlanID).Msg("marshal plan event")
		return
	}
	if err := e.conn.Publish(ctx, e.channel, data).Err(); err != nil {
		e.log.Warn().Err(err).Str("type", string(evt.Type)).Int("planId", evt.PlanID).Msg("publish plan event")
		return
	}
	e.log.Debug().Str("type", string(evt.Type)).Int("planId", evt.PlanID).Msg("plan event published")
}

// Listen delivers events published on the channel to fn until ctx ends.
// Messages that do not decode are skipped. Every instance listens, so each
// sees the changes made through all of them.
func (e *Emitter) Listen(ctx context.Context, fn func(models.PlanEvent)) error {
	sub := e.conn.Subscribe(ctx, e.channel)
	defer sub.Close()

	// the subscription is live once Receive returns its confirmation
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var evt models.PlanEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				e.log.Warn().Err(err).Msg("skipping malformed plan event")
				continue
			}
			fn(evt)
		}
	}
}

// Record counts and logs each received event. It is the listener the
// server runs.
func Record(log zerolog.Logger) func(models.PlanEvent) {
	return func(evt models.PlanEvent) {
		metrics.PlanEvents.WithLabelValues(string(evt.Type)).Inc()
		log.Debug().Str("type", string(evt.Type)).Int("planId", evt.PlanID).Time("at", evt.At).Msg("plan event received")
	}
}
