package mq

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/varunSalat/Blog-backed/types"
)

const (
	attrEventType   = "event_type"
	attrContentType = "content_type"
	// events sharing an ordering key are delivered in publish order where
	// the backend supports it
	attrOrderingKey = "ordering_key"

	defaultContentType = "application/octet-stream"
)

func contentType(attrs map[string]string) string {
	if ct := attrs[attrContentType]; ct != "" {
		return ct
	}
	return defaultContentType
}

// EventPublisher emits post lifecycle events on a single channel.
type EventPublisher struct {
	mq      *MQ
	channel string
}

func NewEventPublisher(m *MQ, channel string) *EventPublisher {
	return &EventPublisher{mq: m, channel: channel}
}

// PublishPostEvent stamps the event with an id and timestamp when missing
// and publishes it as JSON.
func (p *EventPublisher) PublishPostEvent(ctx context.Context, event types.PostEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.mq.Publish(ctx, p.channel, data, map[string]string{
		attrEventType:   event.Type,
		attrContentType: "application/json",
		attrOrderingKey: "post-" + strconv.Itoa(event.PostID),
	})
	return err
}

// DecodePostEvent parses a message produced by PublishPostEvent.
func DecodePostEvent(msg Message) (types.PostEvent, error) {
	var event types.PostEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return types.PostEvent{}, err
	}
	if event.Type == "" {
		event.Type = msg.Attributes[attrEventType]
	}
	if event.Type == "" {
		return types.PostEvent{}, errors.New("event type is missing")
	}
	return event, nil
}
