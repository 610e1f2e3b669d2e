package mq

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/varunSalat/Blog-backed/config"
)

const natsBufferSize = 64

// NATSClient publishes blog events on core NATS subjects. Core NATS has no
// redelivery, so a handler error only drops the message.
type NATSClient struct {
	conn *nats.Conn
}

func NewNATSClient(cfg config.NATSConfig) (*NATSClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("nats url is required")
	}

	conn, err := nats.Connect(cfg.URL, nats.Name("blogd"))
	if err != nil {
		return nil, err
	}
	return &NATSClient{conn: conn}, nil
}

func (n *NATSClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("nats channel is required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	messageID := uuid.NewString()
	msg := nats.NewMsg(channel)
	msg.Data = data
	for key, value := range attrs {
		msg.Header.Set(key, value)
	}
	msg.Header.Set(nats.MsgIdHdr, messageID)

	if err := n.conn.PublishMsg(msg); err != nil {
		return "", err
	}
	return messageID, nil
}

func (n *NATSClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("nats channel is required")
	}

	msgs := make(chan *nats.Msg, natsBufferSize)
	sub, err := n.conn.ChanSubscribe(channel, msgs)
	if err != nil {
		return err
	}
	defer func() {
		_ = sub.Unsubscribe()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-msgs:
			message := Message{
				ID:         msg.Header.Get(nats.MsgIdHdr),
				Data:       msg.Data,
				Attributes: headerToAttributes(msg.Header),
			}
			_ = handler(ctx, message)
		}
	}
}

func (n *NATSClient) Close() error {
	return n.conn.Drain()
}

func headerToAttributes(header nats.Header) map[string]string {
	if len(header) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(header))
	for key, values := range header {
		if key == nats.MsgIdHdr || len(values) == 0 {
			continue
		}
		attrs[key] = values[0]
	}
	return attrs
}
