package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Subjects
const (
	OrderCreated = "order.created"
	UserVerified = "user.verified"
	NotifyAdmin  = "notify.admin"

	ChatInboundText    = "chat.inbound.text"
	ChatInboundAction  = "chat.inbound.action"
	ChatInboundContact = "chat.inbound.contact"
	ChatInboundPhoto   = "chat.inbound.photo"
	ChatInboundAll     = "chat.inbound.*"
	ChatOutbound       = "chat.outbound"
)

// Event payloads
type OrderLineEvent struct {
	ProductID int64  `json:"product_id"`
	Title     string `json:"title"`
	Qty       int    `json:"qty"`
	Price     int64  `json:"price"`
}

type OrderCreatedEvent struct {
	OrderID   int64            `json:"order_id"`
	ChatID    int64            `json:"chat_id"`
	UserName  string           `json:"user_name"`
	Amount    int64            `json:"amount"`
	Currency  string           `json:"currency"`
	Address   string           `json:"address"`
	Note      string           `json:"note,omitempty"`
	Lines     []OrderLineEvent `json:"lines"`
	CreatedAt time.Time        `json:"created_at"`
}

type UserVerifiedEvent struct {
	ChatID     int64     `json:"chat_id"`
	Method     string    `json:"method"` // phone or email
	VerifiedAt time.Time `json:"verified_at"`
}

type AdminNoticeEvent struct {
	Text string `json:"text"`
}
