package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/csfahad/rbms-sub001/internal/model"
)

// Publisher sends booking events to RabbitMQ.  A connection is dialled per
// message; booking throughput is low enough that holding a channel open
// is not worth the reconnect handling.  Errors are logged and returned so
// the caller can ignore them without interrupting the request.
type Publisher struct {
	url         string
	dialTimeout time.Duration
	now         func() time.Time
	log         *log.Logger
}

// DefaultDialTimeout bounds the TCP connect and AMQP handshake of a
// publish.  Publishing runs on the request path after commit.
const DefaultDialTimeout = 2 * time.Second

func NewPublisher(url string) *Publisher {
	return &Publisher{url: url, dialTimeout: DefaultDialTimeout, now: time.Now, log: log.New("amqp")}
}

// dial connects with a deadline of dialTimeout, or less when ctx expires
// sooner.
func (p *Publisher) dial(ctx context.Context) (*amqp.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout := p.dialTimeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	return amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
}

func (p *Publisher) BookingConfirmed(ctx context.Context, b *model.Booking) error {
	return p.Publish(ctx, QueueBookingConfirmed, NewBookingEvent(QueueBookingConfirmed, b, p.now()))
}

func (p *Publisher) BookingCancelled(ctx context.Context, b *model.Booking) error {
	return p.Publish(ctx, QueueBookingCancelled, NewBookingEvent(QueueBookingCancelled, b, p.now()))
}

// Publish declares queue (durable, idempotent) and sends ev to it as a
// persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, queue string, ev BookingEvent) error {
	conn, err := p.dial(ctx)
	if err != nil {
		p.log.Warnf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warnf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		p.log.Warnf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         ev.Type,
		Timestamp:    p.now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue name
		false, // mandatory
		false, // immediate
		pub,
	); err != nil {
		p.log.Warnf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
