package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-accounts-api/internal/domain"
	"github.com/go-accounts-api/internal/infrastructure/sns"
	"github.com/go-accounts-api/internal/pkg/id"
)

const deliveryTimeout = 10 * time.Second

type outbox interface {
	Put(ctx context.Context, n *domain.EmailNotification) error
	MarkSent(ctx context.Context, notificationID string) error
	ListPending(ctx context.Context, limit int32) ([]domain.EmailNotification, error)
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

// message is one unit of work for the dispatch worker. Email fields may be
// empty for event-only messages.
type message struct {
	notificationID string
	recipient      string
	subject        string
	body           string
	event          *sns.Event
}

// Dispatcher is the fire-and-forget notification sink. Enqueue persists a
// pending outbox record, then hands the message to a single worker goroutine
// over a buffered channel without blocking the caller. Delivery failures are
// logged and the record stays pending, so the startup sweep redelivers it —
// at-least-once, never blocking or failing the originating request.
type Dispatcher struct {
	outbox outbox
	mailer mailer
	events sns.EventPublisher // may be nil
	queue  chan message
	done   chan struct{}
}

func NewDispatcher(outbox outbox, mailer mailer, events sns.EventPublisher, queueLen int) *Dispatcher {
	return &Dispatcher{
		outbox: outbox,
		mailer: mailer,
		events: events,
		queue:  make(chan message, queueLen),
		done:   make(chan struct{}),
	}
}

// Start launches the worker. It first sweeps the outbox for records left
// pending by a previous run, then drains the queue until Stop is called.
func (d *Dispatcher) Start() {
	go func() {
		defer close(d.done)
		d.sweepPending()
		for msg := range d.queue {
			d.deliver(msg)
		}
	}()
}

// Stop closes the queue and waits for the worker to drain it.
func (d *Dispatcher) Stop() {
	close(d.queue)
	<-d.done
}

// EnqueueConfirmationEmail queues the account confirmation PIN email for u
// and an account.registered event. The PIN appears only in the email body.
func (d *Dispatcher) EnqueueConfirmationEmail(ctx context.Context, u *domain.User, pin string) {
	n := &domain.EmailNotification{
		NotificationID: id.New(),
		Recipient:      u.Email,
		Subject:        "Verify your account",
		Body:           fmt.Sprintf("Enter this code to verify your account: %s", pin),
		Status:         domain.NotificationPending,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	if err := d.outbox.Put(ctx, n); err != nil {
		slog.Warn("could not persist confirmation email", "user_id", u.UserID, "err", err)
	}
	d.enqueue(message{
		notificationID: n.NotificationID,
		recipient:      n.Recipient,
		subject:        n.Subject,
		body:           n.Body,
		event: &sns.Event{
			Type:       sns.EventAccountRegistered,
			UserID:     u.UserID,
			Email:      u.Email,
			OccurredAt: time.Now().UTC(),
		},
	})
}

// PublishAccountConfirmed queues an event-only message for a confirmed account.
func (d *Dispatcher) PublishAccountConfirmed(u *domain.User) {
	d.enqueue(message{
		event: &sns.Event{
			Type:       sns.EventAccountConfirmed,
			UserID:     u.UserID,
			Email:      u.Email,
			OccurredAt: time.Now().UTC(),
		},
	})
}

func (d *Dispatcher) enqueue(msg message) {
	select {
	case d.queue <- msg:
	default:
		// Queue full. The outbox record stays pending and will be swept on
		// the next start; the request must not block.
		slog.Warn("notification queue full, leaving record pending",
			"notification_id", msg.notificationID)
	}
}

func (d *Dispatcher) deliver(msg message) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if msg.recipient != "" {
		if err := d.mailer.SendEmail(msg.recipient, msg.subject, msg.body); err != nil {
			slog.Warn("email delivery failed", "notification_id", msg.notificationID, "err", err)
			return
		}
		if err := d.outbox.MarkSent(ctx, msg.notificationID); err != nil {
			slog.Warn("could not mark notification sent", "notification_id", msg.notificationID, "err", err)
		}
	}

	if d.events != nil && msg.event != nil {
		if err := d.events.Publish(ctx, *msg.event); err != nil {
			slog.Warn("event publish failed", "type", msg.event.Type, "err", err)
		}
	}
}

// sweepPending re-delivers outbox records a previous run never sent.
func (d *Dispatcher) sweepPending() {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	pending, err := d.outbox.ListPending(ctx, 100)
	if err != nil {
		slog.Warn("could not sweep pending notifications", "err", err)
		return
	}
	for i := range pending {
		n := &pending[i]
		d.deliver(message{
			notificationID: n.NotificationID,
			recipient:      n.Recipient,
			subject:        n.Subject,
			body:           n.Body,
		})
	}
}
