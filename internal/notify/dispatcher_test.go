package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/go-accounts-api/internal/domain"
	"github.com/go-accounts-api/internal/infrastructure/sns"
	"github.com/stretchr/testify/mock"
)

type mockOutbox struct{ mock.Mock }

func (m *mockOutbox) Put(ctx context.Context, n *domain.EmailNotification) error {
	return m.Called(ctx, n).Error(0)
}
func (m *mockOutbox) MarkSent(ctx context.Context, notificationID string) error {
	return m.Called(ctx, notificationID).Error(0)
}
func (m *mockOutbox) ListPending(ctx context.Context, limit int32) ([]domain.EmailNotification, error) {
	args := m.Called(ctx, limit)
	if ns, _ := args.Get(0).([]domain.EmailNotification); ns != nil {
		return ns, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

type mockEvents struct{ mock.Mock }

func (m *mockEvents) Publish(ctx context.Context, e sns.Event) error {
	return m.Called(ctx, e).Error(0)
}

func testUser() *domain.User {
	return &domain.User{UserID: "u1", Email: "alice@example.com"}
}

func TestEnqueueConfirmationEmail_PersistsThenDelivers(t *testing.T) {
	ob := &mockOutbox{}
	ml := &mockMailer{}
	ev := &mockEvents{}

	var recordID string
	ob.On("ListPending", mock.Anything, int32(100)).Return([]domain.EmailNotification{}, nil)
	ob.On("Put", mock.Anything, mock.MatchedBy(func(n *domain.EmailNotification) bool {
		recordID = n.NotificationID
		return n.Recipient == "alice@example.com" &&
			n.Status == domain.NotificationPending &&
			n.Subject == "Verify your account"
	})).Return(nil)
	ml.On("SendEmail", "alice@example.com", "Verify your account",
		"Enter this code to verify your account: 042137").Return(nil)
	ob.On("MarkSent", mock.Anything, mock.MatchedBy(func(id string) bool {
		return id == recordID
	})).Return(nil)
	ev.On("Publish", mock.Anything, mock.MatchedBy(func(e sns.Event) bool {
		return e.Type == sns.EventAccountRegistered && e.UserID == "u1"
	})).Return(nil)

	d := NewDispatcher(ob, ml, ev, 4)
	d.Start()
	d.EnqueueConfirmationEmail(context.Background(), testUser(), "042137")
	d.Stop() // drains the queue before returning

	ob.AssertExpectations(t)
	ml.AssertExpectations(t)
	ev.AssertExpectations(t)
}

func TestEnqueue_EmailFailure_LeavesRecordPending(t *testing.T) {
	ob := &mockOutbox{}
	ml := &mockMailer{}

	ob.On("ListPending", mock.Anything, mock.Anything).Return([]domain.EmailNotification{}, nil)
	ob.On("Put", mock.Anything, mock.Anything).Return(nil)
	ml.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	d := NewDispatcher(ob, ml, nil, 4)
	d.Start()
	d.EnqueueConfirmationEmail(context.Background(), testUser(), "042137")
	d.Stop()

	ob.AssertNotCalled(t, "MarkSent", mock.Anything, mock.Anything)
}

func TestPublishAccountConfirmed_EventOnly(t *testing.T) {
	ob := &mockOutbox{}
	ml := &mockMailer{}
	ev := &mockEvents{}

	ob.On("ListPending", mock.Anything, mock.Anything).Return([]domain.EmailNotification{}, nil)
	ev.On("Publish", mock.Anything, mock.MatchedBy(func(e sns.Event) bool {
		return e.Type == sns.EventAccountConfirmed && e.Email == "alice@example.com"
	})).Return(nil)

	d := NewDispatcher(ob, ml, ev, 4)
	d.Start()
	d.PublishAccountConfirmed(testUser())
	d.Stop()

	ev.AssertExpectations(t)
	ml.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything)
	ob.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestStart_SweepsPendingRecords(t *testing.T) {
	ob := &mockOutbox{}
	ml := &mockMailer{}

	pending := []domain.EmailNotification{{
		NotificationID: "n1",
		Recipient:      "alice@example.com",
		Subject:        "Verify your account",
		Body:           "Enter this code to verify your account: 731942",
		Status:         domain.NotificationPending,
	}}
	ob.On("ListPending", mock.Anything, int32(100)).Return(pending, nil)
	ml.On("SendEmail", "alice@example.com", "Verify your account",
		"Enter this code to verify your account: 731942").Return(nil)
	ob.On("MarkSent", mock.Anything, "n1").Return(nil)

	d := NewDispatcher(ob, ml, nil, 4)
	d.Start()
	d.Stop()

	ob.AssertExpectations(t)
	ml.AssertExpectations(t)
}

func TestEnqueue_QueueFull_DoesNotBlock(t *testing.T) {
	ob := &mockOutbox{}
	ob.On("Put", mock.Anything, mock.Anything).Return(nil)

	// Worker never started, queue capacity 1: the second enqueue must drop
	// rather than block the caller.
	d := NewDispatcher(ob, &mockMailer{}, nil, 1)
	d.EnqueueConfirmationEmail(context.Background(), testUser(), "042137")
	d.EnqueueConfirmationEmail(context.Background(), testUser(), "042137")

	ob.AssertNumberOfCalls(t, "Put", 2)
}
