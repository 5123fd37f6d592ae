package domain

import "time"

// Email notification delivery states.
const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
)

// EmailNotification is an outbox record for an outbound email. A record is
// written as pending before the dispatch worker picks it up and is marked
// sent only after delivery succeeds, so delivery is at-least-once.
type EmailNotification struct {
	NotificationID string    `json:"id" dynamodbav:"notification_id"`
	Recipient      string    `json:"recipient" dynamodbav:"recipient"`
	Subject        string    `json:"subject" dynamodbav:"subject"`
	Body           string    `json:"body" dynamodbav:"body"`
	Status         string    `json:"status" dynamodbav:"status"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`
}
