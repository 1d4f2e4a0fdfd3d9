package domain

import "context"

// NotificationService defines the interface for notification services
type NotificationService interface {
	// PaymentCompleted is sent when a payment reaches the paid status
	PaymentCompleted(ctx context.Context, payment *Payment) error

	// MigrationFailed is sent when schema migration aborts startup
	MigrationFailed(ctx context.Context, err error) error
}
