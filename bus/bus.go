// Package bus provides run-lifecycle event delivery to host surfaces.
//
// The EventBus interface carries completion notifications (one message per
// finished run) so panels, status bars or remote listeners can react without
// polling the result store. Delivery is fire-and-forget: a slow or absent
// subscriber never blocks the execution path. Two backends ship: an
// in-memory bus for single-process hosts and a NATS bus for out-of-process
// listeners.
package bus

import "errors"

// Common errors.
var (
	ErrClosed         = errors.New("bus closed")
	ErrInvalidSubject = errors.New("invalid subject")
)

// Subjects published by the orchestration core.
const (
	// SubjectRunCompleted carries one JSON-encoded run summary per
	// finished execution.
	SubjectRunCompleted = "probekit.run.completed"

	// SubjectRegistryReloaded signals that the resolved tool set changed.
	SubjectRegistryReloaded = "probekit.registry.reloaded"
)

// Message represents a message received from the bus.
type Message struct {
	// Subject the message was published to.
	Subject string

	// Data is the message payload.
	Data []byte
}

// EventBus provides pub/sub delivery of run-lifecycle events.
type EventBus interface {
	// Publish sends a message to all subscribers of a subject.
	Publish(subject string, data []byte) error

	// Subscribe creates a subscription to a subject.
	// All subscribers receive all messages.
	Subscribe(subject string) (Subscription, error)

	// Close shuts down the bus connection.
	Close() error
}

// Subscription represents an active subscription.
type Subscription interface {
	// Messages returns the channel for incoming messages.
	// Channel is closed when subscription ends.
	Messages() <-chan *Message

	// Unsubscribe cancels the subscription.
	Unsubscribe() error
}

// Config holds common bus configuration.
type Config struct {
	// BufferSize for subscription channels.
	// Default: 256
	BufferSize int
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize: 256,
	}
}

// ValidateSubject checks if a subject is valid.
func ValidateSubject(subject string) error {
	if subject == "" {
		return ErrInvalidSubject
	}
	return nil
}
