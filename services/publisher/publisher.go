package publisher

// Publisher represents a service for publishing search results
type Publisher interface {
	// Publish publishes a message to a stream under key
	Publish(key string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}

// NopPublisher drops every message. It is used when no stream is configured.
type NopPublisher struct{}

var _ Publisher = NopPublisher{}

func (NopPublisher) Publish(string, []byte) error { return nil }

func (NopPublisher) TrimStreams() error { return nil }

func (NopPublisher) Close() error { return nil }
