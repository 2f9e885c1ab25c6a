package core

const (
	defaultCommandBuffer = 16
	defaultEventBuffer   = 64
)

// Client is one live connection as seen by the core layer.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event
}

// NewClient constructs a client with initialized channels. A non-positive
// eventBuffer selects the default size.
func NewClient(id string, eventBuffer int) *Client {
	if eventBuffer <= 0 {
		eventBuffer = defaultEventBuffer
	}
	return &Client{
		ID:       id,
		Commands: make(chan *Command, defaultCommandBuffer),
		Events:   make(chan *Event, eventBuffer),
	}
}
