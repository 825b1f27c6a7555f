package realtime

import "sync"

// Channel delivers change events for one subscription. Done is closed when
// the subscription ends; Err then reports why (nil after Close).
type Channel struct {
	events chan ChangeEvent
	done   chan struct{}

	mu      sync.Mutex
	err     error
	onClose func() error
	once    sync.Once
}

// NewChannel creates an open channel with the given buffer size. Producers
// feed it with Deliver and end it with Fail or Close.
func NewChannel(buffer int) *Channel {
	return &Channel{
		events: make(chan ChangeEvent, buffer),
		done:   make(chan struct{}),
	}
}

// Events returns the receive side of the channel
func (c *Channel) Events() <-chan ChangeEvent {
	return c.events
}

// Done is closed once the subscription has ended
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the subscription
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Deliver hands an event to the consumer. It blocks while the buffer is full
// and returns false once the channel has ended.
func (c *Channel) Deliver(ev ChangeEvent) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

// Fail ends the subscription with err. It is a no-op on an ended channel.
func (c *Channel) Fail(err error) {
	c.finish(err)
}

// Close ends the subscription and releases the underlying connection
func (c *Channel) Close() error {
	c.finish(nil)

	c.mu.Lock()
	onClose := c.onClose
	c.onClose = nil
	c.mu.Unlock()

	if onClose != nil {
		return onClose()
	}
	return nil
}

func (c *Channel) finish(err error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
	})
}
