package mqtt

import (
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// FakeClient is a paho.Client that never touches the network. With Stall set,
// publish tokens stay incomplete until Release is called, which models a
// broker that has stopped acknowledging.
type FakeClient struct {
	mu        sync.Mutex
	connected bool
	stall     bool
	release   chan struct{}
	published []string
}

// NewFakeClient creates a connected FakeClient.
func NewFakeClient(stall bool) *FakeClient {
	return &FakeClient{connected: true, stall: stall, release: make(chan struct{})}
}

// SetConnected changes what IsConnectionOpen reports.
func (c *FakeClient) SetConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// Release completes every stalled token, now and later.
func (c *FakeClient) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stall {
		c.stall = false
		close(c.release)
	}
}

// Published returns the topics passed to Publish, in order.
func (c *FakeClient) Published() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.published))
	copy(out, c.published)
	return out
}

func (c *FakeClient) IsConnected() bool { return c.IsConnectionOpen() }

func (c *FakeClient) IsConnectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *FakeClient) Connect() paho.Token { return doneToken{} }

func (c *FakeClient) Disconnect(uint) { c.SetConnected(false) }

func (c *FakeClient) Publish(topic string, _ byte, _ bool, _ interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, topic)
	if c.stall {
		return stalledToken{release: c.release}
	}
	return doneToken{}
}

func (c *FakeClient) Subscribe(string, byte, paho.MessageHandler) paho.Token { return doneToken{} }

func (c *FakeClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return doneToken{}
}

func (c *FakeClient) Unsubscribe(...string) paho.Token { return doneToken{} }

func (c *FakeClient) AddRoute(string, paho.MessageHandler) {}

func (c *FakeClient) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{}          { return closedChan }
func (doneToken) Error() error                   { return nil }

type stalledToken struct {
	release chan struct{}
}

func (t stalledToken) Wait() bool {
	<-t.release
	return true
}

func (t stalledToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.release:
		return true
	case <-time.After(d):
		return false
	}
}

func (t stalledToken) Done() <-chan struct{} { return t.release }
func (t stalledToken) Error() error          { return nil }
