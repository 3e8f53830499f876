package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	bufferCapacity = 100
	queueCapacity  = 64
	publishTimeout = 5 * time.Second
	closeTimeout   = 3 * time.Second
)

var (
	// ErrQueueFull is returned when the send queue is full.
	ErrQueueFull = errors.New("mqtt: send queue full")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("mqtt: publisher closed")
)

// RealPublisher publishes to an actual MQTT broker. Publish calls only
// enqueue; a sender goroutine owns all broker I/O, so a stalled connection
// never blocks the caller. Messages published while the connection is down
// are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	topics Topics
	logger *zap.Logger

	mu     sync.Mutex
	buf    *outbox
	queue  chan bufferedMsg
	closed bool
	done   chan struct{}
}

// NewRealPublisher creates a publisher for the given broker. Connection
// happens in the background and retries forever; publishing before the first
// connection buffers.
func NewRealPublisher(broker, clientID string, topics Topics, logger *zap.Logger) *RealPublisher {
	lwt, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Reason: "LWT"})

	var p *RealPublisher
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(topics.System, string(lwt), 1, true).
		SetOnConnectHandler(func(c paho.Client) { p.onConnect(c) }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn("mqtt connection lost", zap.Error(err))
		})

	p = NewRealPublisherWithClient(paho.NewClient(opts), topics, logger)
	p.client.Connect()
	return p
}

// NewRealPublisherWithClient creates a publisher over an existing client and
// starts its sender goroutine. The caller connects the client.
func NewRealPublisherWithClient(client paho.Client, topics Topics, logger *zap.Logger) *RealPublisher {
	p := &RealPublisher{
		client: client,
		topics: topics,
		logger: logger,
		buf:    newOutbox(bufferCapacity, logger),
		queue:  make(chan bufferedMsg, queueCapacity),
		done:   make(chan struct{}),
	}
	go p.send()
	return p
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	pending, dropped := p.buf.drain()
	p.mu.Unlock()

	p.logger.Info("mqtt connected", zap.Int("replaying", len(pending)), zap.Int("dropped", dropped))
	for _, msg := range pending {
		c.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	}
}

// PublishEpisode queues an episode event for the MQTT broker.
func (p *RealPublisher) PublishEpisode(event EpisodeEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 1: alerts must not be silently lost
	return p.enqueue(bufferedMsg{topic: p.topics.Episode, payload: payload, qos: 1})
}

// PublishSystem queues a system lifecycle event for the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.enqueue(bufferedMsg{topic: p.topics.System, payload: payload, qos: 1, retained: event.Retained})
}

// enqueue hands msg to the sender without waiting. A full queue means the
// broker has stalled for a while; the message is dropped and reported.
func (p *RealPublisher) enqueue(msg bufferedMsg) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- msg:
		return nil
	default:
		return fmt.Errorf("publish %s: %w", msg.topic, ErrQueueFull)
	}
}

// send runs until Close, delivering queued messages one at a time.
func (p *RealPublisher) send() {
	defer close(p.done)
	for msg := range p.queue {
		if err := p.deliver(msg); err != nil {
			p.logger.Warn("mqtt publish failed", zap.String("topic", msg.topic), zap.Error(err))
		}
	}
}

func (p *RealPublisher) deliver(msg bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.buf.push(msg)
		p.mu.Unlock()
		return nil
	}

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close stops accepting messages, waits up to closeTimeout for the queue to
// drain, then disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	select {
	case <-p.done:
	case <-time.After(closeTimeout):
		p.logger.Warn("mqtt close: queue not drained", zap.Duration("timeout", closeTimeout))
	}
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
