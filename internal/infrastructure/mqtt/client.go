package mqtt

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-climate/internal/publish"
)

// eventBuffer bounds queued connection events between pumps.
const eventBuffer = 16

// waitStep is the pump slice used by WaitConnected.
const waitStep = 100 * time.Millisecond

// Client publishes readings over paho.mqtt.golang.
//
// It implements publish.Publisher. Connection state is owned by the
// goroutine that calls PumpEvents: paho callbacks only queue events.
//
// Thread Safety:
//   - Not safe for concurrent use. Drive all methods from one goroutine.
//   - Paho callbacks may run on any goroutine; they never touch state.
type Client struct {
	cfg      config.MQTTConfig
	clientID string
	topics   Topics
	options  *pahomqtt.ClientOptions

	// newClient builds the paho client on first Connect. Replaced in tests.
	newClient func(*pahomqtt.ClientOptions) pahomqtt.Client
	client    pahomqtt.Client

	state        publish.State
	connectToken pahomqtt.Token
	lastErr      error
	events       chan event
	closed       bool

	logger Logger
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

type eventKind int

const (
	eventConnected eventKind = iota
	eventConnectionLost
)

// event is a connection change reported by a paho callback.
type event struct {
	kind eventKind
	err  error
}

// New creates a disconnected client. No network activity happens until
// Connect.
//
// Parameters:
//   - cfg: MQTT configuration from climate.yaml
//   - clientID: MQTT client identifier
//   - topics: Topic builder for this device; its status topic carries the Last Will
//
// Returns:
//   - *Client: Client in the Disconnected state
func New(cfg config.MQTTConfig, clientID string, topics Topics) *Client {
	opts := buildClientOptions(cfg, clientID)
	configureLWT(opts, topics.DeviceStatus(), clientID)

	c := &Client{
		cfg:       cfg,
		clientID:  clientID,
		topics:    topics,
		options:   opts,
		newClient: pahomqtt.NewClient,
		state:     publish.StateDisconnected,
		events:    make(chan event, eventBuffer),
		logger:    noopLogger{},
	}

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.post(event{kind: eventConnected})
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.post(event{kind: eventConnectionLost, err: err})
	})

	return c
}

// SetLogger sets a logger for connection changes.
func (c *Client) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.logger = logger
}

// post queues an event without blocking the paho goroutine. A full queue
// drops the event; Publish and the connect token still reveal the state.
func (c *Client) post(ev event) {
	select {
	case c.events <- ev:
	default:
	}
}

// Connect starts an asynchronous connection attempt.
//
// Calling Connect while connecting or connected does nothing. When paho
// already holds a live connection (a loss that was only seen by Publish,
// or an earlier attempt that completed late) the client is marked
// connected without a new attempt, since paho rejects Connect while
// connected. Otherwise the result becomes visible through State after
// PumpEvents.
//
// Returns:
//   - error: ErrClosed (matching publish.ErrConnectivity) after Close
func (c *Client) Connect() error {
	if c.closed {
		return fmt.Errorf("%w: %w", publish.ErrConnectivity, ErrClosed)
	}
	if !c.state.NeedsConnect() {
		return nil
	}

	if c.client == nil {
		c.client = c.newClient(c.options)
	} else if c.client.IsConnected() {
		c.connectToken = nil
		c.lastErr = nil
		c.markConnected()
		return nil
	}

	c.state = publish.StateConnecting
	c.lastErr = nil
	c.connectToken = c.client.Connect()
	return nil
}

// WaitConnected pumps events until the client is connected, the attempt
// fails, or timeout elapses. Used for the blocking initial connect.
//
// Returns:
//   - error: ErrConnectionFailed or ErrTimeout, both matching publish.ErrConnectivity
func (c *Client) WaitConnected(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		step := min(time.Until(deadline), waitStep)
		if err := c.PumpEvents(step); err != nil {
			return err
		}

		switch c.state {
		case publish.StateConnected:
			return nil
		case publish.StateErrored, publish.StateDisconnected:
			return fmt.Errorf("%w: %w: %w", publish.ErrConnectivity, ErrConnectionFailed, c.cause())
		}

		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: %w: no answer after %v", publish.ErrConnectivity, ErrTimeout, timeout)
		}
	}
}

// PumpEvents applies queued connection events and the outcome of a
// pending connect.
//
// It waits at most timeout for the first event, then drains whatever else
// is queued without blocking.
//
// Parameters:
//   - timeout: Upper bound on blocking; zero or negative does not block
//
// Returns:
//   - error: Always nil; failures are reflected in State
func (c *Client) PumpEvents(timeout time.Duration) error {
	if c.closed {
		return nil
	}

	if timeout > 0 {
		var done <-chan struct{}
		if c.connectToken != nil {
			done = c.connectToken.Done()
		}

		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case ev := <-c.events:
			c.apply(ev)
		case <-done:
		case <-timer.C:
		}
	}

	c.checkConnectToken()

	for {
		select {
		case ev := <-c.events:
			c.apply(ev)
		default:
			return nil
		}
	}
}

// checkConnectToken resolves a finished connect attempt.
func (c *Client) checkConnectToken() {
	if c.connectToken == nil {
		return
	}
	select {
	case <-c.connectToken.Done():
	default:
		return
	}

	token := c.connectToken
	c.connectToken = nil
	if c.state != publish.StateConnecting {
		return
	}

	if err := token.Error(); err != nil {
		if c.client.IsConnected() {
			// Rejected because an earlier attempt already got through.
			c.markConnected()
			return
		}
		c.state = publish.StateErrored
		c.lastErr = err
		c.logger.Warn("MQTT connection attempt failed", "error", err)
		return
	}
	c.markConnected()
}

// apply handles one callback event.
func (c *Client) apply(ev event) {
	switch ev.kind {
	case eventConnected:
		// A late OnConnect from an attempt the state machine already gave
		// up on still counts while paho reports the link up.
		if c.state != publish.StateConnected && c.client != nil && c.client.IsConnected() {
			c.connectToken = nil
			c.lastErr = nil
			c.markConnected()
		}
	case eventConnectionLost:
		// Paho only reports losing an established link. In any other state,
		// or once paho is up again, the event belongs to an older connection.
		if c.state == publish.StateConnected && !c.client.IsConnected() {
			c.state = publish.StateDisconnected
			c.lastErr = ev.err
			c.connectToken = nil
			c.logger.Warn("MQTT connection lost", "error", ev.err)
		}
	}
}

// markConnected enters Connected and announces the device online.
func (c *Client) markConnected() {
	if c.state == publish.StateConnected {
		return
	}
	c.state = publish.StateConnected
	c.logger.Info("MQTT connected", "client_id", c.clientID)

	payload := buildStatusPayload(statusOnline, c.clientID, "")
	// Not awaited: a lost status message is superseded by the next connect.
	c.client.Publish(c.topics.DeviceStatus(), statusQoS, true, payload)
}

// cause returns the last connection error or a placeholder.
func (c *Client) cause() error {
	if c.lastErr != nil {
		return c.lastErr
	}
	return ErrNotConnected
}

// State returns the current connection state.
func (c *Client) State() publish.State {
	return c.state
}

// LastError returns the error behind the last Errored or lost connection.
func (c *Client) LastError() error {
	return c.lastErr
}

// Disconnect gracefully leaves the broker.
//
// It performs:
//  1. Publishes graceful offline status (different from LWT crash status)
//  2. Waits for pending publish operations
//  3. Disconnects from broker
//
// Safe to call in any state.
func (c *Client) Disconnect() {
	if c.client == nil {
		c.state = publish.StateDisconnected
		return
	}

	if c.state == publish.StateConnected && c.client.IsConnected() {
		payload := buildStatusPayload(statusOffline, c.clientID, "graceful_shutdown")
		token := c.client.Publish(c.topics.DeviceStatus(), statusQoS, true, payload)
		token.WaitTimeout(defaultPublishTimeout)
	}

	if c.state == publish.StateConnected || c.state == publish.StateConnecting {
		c.client.Disconnect(defaultDisconnectQuiesce)
	}

	c.state = publish.StateDisconnected
	c.connectToken = nil
}

// Close disconnects and releases the client. Later Connect calls fail.
// Calling Close more than once is safe.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.Disconnect()
	c.closed = true
	return nil
}
