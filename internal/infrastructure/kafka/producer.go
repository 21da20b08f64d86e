package kafka

import (
	"context"
	"fmt"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-climate/internal/publish"
)

const (
	// defaultWriteTimeout bounds one WriteMessages call.
	defaultWriteTimeout = 5 * time.Second

	// defaultDialTimeout bounds one broker dial.
	defaultDialTimeout = 5 * time.Second
)

// messageWriter is the subset of *kafkago.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// dialFunc dials one broker address.
type dialFunc func(ctx context.Context, broker string) error

// Logger interface for optional logging support.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Producer implements publish.Publisher over segmentio/kafka-go.
//
// Thread Safety:
//   - Not safe for concurrent use. Drive all methods from one goroutine.
//   - The dial goroutine only sends its result on a channel.
type Producer struct {
	cfg          config.KafkaConfig
	key          []byte
	writeTimeout time.Duration

	dial   dialFunc
	writer messageWriter

	state   publish.State
	lastErr error
	closed  bool

	// results receives the outcome of the current dial check. Each Connect
	// makes a new channel so a stale check never blocks.
	results chan error

	logger Logger
}

// New creates a disconnected producer.
//
// Parameters:
//   - cfg: Kafka configuration from climate.yaml
//   - writeTimeout: Bound on each write and broker check; zero or negative uses the default
//   - deviceID: Message key for every reading
//   - qos: MQTT-style delivery level mapped to required acks (0 none, 1 leader, 2 all)
//
// Returns:
//   - *Producer: Producer in the Disconnected state
func New(cfg config.KafkaConfig, writeTimeout time.Duration, deviceID string, qos int) *Producer {
	timeout := writeTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}

	return &Producer{
		cfg:          cfg,
		key:          []byte(deviceID),
		writeTimeout: timeout,
		dial:         dialBroker,
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(cfg.Brokers...),
			Balancer:     &kafkago.Hash{},
			RequiredAcks: requiredAcks(qos),
			WriteTimeout: timeout,
		},
		state:  publish.StateDisconnected,
		logger: noopLogger{},
	}
}

// requiredAcks maps a QoS level to the Kafka acknowledgement mode.
func requiredAcks(qos int) kafkago.RequiredAcks {
	switch {
	case qos <= 0:
		return kafkago.RequireNone
	case qos == 1:
		return kafkago.RequireOne
	default:
		return kafkago.RequireAll
	}
}

// dialBroker opens and closes one connection to broker.
func dialBroker(ctx context.Context, broker string) error {
	conn, err := kafkago.DialContext(ctx, "tcp", broker)
	if err != nil {
		return err
	}
	return conn.Close()
}

// SetLogger sets a logger for connection changes.
func (p *Producer) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	p.logger = logger
}

// TopicFor maps an MQTT-style topic to a Kafka topic name.
// A configured kafka.topic wins over the mapping.
func (p *Producer) TopicFor(topic string) string {
	if p.cfg.Topic != "" {
		return p.cfg.Topic
	}
	return strings.ReplaceAll(topic, "/", ".")
}

// Connect starts a broker dial check on a goroutine. Calling it while
// connecting or connected does nothing.
func (p *Producer) Connect() error {
	if p.closed {
		return fmt.Errorf("%w: %w", publish.ErrConnectivity, ErrClosed)
	}
	if !p.state.NeedsConnect() {
		return nil
	}

	p.state = publish.StateConnecting
	brokers := append([]string(nil), p.cfg.Brokers...)
	dial := p.dial
	results := make(chan error, 1)
	p.results = results

	go func() {
		results <- reachAny(dial, brokers)
	}()
	return nil
}

// reachAny returns nil as soon as one broker answers.
func reachAny(dial dialFunc, brokers []string) error {
	if len(brokers) == 0 {
		return fmt.Errorf("%w: no brokers configured", ErrDialFailed)
	}

	var lastErr error
	for _, broker := range brokers {
		ctx, cancel := context.WithTimeout(context.Background(), defaultDialTimeout)
		err := dial(ctx, broker)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = fmt.Errorf("%s: %w", broker, err)
	}
	return fmt.Errorf("%w: %w", ErrDialFailed, lastErr)
}

// PumpEvents applies a finished dial check, waiting at most timeout for it.
func (p *Producer) PumpEvents(timeout time.Duration) error {
	if p.closed || p.state != publish.StateConnecting {
		return nil
	}

	var (
		err error
		ok  bool
	)
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case err = <-p.results:
			ok = true
		case <-timer.C:
		}
	} else {
		select {
		case err = <-p.results:
			ok = true
		default:
		}
	}
	if !ok {
		return nil
	}

	if err != nil {
		p.state = publish.StateErrored
		p.lastErr = err
		p.logger.Warn("Kafka broker dial failed", "error", err)
		return nil
	}
	p.state = publish.StateConnected
	p.lastErr = nil
	p.logger.Info("Kafka broker reachable", "brokers", p.cfg.Brokers)
	return nil
}

// Publish writes one message keyed by device id. qos is fixed at
// construction and retained has no Kafka equivalent; both are accepted for
// interface compatibility.
func (p *Producer) Publish(topic string, payload []byte, _ byte, _ bool) error {
	if topic == "" {
		return fmt.Errorf("%w: %w", publish.ErrPublish, ErrInvalidTopic)
	}
	if p.state != publish.StateConnected {
		return fmt.Errorf("%w: %w (state %s)", publish.ErrPublish, ErrNotConnected, p.state)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
	defer cancel()

	err := p.writer.WriteMessages(ctx, kafkago.Message{
		Topic: p.TopicFor(topic),
		Key:   p.key,
		Value: payload,
	})
	if err != nil {
		p.state = publish.StateErrored
		p.lastErr = err
		return fmt.Errorf("%w: %w: %w", publish.ErrPublish, ErrWriteFailed, err)
	}
	return nil
}

// State returns the current connection state.
func (p *Producer) State() publish.State {
	return p.state
}

// LastError returns the error behind the last Errored state.
func (p *Producer) LastError() error {
	return p.lastErr
}

// WaitConnected pumps until the dial check resolves or timeout elapses.
func (p *Producer) WaitConnected(timeout time.Duration) error {
	_ = p.PumpEvents(timeout)

	switch p.state {
	case publish.StateConnected:
		return nil
	case publish.StateConnecting:
		return fmt.Errorf("%w: %w: no answer after %v", publish.ErrConnectivity, ErrDialFailed, timeout)
	default:
		return fmt.Errorf("%w: %w", publish.ErrConnectivity, p.cause())
	}
}

func (p *Producer) cause() error {
	if p.lastErr != nil {
		return p.lastErr
	}
	return ErrNotConnected
}

// Disconnect marks the producer disconnected. Buffered writes are flushed
// on Close.
func (p *Producer) Disconnect() {
	p.state = publish.StateDisconnected
}

// Close flushes and releases the writer. Calling Close more than once is safe.
func (p *Producer) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.state = publish.StateDisconnected
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("closing kafka writer: %w", err)
	}
	return nil
}
