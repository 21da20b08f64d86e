package sampler

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/clock"
	"github.com/nerrad567/gray-logic-climate/internal/publish"
	"github.com/nerrad567/gray-logic-climate/internal/sensor"
	"github.com/nerrad567/gray-logic-climate/internal/sensor/aht20"
	"github.com/nerrad567/gray-logic-climate/internal/sensor/bus"
)

const testTopic = "home/home-1/sensors/living-room/reading"

var testStart = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

type message struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// fakePublisher connects on the first pump after Connect unless failConnect
// is set.
type fakePublisher struct {
	state       publish.State
	failConnect bool
	publishErr  error

	messages     []message
	pumpTimeouts []time.Duration
	connects     int
	disconnects  int
	closes       int
}

func (p *fakePublisher) Connect() error {
	p.connects++
	if p.state.NeedsConnect() {
		p.state = publish.StateConnecting
	}
	return nil
}

func (p *fakePublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if p.state != publish.StateConnected {
		return fmt.Errorf("%w: not connected", publish.ErrPublish)
	}
	if p.publishErr != nil {
		return p.publishErr
	}
	p.messages = append(p.messages, message{topic, payload, qos, retained})
	return nil
}

func (p *fakePublisher) PumpEvents(timeout time.Duration) error {
	p.pumpTimeouts = append(p.pumpTimeouts, timeout)
	if p.state == publish.StateConnecting {
		if p.failConnect {
			p.state = publish.StateErrored
		} else {
			p.state = publish.StateConnected
		}
	}
	return nil
}

func (p *fakePublisher) State() publish.State { return p.state }

func (p *fakePublisher) Disconnect() {
	p.disconnects++
	p.state = publish.StateDisconnected
}

func (p *fakePublisher) Close() error {
	p.closes++
	return nil
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

// recordingLogger keeps every entry. Safe for concurrent use.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level, msg, args})
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *recordingLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

type sinkFunc func(sensor.Reading)

func (f sinkFunc) WriteReading(r sensor.Reading) { f(r) }

type tickRecorder struct {
	ticks []Tick
	err   error
}

func (r *tickRecorder) RecordTick(t Tick) error {
	r.ticks = append(r.ticks, t)
	return r.err
}

// stopAfter reports stopped once Stopped has been called more than n times.
type stopAfter struct {
	n     int
	calls int
}

func (s *stopAfter) Stopped() bool {
	s.calls++
	return s.calls > s.n
}

type fixture struct {
	loop   *Loop
	driver *aht20.Driver
	dev    *bus.Fake
	pub    *fakePublisher
	clk    *clock.Fake
	logger *recordingLogger
}

// newFixture wires a ready driver on a fake bus and a connected publisher.
// mutate may adjust the options before New.
func newFixture(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()

	clk := clock.NewFake(testStart)
	dev := bus.NewFake(aht20.DefaultAddress)
	driver := aht20.New(aht20.Options{Clock: clk})
	if err := driver.Initialize(dev); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	f := &fixture{
		driver: driver,
		dev:    dev,
		pub:    &fakePublisher{state: publish.StateConnected},
		clk:    clk,
		logger: &recordingLogger{},
	}

	opts := Options{
		Sensor:    driver,
		Device:    dev,
		Publisher: f.pub,
		Clock:     clk,
		Interval:  30 * time.Second,
		Topic:     testTopic,
		QoS:       1,
		Logger:    f.logger,
	}
	if mutate != nil {
		mutate(&opts)
	}

	loop, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.loop = loop
	return f
}

var errBrokerDown = errors.New("broker down")
