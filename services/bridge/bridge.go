// Package bridge forwards device telemetry off the bus to an external
// transport: MQTT on Linux hosts, UART on RP2 boards. It listens for config
// on config/bridge and supervises a single link, reconnecting with backoff.
package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"pulsecode-go/bus"
	"pulsecode-go/errcode"
	"pulsecode-go/types"
	"pulsecode-go/x/conv"
	"pulsecode-go/x/timex"
)

var (
	topicConfig = bus.Topic{"config", "bridge"}
	topicState  = bus.Topic{"bridge", "state"}
)

// Config selects and parameterises the transport. Forward lists the local
// topic patterns mirrored to the remote side; empty means pulse/# and
// power/#.
type Config struct {
	Transport TransportConfig `json:"transport" yaml:"transport"`
	Forward   []bus.Topic     `json:"-" yaml:"-"`
	Prefix    string          `json:"prefix,omitempty" yaml:"prefix"` // remote topic prefix
}

type TransportConfig struct {
	Type string      `json:"type" yaml:"type"` // "mqtt", "uart", or a registered name
	MQTT *MQTTConfig `json:"mqtt,omitempty" yaml:"mqtt"`
	UART *UARTConfig `json:"uart,omitempty" yaml:"uart"`
}

type MQTTConfig struct {
	Broker   string `json:"broker" yaml:"broker"` // e.g. "tcp://localhost:1883"
	ClientID string `json:"client_id,omitempty" yaml:"client_id"`
}

type UARTConfig struct {
	Port  string `json:"port" yaml:"port"` // "uart0" or "uart1"
	Baud  uint32 `json:"baud" yaml:"baud"`
	TxPin int    `json:"tx_pin" yaml:"tx_pin"`
	RxPin int    `json:"rx_pin" yaml:"rx_pin"`
}

// Transport is the remote side of the bridge.
type Transport interface {
	Connect(ctx context.Context) error
	Publish(topic string, payload []byte) error
	Close() error
}

type transportFactory func(TransportConfig) (Transport, error)

var (
	regMu    sync.RWMutex
	registry = map[string]transportFactory{}
)

// RegisterTransport adds a named transport; build-tagged files register
// "mqtt" and "uart", tests register fakes.
func RegisterTransport(name string, f transportFactory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[name] = f
}

func newTransport(cfg TransportConfig) (Transport, error) {
	regMu.RLock()
	f, ok := registry[cfg.Type]
	regMu.RUnlock()
	if !ok {
		return nil, &errcode.E{C: errcode.Unsupported, Op: "bridge", Msg: "transport " + cfg.Type}
	}
	return f(cfg)
}

type Service struct {
	conn *bus.Connection

	mu     sync.Mutex
	curRun context.CancelFunc
}

// Start blocks until ctx is cancelled. It waits for config and supervises
// one link at a time; a new config tears down the previous link.
func Start(ctx context.Context, conn *bus.Connection) {
	s := &Service{conn: conn}
	s.run(ctx)
}

func (s *Service) run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(topicConfig)
	defer s.conn.Unsubscribe(cfgSub)

	s.publishState("idle", "awaiting_config", nil)

	for {
		select {
		case <-ctx.Done():
			s.stopCurrent()
			return
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				s.publishState("error", "config_subscription_closed", nil)
				return
			}
			cfg, err := decodeConfig(msg.Payload)
			if err != nil {
				s.publishState("error", "config_decode_failed", err)
				continue
			}
			s.reconfigure(ctx, cfg)
		}
	}
}

func (s *Service) stopCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
}

func (s *Service) reconfigure(parent context.Context, cfg Config) {
	s.mu.Lock()
	if s.curRun != nil {
		s.curRun()
	}
	ctx, cancel := context.WithCancel(parent)
	s.curRun = cancel
	s.mu.Unlock()

	go s.runLink(ctx, cfg)
}

func (s *Service) runLink(ctx context.Context, cfg Config) {
	tr, err := newTransport(cfg.Transport)
	if err != nil {
		s.publishState("error", "transport_init_failed", err)
		return
	}
	defer tr.Close()

	forward := cfg.Forward
	if len(forward) == 0 {
		forward = []bus.Topic{{"pulse", "#"}, {"power", "#"}}
	}

	backoff := backoffSeq(250*time.Millisecond, 5*time.Second)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := tr.Connect(ctx); err != nil {
			delay := backoff()
			s.publishState("degraded", "dial_failed_retrying", err)
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		s.publishState("up", "link_established", nil)
		if err := s.forwardLoop(ctx, tr, forward, cfg.Prefix); err != nil {
			delay := backoff()
			s.publishState("degraded", "link_lost_retrying", err)
			if !sleep(ctx, delay) {
				return
			}
			continue
		}
		return
	}
}

// forwardLoop mirrors matching local messages to the transport until ctx is
// cancelled or the transport fails.
func (s *Service) forwardLoop(ctx context.Context, tr Transport, forward []bus.Topic, prefix string) error {
	subs := make([]*bus.Subscription, 0, len(forward))
	agg := make(chan *bus.Message, 16)
	defer func() {
		for _, sub := range subs {
			s.conn.Unsubscribe(sub)
		}
	}()

	done := make(chan struct{})
	defer close(done)
	for _, pat := range forward {
		sub := s.conn.Subscribe(pat)
		subs = append(subs, sub)
		go func(sub *bus.Subscription) {
			for {
				select {
				case <-done:
					return
				case msg, ok := <-sub.Channel():
					if !ok {
						return
					}
					select {
					case agg <- msg:
					case <-done:
						return
					}
				}
			}
		}(sub)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-agg:
			body, err := json.Marshal(msg.Payload)
			if err != nil {
				continue
			}
			if err := tr.Publish(topicString(prefix, msg.Topic), body); err != nil {
				return err
			}
		}
	}
}

// topicString flattens a bus topic to a slash-delimited string for the
// remote side. Integer tokens render in decimal.
func topicString(prefix string, t bus.Topic) string {
	b := make([]byte, 0, 48)
	if prefix != "" {
		b = append(b, prefix...)
	}
	for i, tok := range t {
		if i > 0 || prefix != "" {
			b = append(b, '/')
		}
		switch v := tok.(type) {
		case string:
			b = append(b, v...)
		case int:
			b = conv.AppendInt(b, int64(v))
		case uint64:
			b = conv.AppendUint(b, v)
		default:
			b = append(b, '?')
		}
	}
	return string(b)
}

func decodeConfig(p any) (Config, error) {
	var cfg Config
	switch v := p.(type) {
	case Config:
		return v, nil
	case []byte:
		err := json.Unmarshal(v, &cfg)
		return cfg, err
	case string:
		err := json.Unmarshal([]byte(v), &cfg)
		return cfg, err
	default:
		return cfg, &errcode.E{C: errcode.InvalidPayload, Op: "bridge.decodeConfig"}
	}
}

func (s *Service) publishState(level, status string, err error) {
	st := types.ServiceState{Level: level, Status: status, TS: timex.NowMs()}
	if err != nil {
		st.Status = status + ": " + err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(topicState, st, true))
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	cur := min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
