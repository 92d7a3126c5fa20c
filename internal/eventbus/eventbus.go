// Package eventbus implements the Event Bus: in-process publish/subscribe
// with bounded per-topic backpressure. It is backed by an embedded NATS
// server with JetStream enabled: topics become JetStream subjects, and a
// bounded stream per topic with a discard-old policy gives the "newest
// events displace oldest" semantics for free.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/time/rate"
)

// Topics used by the core.
const (
	TopicFileChange          = "file_change"
	TopicChangeAnalyzed      = "change_analyzed"
	TopicAssignmentMade      = "assignment_made"
	TopicTaskCompleted       = "task_completed"
	TopicHandoffTriggered    = "handoff_triggered"
	TopicComponentError      = "component_error"
	TopicHealthCheckComplete = "health_check_complete"
	TopicConflictDetected    = "conflict_detected"
)

// Stats tracks the counters exposed by the bus: handlers.registered,
// events.published/dispatched/dropped.
type Stats struct {
	HandlersRegistered atomic.Int64
	EventsPublished    atomic.Int64
	EventsDispatched   atomic.Int64
	EventsDropped      atomic.Int64
}

// Snapshot is a point-in-time copy of Stats, safe to log or serialize.
type Snapshot struct {
	HandlersRegistered int64 `json:"handlers_registered"`
	EventsPublished    int64 `json:"events_published"`
	EventsDispatched   int64 `json:"events_dispatched"`
	EventsDropped      int64 `json:"events_dropped"`
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		HandlersRegistered: s.HandlersRegistered.Load(),
		EventsPublished:    s.EventsPublished.Load(),
		EventsDispatched:   s.EventsDispatched.Load(),
		EventsDropped:      s.EventsDropped.Load(),
	}
}

// Handler processes one dispatched event. Per the engine's scheduling
// model, handlers must return promptly or spawn their own goroutine for
// long work.
type Handler func(payload []byte)

// defaultMaxMsgsPerTopic bounds each topic's JetStream stream; once reached, the
// discard-old policy drops the oldest message to admit the newest.
const defaultMaxMsgsPerTopic = 1000

// Bus is the embedded-NATS-backed Event Bus.
type Bus struct {
	dataDir         string
	maxMsgsPerTopic int64

	ns *server.Server
	nc *natsgo.Conn
	js jetstream.JetStream

	mu      sync.Mutex
	streams map[string]jetstream.Stream

	limiter *rate.Limiter

	Stats Stats
}

// Option configures a Bus at construction time.
type Option func(*Bus)

// WithMaxMsgsPerTopic overrides the default per-topic bound.
func WithMaxMsgsPerTopic(n int64) Option {
	return func(b *Bus) { b.maxMsgsPerTopic = n }
}

// WithPublishRateLimit caps sustained publish throughput across all topics
// to eventsPerSecond, permitting bursts up to burst, so a misbehaving
// producer (e.g. a flapping watcher) cannot starve JetStream dispatch of
// slower subscribers. Unset by default: no limiting.
func WithPublishRateLimit(eventsPerSecond float64, burst int) Option {
	return func(b *Bus) { b.limiter = rate.NewLimiter(rate.Limit(eventsPerSecond), burst) }
}

// New starts an embedded, in-process NATS server with JetStream enabled
// (DontListen: true) and returns a Bus backed by it. dataDir backs
// JetStream's file storage for stream state.
func New(dataDir string, opts ...Option) (*Bus, error) {
	b := &Bus{dataDir: dataDir, maxMsgsPerTopic: defaultMaxMsgsPerTopic, streams: map[string]jetstream.Stream{}}
	for _, opt := range opts {
		opt(b)
	}

	ns, err := server.NewServer(&server.Options{JetStream: true, StoreDir: dataDir, DontListen: true})
	if err != nil {
		return nil, fmt.Errorf("starting embedded nats server: %w", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(4 * time.Second) {
		return nil, errors.New("embedded nats server failed to start within timeout")
	}

	nc, err := natsgo.Connect("", natsgo.InProcessServer(ns))
	if err != nil {
		ns.Shutdown()
		return nil, fmt.Errorf("connecting to embedded nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		ns.Shutdown()
		return nil, fmt.Errorf("creating jetstream context: %w", err)
	}

	b.ns, b.nc, b.js = ns, nc, js
	return b, nil
}

// Close drains and closes the NATS connection, then shuts down the
// embedded server, each bounded by its own grace period.
func (b *Bus) Close() error {
	if b.nc != nil {
		drainDone := make(chan error, 1)
		go func() { drainDone <- b.nc.Drain() }()
		select {
		case err := <-drainDone:
			if err != nil {
				b.nc.Close()
			}
		case <-time.After(2 * time.Second):
			b.nc.Close()
		}
	}
	if b.ns != nil {
		b.ns.Shutdown()
		shutdownDone := make(chan struct{})
		go func() { b.ns.WaitForShutdown(); close(shutdownDone) }()
		select {
		case <-shutdownDone:
		case <-time.After(5 * time.Second):
			return errors.New("embedded nats server shutdown timed out")
		}
	}
	return nil
}

// streamFor returns (creating if necessary) the bounded stream backing
// topic, named after it with the discard-old policy.
func (b *Bus) streamFor(ctx context.Context, topic string) (jetstream.Stream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.streams[topic]; ok {
		return s, nil
	}
	s, err := b.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName(topic),
		Subjects: []string{topic},
		MaxMsgs:  b.maxMsgsPerTopic,
		Discard:  jetstream.DiscardOld,
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("creating stream for topic %s: %w", topic, err)
	}
	b.streams[topic] = s
	return s, nil
}

func streamName(topic string) string {
	// JetStream stream names may not contain '.'; topics are plain words in
	// this engine so this is cosmetic, but future dotted topics stay safe.
	out := make([]byte, len(topic))
	for i := 0; i < len(topic); i++ {
		if topic[i] == '.' {
			out[i] = '_'
		} else {
			out[i] = topic[i]
		}
	}
	return "EVT_" + string(out)
}

// Publish marshals payload to JSON and enqueues it on topic's stream,
// returning immediately after the broker has accepted it.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for publish rate limit on topic %s: %w", topic, err)
		}
	}

	stream, err := b.streamFor(ctx, topic)
	if err != nil {
		return err
	}
	before, _ := stream.Info(ctx)

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling event for topic %s: %w", topic, err)
	}
	if _, err := b.js.Publish(ctx, topic, data); err != nil {
		return fmt.Errorf("publishing to topic %s: %w", topic, err)
	}
	b.Stats.EventsPublished.Add(1)

	if before != nil {
		if after, err := stream.Info(ctx); err == nil {
			if after.State.Msgs <= before.State.Msgs {
				// the discard-old policy dropped the oldest message to admit
				// this one; the stream didn't grow even though we published.
				b.Stats.EventsDropped.Add(1)
			}
		}
	}
	return nil
}

// Subscription is a handle returned by Subscribe; Unsubscribe stops
// delivery synchronously and discards any still-queued invocations.
type Subscription struct {
	cc jetstream.ConsumeContext
	b  *Bus
}

// Unsubscribe stops this subscription's delivery loop.
func (s *Subscription) Unsubscribe() {
	s.cc.Stop()
	s.b.Stats.HandlersRegistered.Add(-1)
}

// Subscribe registers handler on topic via an ephemeral ordered consumer
// over topic's stream, delivering the messages the stream still retains
// followed by every message published after that.
func (b *Bus) Subscribe(ctx context.Context, topic string, handler Handler) (*Subscription, error) {
	stream, err := b.streamFor(ctx, topic)
	if err != nil {
		return nil, err
	}

	consumer, err := stream.OrderedConsumer(ctx, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{topic},
	})
	if err != nil {
		return nil, fmt.Errorf("creating consumer for topic %s: %w", topic, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		handler(msg.Data())
		b.Stats.EventsDispatched.Add(1)
		_ = msg.Ack()
	})
	if err != nil {
		return nil, fmt.Errorf("starting consume loop for topic %s: %w", topic, err)
	}

	b.Stats.HandlersRegistered.Add(1)
	return &Subscription{cc: cc, b: b}, nil
}
