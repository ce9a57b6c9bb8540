package persistqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/askcache/internal/domain/qacache"
)

const envelopeVersion = 1

type envelope struct {
	Version int              `json:"v"`
	Entry   qacache.NewEntry `json:"entry"`
}

// ValkeyQueue buffers new entries in a Valkey list and drains them into a sink.
type ValkeyQueue struct {
	client      valkey.Client
	queueKey    string
	sink        qacache.EntryWriter
	logger      *slog.Logger
	pollTimeout time.Duration
}

// NewValkeyQueue constructs a Valkey-backed queue that hands popped entries to sink.
func NewValkeyQueue(client valkey.Client, queueKey string, sink qacache.EntryWriter, logger *slog.Logger) *ValkeyQueue {
	if queueKey == "" {
		queueKey = "askcache:persist"
	}
	return &ValkeyQueue{
		client:      client,
		queueKey:    queueKey,
		sink:        sink,
		logger:      logger.With("component", "persistqueue.valkey"),
		pollTimeout: 5 * time.Second,
	}
}

// Write pushes the entry onto the queue.
func (q *ValkeyQueue) Write(ctx context.Context, entry qacache.NewEntry) error {
	encoded, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	cmd := q.client.B().Lpush().Key(q.queueKey).Element(encoded).Build()
	return q.client.Do(ctx, cmd).Error()
}

// Run pops entries until ctx is cancelled.
func (q *ValkeyQueue) Run(ctx context.Context) {
	q.logger.Info("persist queue consumer started", "key", q.queueKey)
	for {
		if ctx.Err() != nil {
			q.logger.Info("persist queue consumer stopped")
			return
		}
		resp := q.client.Do(ctx, q.client.B().Brpop().Key(q.queueKey).Timeout(q.pollTimeout.Seconds()).Build())
		values, err := resp.ToArray()
		if err != nil {
			if !valkey.IsValkeyNil(err) && !errors.Is(err, context.Canceled) {
				q.logger.Warn("persist queue pop failed", "error", err)
				sleepCtx(ctx, time.Second)
			}
			continue
		}
		if len(values) < 2 {
			continue
		}
		raw, err := values[1].ToString()
		if err != nil {
			q.logger.Warn("persist queue payload read failed", "error", err)
			continue
		}
		entry, err := decodeEntry(raw)
		if err != nil {
			q.logger.Warn("persist queue payload dropped", "error", err)
			continue
		}
		if err := q.sink.Write(context.WithoutCancel(ctx), entry); err != nil {
			q.logger.Warn("persist queue write failed", "error", err)
		}
	}
}

func encodeEntry(entry qacache.NewEntry) (string, error) {
	encoded, err := json.Marshal(envelope{Version: envelopeVersion, Entry: entry})
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func decodeEntry(raw string) (qacache.NewEntry, error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return qacache.NewEntry{}, err
	}
	if env.Version != envelopeVersion {
		return qacache.NewEntry{}, fmt.Errorf("unsupported envelope version %d", env.Version)
	}
	if env.Entry.NormalizedQuestion == "" || env.Entry.Answer == "" {
		return qacache.NewEntry{}, errors.New("incomplete entry")
	}
	return env.Entry, nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

var _ qacache.EntryWriter = (*ValkeyQueue)(nil)
