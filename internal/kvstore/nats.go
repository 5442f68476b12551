package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSStore implements Store on a JetStream key-value bucket.
type NATSStore struct {
	conn *nats.Conn
	kv   jetstream.KeyValue
}

// NewNATSStore connects to url and opens bucket, creating it when missing.
func NewNATSStore(ctx context.Context, url, bucket string) (*NATSStore, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	kv, err := js.KeyValue(initCtx, bucket)
	if err != nil {
		kv, err = js.CreateKeyValue(initCtx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "calfstretch routine history and reminders",
			History:     1,
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create KV bucket: %w", err)
		}
		slog.Info("Created KV bucket", "bucket", bucket)
	}

	return &NATSStore{conn: conn, kv: kv}, nil
}

func newNATSStoreWithBucket(kv jetstream.KeyValue) *NATSStore {
	return &NATSStore{kv: kv}
}

// natsKey maps a namespaced key onto the NATS KV key alphabet, which has no ':'.
func natsKey(key string) string {
	return strings.ReplaceAll(key, ":", ".")
}

func (n *NATSStore) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := n.kv.Get(ctx, natsKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr(err, "get", key)
	}
	return entry.Value(), nil
}

func (n *NATSStore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := n.kv.Put(ctx, natsKey(key), value); err != nil {
		return storageErr(err, "set", key)
	}
	return nil
}

func (n *NATSStore) Remove(ctx context.Context, key string) error {
	err := n.kv.Delete(ctx, natsKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return storageErr(err, "remove", key)
	}
	return nil
}

// Close closes the NATS connection when the store owns one.
func (n *NATSStore) Close() error {
	if n.conn != nil {
		n.conn.Close()
	}
	return nil
}
