//go:build integration

package integration

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"google.golang.org/protobuf/proto"
)

/********** ENV CONFIG **********/

type Cfg struct {
	KafkaBootstrap    string
	SchemaRegistryURL string
	ReplicationFactor int
}

func LoadCfg() Cfg {
	return Cfg{
		KafkaBootstrap:    getenv("IT_BOOTSTRAP", "127.0.0.1:19092"),
		SchemaRegistryURL: getenv("IT_SCHEMA_REGISTRY", ""),
		ReplicationFactor: 1,
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func TCPReachable(addr string, timeout time.Duration) error {
	d := net.Dialer{Timeout: timeout}
	c, err := d.Dial("tcp", addr)
	if err != nil {
		return err
	}
	_ = c.Close()
	return nil
}

func WaitTCP(t *testing.T, name, addr string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var last error
	for time.Now().Before(deadline) {
		if err := TCPReachable(addr, 1500*time.Millisecond); err == nil {
			t.Logf("[it] %s ready at %s", name, addr)
			return
		} else {
			last = err
			time.Sleep(300 * time.Millisecond)
		}
	}
	t.Fatalf("[it] %s not reachable at %s: %v", name, addr, last)
}

// PartitionCount reads the partition count of topic straight from the broker.
func PartitionCount(t *testing.T, bootstrap, topic string) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn, err := kafka.DialContext(ctx, "tcp", bootstrap)
	if err != nil {
		t.Fatalf("[kafka] dial: %v", err)
	}
	defer conn.Close()
	parts, err := conn.ReadPartitions(topic)
	if err != nil {
		t.Fatalf("[kafka] partitions for %q: %v", topic, err)
	}
	return len(parts)
}

func ReadOneProto[T proto.Message](t *testing.T, bootstrap, topic, group string, timeout time.Duration, dst T) (T, bool) {
	t.Helper()
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{bootstrap},
		GroupID:     group,
		Topic:       topic,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	defer r.Close()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	msg, err := r.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			var zero T
			return zero, false
		}
		t.Fatalf("[kafka] read %s: %v", topic, err)
	}
	if err := proto.Unmarshal(msg.Value, dst); err != nil {
		t.Fatalf("[kafka] unmarshal: %v", err)
	}
	return dst, true
}

func RandTopic(prefix string) string {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<40))
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("%s-%d", prefix, n.Int64())
}
