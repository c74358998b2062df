// Package mqtttest runs an embedded MQTT broker on a loopback port so the bus can be
// exercised through real paho clients.
package mqtttest

import (
	"bytes"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
)

const connectTimeout = 5 * time.Second

// Message is a publish the broker accepted.
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// Broker is a running embedded broker.
type Broker struct {
	// URL is the address paho clients dial.
	URL string

	server *mqtt.Server

	mu  sync.Mutex
	log []Message
}

// Start runs a broker until t ends.
func Start(t testing.TB) *Broker {
	t.Helper()

	addr := freeAddress(t)
	server := mqtt.New(&mqtt.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	b := &Broker{URL: "tcp://" + addr, server: server}

	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		t.Fatalf("mqtttest: auth hook: %v", err)
	}
	if err := server.AddHook(&recorder{broker: b}, nil); err != nil {
		t.Fatalf("mqtttest: recorder hook: %v", err)
	}
	if err := server.AddListener(listeners.NewTCP(listeners.Config{ID: "t1", Address: addr})); err != nil {
		t.Fatalf("mqtttest: listen %s: %v", addr, err)
	}
	if err := server.Serve(); err != nil {
		t.Fatalf("mqtttest: serve: %v", err)
	}
	t.Cleanup(func() { server.Close() })
	return b
}

func freeAddress(t testing.TB) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("mqtttest: pick port: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

// Connect returns a paho client connected to b, disconnected when t ends.
func (b *Broker) Connect(t testing.TB, clientID string) pahomqtt.Client {
	t.Helper()
	opts := pahomqtt.NewClientOptions().
		AddBroker(b.URL).
		SetClientID(clientID).
		SetConnectTimeout(connectTimeout)

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		t.Fatalf("mqtttest: %s: connect timed out", clientID)
	}
	if err := token.Error(); err != nil {
		t.Fatalf("mqtttest: %s: connect: %v", clientID, err)
	}
	t.Cleanup(func() {
		if client.IsConnected() {
			client.Disconnect(50)
		}
	})
	return client
}

// Published returns every message the broker accepted on topic, oldest first.
func (b *Broker) Published(topic string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Message
	for _, m := range b.log {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// recorder keeps a copy of every publish.
type recorder struct {
	mqtt.HookBase
	broker *Broker
}

func (h *recorder) ID() string { return "mqtttest-recorder" }

func (h *recorder) Provides(b byte) bool {
	return bytes.Contains([]byte{mqtt.OnPublished}, []byte{b})
}

func (h *recorder) OnPublished(cl *mqtt.Client, pk packets.Packet) {
	m := Message{
		Topic:    pk.TopicName,
		Payload:  append([]byte(nil), pk.Payload...),
		Retained: pk.FixedHeader.Retain,
	}
	h.broker.mu.Lock()
	h.broker.log = append(h.broker.log, m)
	h.broker.mu.Unlock()
}
