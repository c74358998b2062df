// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package mqttbus carries the vehicle node over an MQTT broker.
//
// Telemetry goes to <prefix>/<topic> as JSON. A service listens on
// <prefix>/srv/<name>/request and answers each request on
// <prefix>/srv/<name>/response/<request id>.
package mqttbus

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/oklog/ulid/v2"

	"github.com/relabs-tech/osdk_bridge/internal/bus"
)

const (
	telemetryQoS = 0
	serviceQoS   = 1
)

// ErrRejected is returned by Client.Call when the provider could not handle the request.
var ErrRejected = errors.New("mqttbus: request rejected")

type request struct {
	ID   string          `json:"id"`
	Body json.RawMessage `json:"body"`
}

type response struct {
	ID    string          `json:"id"`
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Body  json.RawMessage `json:"body,omitempty"`
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func newRequestID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Connect dials broker and returns a connected paho client.
func Connect(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqttbus: connect %s: %w", broker, token.Error())
	}
	log.Printf("mqttbus: connected to MQTT broker at %s as %s", broker, clientID)
	return client, nil
}

// TopicName is the MQTT topic a bus topic is published on.
func TopicName(prefix, topic string) string {
	return prefix + "/" + topic
}

func requestTopic(prefix, name string) string {
	return prefix + "/srv/" + name + "/request"
}

func responseTopic(prefix, name, id string) string {
	return prefix + "/srv/" + name + "/response/" + id
}

// Bus is the providing side: it publishes telemetry and serves requests.
type Bus struct {
	client mqtt.Client
	prefix string

	mu       sync.Mutex
	latched  map[string]bool
	services map[string]*bus.Callback
	wg       sync.WaitGroup
	closed   bool
}

var _ bus.Bus = (*Bus)(nil)

// New wraps a connected client. The bus owns the client and disconnects it on Close.
func New(client mqtt.Client, prefix string) *Bus {
	return &Bus{
		client:   client,
		prefix:   prefix,
		latched:  make(map[string]bool),
		services: make(map[string]*bus.Callback),
	}
}

func (b *Bus) Advertise(topic string, prototype any, latch bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return bus.ErrClosed
	}
	if _, ok := b.latched[topic]; ok {
		return fmt.Errorf("mqttbus: topic %s advertised twice", topic)
	}
	b.latched[topic] = latch
	return nil
}

func (b *Bus) Publish(topic string, msg any) error {
	b.mu.Lock()
	latch, ok := b.latched[topic]
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return bus.ErrClosed
	}
	if !ok {
		return fmt.Errorf("%w: %s", bus.ErrNotAdvertised, topic)
	}

	payload, err := bus.Marshal(msg)
	if err != nil {
		return fmt.Errorf("mqttbus: marshal %s: %w", topic, err)
	}
	token := b.client.Publish(TopicName(b.prefix, topic), telemetryQoS, latch, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqttbus: publish %s: %w", topic, err)
	}
	return nil
}

func (b *Bus) Provide(name string, srv any, callback any) error {
	cb, err := bus.NewCallback(callback)
	if err != nil {
		return fmt.Errorf("mqttbus: service %s: %w", name, err)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return bus.ErrClosed
	}
	if _, ok := b.services[name]; ok {
		b.mu.Unlock()
		return fmt.Errorf("mqttbus: service %s provided twice", name)
	}
	b.services[name] = cb
	b.mu.Unlock()

	topic := requestTopic(b.prefix, name)
	token := b.client.Subscribe(topic, serviceQoS, func(_ mqtt.Client, m mqtt.Message) {
		payload := append([]byte(nil), m.Payload()...)
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return
		}
		b.wg.Add(1)
		b.mu.Unlock()
		// SDK calls can block for seconds; keep paho's router free.
		go func() {
			defer b.wg.Done()
			b.serve(name, cb, payload)
		}()
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqttbus: subscribe %s: %w", topic, err)
	}
	log.Printf("mqttbus: serving %s", topic)
	return nil
}

func (b *Bus) serve(name string, cb *bus.Callback, payload []byte) {
	var req request
	if err := bus.Unmarshal(payload, &req); err != nil || req.ID == "" {
		log.Printf("mqttbus: %s: malformed request dropped: %v", name, err)
		return
	}

	res := response{ID: req.ID}
	in := cb.NewRequest()
	if len(req.Body) > 0 {
		if err := bus.Unmarshal(req.Body, in); err != nil {
			res.Error = fmt.Sprintf("decode request: %v", err)
			b.reply(name, res)
			return
		}
	}

	out, ok, err := cb.Invoke(in)
	if err != nil {
		res.Error = err.Error()
		b.reply(name, res)
		return
	}
	body, err := bus.Marshal(out)
	if err != nil {
		res.Error = fmt.Sprintf("encode response: %v", err)
		b.reply(name, res)
		return
	}
	res.OK = ok
	res.Body = body
	b.reply(name, res)
}

func (b *Bus) reply(name string, res response) {
	payload, err := bus.Marshal(res)
	if err != nil {
		log.Printf("mqttbus: %s: encode reply: %v", name, err)
		return
	}
	token := b.client.Publish(responseTopic(b.prefix, name, res.ID), serviceQoS, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		log.Printf("mqttbus: %s: reply %s: %v", name, res.ID, err)
	}
}

// Close stops serving, waits for in-flight requests and disconnects.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	topics := make([]string, 0, len(b.services))
	for name := range b.services {
		topics = append(topics, requestTopic(b.prefix, name))
	}
	b.mu.Unlock()

	if len(topics) > 0 {
		b.client.Unsubscribe(topics...).Wait()
	}
	b.wg.Wait()
	b.client.Disconnect(250)
	log.Println("mqttbus: closed")
	return nil
}

// Client is the requesting side of the services.
type Client struct {
	client mqtt.Client
	prefix string
}

func NewClient(client mqtt.Client, prefix string) *Client {
	return &Client{client: client, prefix: prefix}
}

// Call sends req to service name and decodes the answer into res.
func (c *Client) Call(ctx context.Context, name string, req, res any) error {
	body, err := bus.Marshal(req)
	if err != nil {
		return fmt.Errorf("mqttbus: %s: encode request: %w", name, err)
	}
	out, err := c.CallRaw(ctx, name, body)
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}
	if err := bus.Unmarshal(out, res); err != nil {
		return fmt.Errorf("mqttbus: %s: decode response: %w", name, err)
	}
	return nil
}

// CallRaw sends an already encoded request body and returns the encoded response body.
func (c *Client) CallRaw(ctx context.Context, name string, body []byte) ([]byte, error) {
	id := newRequestID()
	if len(body) == 0 {
		body = []byte("{}")
	}
	payload, err := bus.Marshal(request{ID: id, Body: body})
	if err != nil {
		return nil, fmt.Errorf("mqttbus: %s: encode request: %w", name, err)
	}

	replies := make(chan []byte, 1)
	respTopic := responseTopic(c.prefix, name, id)
	token := c.client.Subscribe(respTopic, serviceQoS, func(_ mqtt.Client, m mqtt.Message) {
		select {
		case replies <- append([]byte(nil), m.Payload()...):
		default:
		}
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqttbus: subscribe %s: %w", respTopic, err)
	}
	defer c.client.Unsubscribe(respTopic)

	token = c.client.Publish(requestTopic(c.prefix, name), serviceQoS, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqttbus: %s: send request: %w", name, err)
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("mqttbus: %s: %w", name, ctx.Err())
	case raw := <-replies:
		var res response
		if err := bus.Unmarshal(raw, &res); err != nil {
			return nil, fmt.Errorf("mqttbus: %s: decode reply: %w", name, err)
		}
		if res.Error != "" {
			return nil, fmt.Errorf("mqttbus: %s: %s", name, res.Error)
		}
		if !res.OK {
			return res.Body, fmt.Errorf("%w: %s", ErrRejected, name)
		}
		return res.Body, nil
	}
}
