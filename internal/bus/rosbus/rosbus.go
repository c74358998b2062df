// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package rosbus carries the vehicle node over ROS1 through goroslib.
package rosbus

import (
	"fmt"
	"log"
	"sync"

	"github.com/bluenviron/goroslib/v2"

	"github.com/relabs-tech/osdk_bridge/internal/bus"
)

// Config selects the ROS master and names.
type Config struct {
	NodeName      string
	MasterAddress string
	// Namespace is prepended to topic names; services stay global.
	Namespace string
}

// Bus is a goroslib node with one publisher per topic and one provider per service.
type Bus struct {
	node *goroslib.Node
	ns   string

	mu        sync.Mutex
	pubs      map[string]*goroslib.Publisher
	providers map[string]*goroslib.ServiceProvider
	closed    bool
}

var _ bus.Bus = (*Bus)(nil)

func New(cfg Config) (*Bus, error) {
	n, err := goroslib.NewNode(goroslib.NodeConf{
		Name:          cfg.NodeName,
		MasterAddress: cfg.MasterAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("rosbus: node %s: %w", cfg.NodeName, err)
	}
	log.Printf("rosbus: node %s registered with master %s", cfg.NodeName, cfg.MasterAddress)
	return &Bus{
		node:      n,
		ns:        cfg.Namespace,
		pubs:      make(map[string]*goroslib.Publisher),
		providers: make(map[string]*goroslib.ServiceProvider),
	}, nil
}

// TopicName is the ROS topic a bus topic is published on.
func TopicName(namespace, topic string) string {
	if namespace == "" {
		return topic
	}
	return namespace + "/" + topic
}

func (b *Bus) Advertise(topic string, prototype any, latch bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return bus.ErrClosed
	}
	if _, ok := b.pubs[topic]; ok {
		return fmt.Errorf("rosbus: topic %s advertised twice", topic)
	}
	pub, err := goroslib.NewPublisher(goroslib.PublisherConf{
		Node:  b.node,
		Topic: TopicName(b.ns, topic),
		Msg:   prototype,
		Latch: latch,
	})
	if err != nil {
		return fmt.Errorf("rosbus: advertise %s: %w", topic, err)
	}
	b.pubs[topic] = pub
	return nil
}

func (b *Bus) Publish(topic string, msg any) error {
	b.mu.Lock()
	pub, ok := b.pubs[topic]
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return bus.ErrClosed
	}
	if !ok {
		return fmt.Errorf("%w: %s", bus.ErrNotAdvertised, topic)
	}
	pub.Write(msg)
	return nil
}

// Provide registers srv with goroslib, which checks callback against it.
func (b *Bus) Provide(name string, srv any, callback any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return bus.ErrClosed
	}
	if _, ok := b.providers[name]; ok {
		return fmt.Errorf("rosbus: service %s provided twice", name)
	}
	sp, err := goroslib.NewServiceProvider(goroslib.ServiceProviderConf{
		Node:     b.node,
		Name:     name,
		Srv:      srv,
		Callback: callback,
	})
	if err != nil {
		return fmt.Errorf("rosbus: provide %s: %w", name, err)
	}
	b.providers[name] = sp
	return nil
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, sp := range b.providers {
		sp.Close()
	}
	for _, pub := range b.pubs {
		pub.Close()
	}
	b.node.Close()
	log.Println("rosbus: closed")
	return nil
}
