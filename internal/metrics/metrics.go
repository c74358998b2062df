// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package metrics exposes the vehicle node counters to Prometheus.
package metrics

import (
	"errors"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "osdk_bridge"

// Node holds the collectors updated by the vehicle node.
type Node struct {
	published     *prometheus.CounterVec
	publishErrors *prometheus.CounterVec
	serviceCalls  *prometheus.CounterVec
	packages      *prometheus.CounterVec
	alignment     prometheus.Gauge
	alignRetries  prometheus.Gauge
}

// New creates the collectors and registers them with reg (the default registerer when nil).
// Collectors already registered under the same names are reused.
func New(reg prometheus.Registerer) (*Node, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	n := &Node{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "bus", Name: "published_total",
			Help: "Messages published per topic.",
		}, []string{"topic"}),
		publishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "bus", Name: "publish_errors_total",
			Help: "Failed publishes per topic.",
		}, []string{"topic"}),
		serviceCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "bus", Name: "service_calls_total",
			Help: "Service calls per service and result.",
		}, []string{"service", "result"}),
		packages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "fc", Name: "packages_total",
			Help: "Telemetry packages received from the flight controller per rate.",
		}, []string{"freq"}),
		alignment: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "fc", Name: "time_alignment_state",
			Help: "0 unaligned, 1 aligning, 2 aligned.",
		}),
		alignRetries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "fc", Name: "time_alignment_retries",
			Help: "Times the alignment was restarted because of drift.",
		}),
	}

	var err error
	if n.published, err = register(reg, n.published); err != nil {
		return nil, err
	}
	if n.publishErrors, err = register(reg, n.publishErrors); err != nil {
		return nil, err
	}
	if n.serviceCalls, err = register(reg, n.serviceCalls); err != nil {
		return nil, err
	}
	if n.packages, err = register(reg, n.packages); err != nil {
		return nil, err
	}
	if n.alignment, err = register(reg, n.alignment); err != nil {
		return nil, err
	}
	if n.alignRetries, err = register(reg, n.alignRetries); err != nil {
		return nil, err
	}
	return n, nil
}

// register returns the collector already registered under c's name when there is one.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (n *Node) Published(topic string) {
	n.published.WithLabelValues(topic).Inc()
}

func (n *Node) PublishFailed(topic string) {
	n.publishErrors.WithLabelValues(topic).Inc()
}

func (n *Node) ServiceCall(service string, ok bool) {
	result := "false"
	if ok {
		result = "true"
	}
	n.serviceCalls.WithLabelValues(service, result).Inc()
}

func (n *Node) Package(freq string) {
	n.packages.WithLabelValues(freq).Inc()
}

func (n *Node) Alignment(state int, retries int) {
	n.alignment.Set(float64(state))
	n.alignRetries.Set(float64(retries))
}

// Serve exposes /metrics on addr until the server fails. An empty addr disables it.
func Serve(addr string) error {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Printf("metrics: listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
