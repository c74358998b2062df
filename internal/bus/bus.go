// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bus is the middleware boundary of the vehicle node: topics are advertised once
// and then published to, services are provided with a typed callback.
//
// A service callback has the shape func(*Req) (*Res, bool), the same shape goroslib uses
// for its service providers. Returning false means the request could not be handled at
// all; an SDK failure is still a handled request with result=false in Res.
package bus

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrUnknownService = errors.New("bus: unknown service")
	ErrNotAdvertised  = errors.New("bus: topic not advertised")
	ErrClosed         = errors.New("bus: closed")
)

// Bus publishes telemetry and serves requests.
type Bus interface {
	// Advertise declares topic with a prototype of its message. A latched topic keeps its
	// last message for late subscribers.
	Advertise(topic string, prototype any, latch bool) error
	Publish(topic string, msg any) error
	// Provide registers a service. srv is the goroslib service definition,
	// callback is func(*Req) (*Res, bool).
	Provide(name string, srv any, callback any) error
	Close() error
}

// Callback is a validated service callback.
type Callback struct {
	fn  reflect.Value
	req reflect.Type
	res reflect.Type
}

// NewCallback checks that fn is a func(*Req) (*Res, bool) with struct Req and Res.
func NewCallback(fn any) (*Callback, error) {
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func || t.NumIn() != 1 || t.NumOut() != 2 {
		return nil, fmt.Errorf("bus: callback must be func(*Req) (*Res, bool), got %s", t)
	}
	in, out := t.In(0), t.Out(0)
	if in.Kind() != reflect.Pointer || in.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("bus: callback request must be a struct pointer, got %s", in)
	}
	if out.Kind() != reflect.Pointer || out.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("bus: callback response must be a struct pointer, got %s", out)
	}
	if t.Out(1).Kind() != reflect.Bool {
		return nil, fmt.Errorf("bus: callback must return bool as second value, got %s", t.Out(1))
	}
	return &Callback{fn: v, req: in.Elem(), res: out.Elem()}, nil
}

// NewRequest allocates a zero request for the callback.
func (c *Callback) NewRequest() any {
	return reflect.New(c.req).Interface()
}

// Invoke runs the callback. req must be a pointer to the request type.
func (c *Callback) Invoke(req any) (any, bool, error) {
	rv := reflect.ValueOf(req)
	if rv.Type() != reflect.PointerTo(c.req) {
		return nil, false, fmt.Errorf("bus: request type %s, want *%s", rv.Type(), c.req)
	}
	out := c.fn.Call([]reflect.Value{rv})
	ok := out[1].Bool()
	if out[0].IsNil() {
		return reflect.New(c.res).Interface(), ok, nil
	}
	return out[0].Interface(), ok, nil
}

// Multi fans every call out to several buses.
type Multi []Bus

func (m Multi) Advertise(topic string, prototype any, latch bool) error {
	var errs []error
	for _, b := range m {
		if err := b.Advertise(topic, prototype, latch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Publish(topic string, msg any) error {
	var errs []error
	for _, b := range m {
		if err := b.Publish(topic, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Provide(name string, srv any, callback any) error {
	var errs []error
	for _, b := range m {
		if err := b.Provide(name, srv, callback); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, b := range m {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
