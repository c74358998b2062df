package mqttbus

import (
	"context"
	"fmt"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/osdk_bridge/internal/bus"
	"github.com/relabs-tech/osdk_bridge/internal/bus/mqttbus/mqtttest"
)

type addReq struct {
	A int `json:"a"`
	B int `json:"b"`
}

type addRes struct {
	Sum int `json:"sum"`
}

type sample struct {
	Data uint8 `json:"data"`
}

func callCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPublishUsesPrefixAndLatch(t *testing.T) {
	broker := mqtttest.Start(t)
	b := New(broker.Connect(t, "node"), "dji_osdk_ros")

	require.NoError(t, b.Advertise("flight_status", &sample{}, false))
	require.NoError(t, b.Advertise("local_frame_ref", &sample{}, true))
	require.NoError(t, b.Publish("flight_status", &sample{Data: 2}))
	require.NoError(t, b.Publish("local_frame_ref", &sample{Data: 1}))

	require.Eventually(t, func() bool {
		return len(broker.Published("dji_osdk_ros/flight_status")) == 1 &&
			len(broker.Published("dji_osdk_ros/local_frame_ref")) == 1
	}, 2*time.Second, 5*time.Millisecond)
	msgs := broker.Published("dji_osdk_ros/flight_status")
	assert.JSONEq(t, `{"data":2}`, string(msgs[0].Payload))
	assert.False(t, msgs[0].Retained)
	assert.True(t, broker.Published("dji_osdk_ros/local_frame_ref")[0].Retained)

	// a late subscriber only gets the latched topic
	got := make(chan mqtt.Message, 4)
	late := broker.Connect(t, "late")
	token := late.Subscribe("dji_osdk_ros/#", 0, func(_ mqtt.Client, m mqtt.Message) { got <- m })
	require.True(t, token.WaitTimeout(2*time.Second))
	require.NoError(t, token.Error())

	select {
	case m := <-got:
		assert.Equal(t, "dji_osdk_ros/local_frame_ref", m.Topic())
		assert.True(t, m.Retained())
		assert.JSONEq(t, `{"data":1}`, string(m.Payload()))
	case <-time.After(2 * time.Second):
		t.Fatal("latched message was not replayed")
	}
	select {
	case m := <-got:
		t.Fatalf("unexpected replay of %s", m.Topic())
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishRequiresAdvertise(t *testing.T) {
	b := New(mqtttest.Start(t).Connect(t, "node"), "p")
	assert.ErrorIs(t, b.Publish("nope", &sample{}), bus.ErrNotAdvertised)
	require.NoError(t, b.Advertise("x", &sample{}, false))
	assert.Error(t, b.Advertise("x", &sample{}, false))
}

func TestServiceRoundTrip(t *testing.T) {
	broker := mqtttest.Start(t)
	b := New(broker.Connect(t, "node"), "dji_osdk_ros")
	defer b.Close()

	require.NoError(t, b.Provide("add", nil, func(req *addReq) (*addRes, bool) {
		return &addRes{Sum: req.A + req.B}, true
	}))

	c := NewClient(broker.Connect(t, "caller"), "dji_osdk_ros")
	var res addRes
	require.NoError(t, c.Call(callCtx(t), "add", &addReq{A: 2, B: 3}, &res))
	assert.Equal(t, 5, res.Sum)

	require.Eventually(t, func() bool {
		return len(broker.Published("dji_osdk_ros/srv/add/request")) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestConcurrentCallsGetTheirOwnReplies(t *testing.T) {
	broker := mqtttest.Start(t)
	b := New(broker.Connect(t, "node"), "p")
	defer b.Close()

	require.NoError(t, b.Provide("add", nil, func(req *addReq) (*addRes, bool) {
		// later requests answer first
		time.Sleep(time.Duration(10-req.A) * time.Millisecond)
		return &addRes{Sum: req.A + req.B}, true
	}))

	c := NewClient(broker.Connect(t, "caller"), "p")
	ctx := callCtx(t)
	errs := make(chan error, 5)
	for i := range 5 {
		go func() {
			var res addRes
			err := c.Call(ctx, "add", &addReq{A: i, B: 100}, &res)
			if err == nil && res.Sum != i+100 {
				err = fmt.Errorf("call %d got %d", i, res.Sum)
			}
			errs <- err
		}()
	}
	for range 5 {
		assert.NoError(t, <-errs)
	}
}

func TestServiceRejected(t *testing.T) {
	broker := mqtttest.Start(t)
	b := New(broker.Connect(t, "node"), "p")
	defer b.Close()

	require.NoError(t, b.Provide("never", nil, func(*addReq) (*addRes, bool) { return nil, false }))

	c := NewClient(broker.Connect(t, "caller"), "p")
	err := c.Call(callCtx(t), "never", &addReq{}, nil)
	assert.ErrorIs(t, err, ErrRejected)
}

func TestCallTimesOutWithoutProvider(t *testing.T) {
	c := NewClient(mqtttest.Start(t).Connect(t, "caller"), "p")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.Call(ctx, "missing", &addReq{}, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMalformedBodyIsReported(t *testing.T) {
	broker := mqtttest.Start(t)
	b := New(broker.Connect(t, "node"), "p")
	defer b.Close()
	require.NoError(t, b.Provide("add", nil, func(req *addReq) (*addRes, bool) { return &addRes{}, true }))

	c := NewClient(broker.Connect(t, "caller"), "p")
	_, err := c.CallRaw(callCtx(t), "add", []byte(`{"a":"x"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request")
}

func TestProvideRejectsBadCallback(t *testing.T) {
	b := New(mqtttest.Start(t).Connect(t, "node"), "p")
	assert.Error(t, b.Provide("bad", nil, func(int) bool { return true }))
}

func TestCloseStopsServing(t *testing.T) {
	broker := mqtttest.Start(t)
	b := New(broker.Connect(t, "node"), "p")
	require.NoError(t, b.Provide("add", nil, func(req *addReq) (*addRes, bool) { return &addRes{}, true }))
	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.Publish("x", &sample{}), bus.ErrClosed)

	c := NewClient(broker.Connect(t, "caller"), "p")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Call(ctx, "add", &addReq{}, nil), context.DeadlineExceeded)
}

func TestRequestIDsAreULIDs(t *testing.T) {
	a, b := newRequestID(), newRequestID()
	_, err := ulid.Parse(a)
	require.NoError(t, err)
	assert.Less(t, a, b)
}
