package bus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoReq struct{ In string }
type echoRes struct{ Out string }

func TestMemoryPublishAndLast(t *testing.T) {
	m := NewMemory()
	_, ok := m.Last("a")
	assert.False(t, ok)

	assert.ErrorIs(t, m.Publish("a", 1), ErrNotAdvertised)
	require.NoError(t, m.Advertise("a", 0, false))

	var got []any
	require.NoError(t, m.Subscribe("a", func(msg any) { got = append(got, msg) }))
	require.NoError(t, m.Publish("a", 1))
	require.NoError(t, m.Publish("a", 2))

	last, ok := m.Last("a")
	require.True(t, ok)
	assert.Equal(t, 2, last)
	assert.Equal(t, 2, m.Count("a"))
	assert.Equal(t, []any{1, 2}, got)
}

func TestMemoryLatchedReplay(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Advertise("ref", "", true))
	require.NoError(t, m.Publish("ref", "home"))

	var got any
	require.NoError(t, m.Subscribe("ref", func(msg any) { got = msg }))
	assert.Equal(t, "home", got)
}

func TestMemoryCall(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Provide("echo", nil, func(req *echoReq) (*echoRes, bool) {
		return &echoRes{Out: req.In}, true
	}))
	assert.Error(t, m.Provide("echo", nil, func(req *echoReq) (*echoRes, bool) { return nil, true }))

	res, ok, err := m.Call("echo", &echoReq{In: "hi"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, &echoRes{Out: "hi"}, res)

	_, _, err = m.Call("echo", &echoRes{})
	assert.Error(t, err)

	_, _, err = m.Call("missing", &echoReq{})
	assert.ErrorIs(t, err, ErrUnknownService)
}

func TestNewCallbackValidation(t *testing.T) {
	for name, fn := range map[string]any{
		"not a func":   42,
		"no bool":      func(*echoReq) (*echoRes, error) { return nil, nil },
		"value req":    func(echoReq) (*echoRes, bool) { return nil, true },
		"scalar reply": func(*echoReq) (*int, bool) { return nil, true },
	} {
		_, err := NewCallback(fn)
		assert.Error(t, err, name)
	}
}

type failing struct {
	*Memory
	err error
}

func (f *failing) Publish(string, any) error { return f.err }

func TestMultiJoinsErrors(t *testing.T) {
	good := NewMemory()
	bad := &failing{Memory: NewMemory(), err: errors.New("down")}
	multi := Multi{good, bad}

	require.NoError(t, multi.Advertise("t", 0, false))
	err := multi.Publish("t", 7)
	assert.ErrorContains(t, err, "down")

	last, ok := good.Last("t")
	require.True(t, ok)
	assert.Equal(t, 7, last)
	require.NoError(t, multi.Close())
}
