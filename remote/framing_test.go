package remote_test

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coerce-rs/coerce-go/remote"
)

func TestFraming_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := remote.NewFrameWriter(&buf)
	r := remote.NewFrameReader(&buf)

	frames := [][]byte{
		[]byte("hello"),
		[]byte(""),
		bytes.Repeat([]byte{0xAB}, 4096),
	}

	for _, f := range frames {
		require.NoError(t, w.WriteFrame(f))
	}
	for _, want := range frames {
		got, err := r.ReadFrame()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestCodec_JSONRoundTrip(t *testing.T) {
	codec := remote.JSONCodec{}

	events := []interface{}{
		remote.HandshakeEvent{NodeID: 7, NodeTag: "a", Nodes: []remote.RemoteNode{{ID: 1, Addr: "x:1"}}},
		remote.HandshakeAckEvent{NodeID: 7, NodeTag: "a"},
		remote.PingEvent{Correlation: 42},
		remote.PongEvent{Correlation: 42},
		remote.MessageEvent{Correlation: "c1", HandlerName: "h", Recipient: "r", Payload: []byte(`{"x":1}`)},
		remote.ResultEvent{Correlation: "c1", Payload: []byte(`{"ok":true}`)},
	}

	for _, event := range events {
		raw, err := codec.Encode(event)
		require.NoError(t, err)

		out := newZeroOf(event)
		require.NoError(t, codec.Decode(raw, out))
		assert.Equal(t, event, reflect.ValueOf(out).Elem().Interface())
	}
}

func newZeroOf(v interface{}) interface{} {
	switch v.(type) {
	case remote.HandshakeEvent:
		return &remote.HandshakeEvent{}
	case remote.HandshakeAckEvent:
		return &remote.HandshakeAckEvent{}
	case remote.PingEvent:
		return &remote.PingEvent{}
	case remote.PongEvent:
		return &remote.PongEvent{}
	case remote.MessageEvent:
		return &remote.MessageEvent{}
	case remote.ResultEvent:
		return &remote.ResultEvent{}
	default:
		panic("unhandled event type in test")
	}
}
