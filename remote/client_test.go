package remote_test

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/coerce-rs/coerce-go/actor"
	"github.com/coerce-rs/coerce-go/remote"
)

func fastConfig() remote.Config {
	cfg := remote.DefaultConfig()
	cfg.ReconnectDelay = 30 * time.Millisecond
	cfg.PingInterval = 50 * time.Millisecond
	cfg.IdentityWaitTimeout = time.Second
	cfg.DialTimeout = 200 * time.Millisecond
	cfg.CallTimeout = time.Second
	cfg.QuarantineThreshold = 100
	return cfg
}

type echoPayload struct {
	Value string `json:"value"`
}

func TestRemoteClient_HandshakeThenRegistryRoutedWriteIsObserved(t *testing.T) {
	defer goleak.VerifyNone(t)

	recv := make(chan string, 1)
	handlers := remote.NewHandlerRegistry()
	handlers.Register("record", func(payload []byte) ([]byte, error) {
		var p echoPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		recv <- p.Value
		return nil, nil
	})

	engineB := actor.NewEngine()
	nodeB := remote.RemoteNode{ID: 2, Tag: "b"}
	registryB := engineB.Spawn(actor.NewProps(remote.NewRegistry(nodeB, remote.JSONCodec{}, fastConfig(), handlers)))
	ln, err := remote.Listen("127.0.0.1:0", engineB, nodeB, registryB, remote.JSONCodec{}, fastConfig(), handlers)
	require.NoError(t, err)
	defer ln.Close()
	go ln.Serve()

	engineA := actor.NewEngine()
	nodeA := remote.RemoteNode{ID: 1, Tag: "a"}
	registryA := engineA.Spawn(actor.NewProps(remote.NewRegistry(nodeA, remote.JSONCodec{}, fastConfig(), nil)))
	require.NotNil(t, registryA)

	_, err = engineA.Ask(registryA, remote.RegisterNodes{
		Nodes: []remote.RemoteNode{{ID: nodeB.ID, Addr: ln.Addr().String()}},
	}, 2*time.Second)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		reply, err := engineA.Ask(registryA, remote.GetNodes{}, time.Second)
		if err != nil {
			return false
		}
		nodes, _ := reply.([]remote.RemoteNode)
		return len(nodes) == 1
	}, 2*time.Second, 10*time.Millisecond)

	engineA.Send(registryA, remote.ClientWrite{
		NodeID:      nodeB.ID,
		HandlerName: "record",
		Payload:     echoPayload{Value: "hi"},
	}, nil)

	select {
	case value := <-recv:
		assert.Equal(t, "hi", value)
	case <-time.After(2 * time.Second):
		t.Fatal("peer never observed the routed write")
	}

	engineA.Shutdown(time.Second)
	engineB.Shutdown(time.Second)
}

func TestRemoteClient_BeginHandshakeConcurrentWaitersBothResolve(t *testing.T) {
	defer goleak.VerifyNone(t)

	engineB := actor.NewEngine()
	nodeB := remote.RemoteNode{ID: 20, Tag: "b"}
	registryB := engineB.Spawn(actor.NewProps(remote.NewRegistry(nodeB, remote.JSONCodec{}, fastConfig(), nil)))
	ln, err := remote.Listen("127.0.0.1:0", engineB, nodeB, registryB, remote.JSONCodec{}, fastConfig(), nil)
	require.NoError(t, err)
	defer ln.Close()
	go ln.Serve()

	engineA := actor.NewEngine()
	nodeA := remote.RemoteNode{ID: 10, Tag: "a"}
	registryA := engineA.Spawn(actor.NewProps(remote.NewRegistry(nodeA, remote.JSONCodec{}, fastConfig(), nil)))
	clientPID := engineA.Spawn(actor.NewProps(remote.NewRemoteClient(nodeA, nodeB, ln.Addr().String(), registryA, remote.JSONCodec{}, fastConfig(), nil)))
	require.NotNil(t, clientPID)

	require.Eventually(t, func() bool {
		s, err := engineA.Ask(clientPID, remote.StatsRequest{}, time.Second)
		if err != nil {
			return false
		}
		stats, _ := s.(remote.Stats)
		return stats.State == remote.StateConnected
	}, 2*time.Second, 10*time.Millisecond)

	type result struct {
		v   interface{}
		err error
	}
	results := make(chan result, 2)
	for i := 0; i < 2; i++ {
		go func() {
			v, err := engineA.Ask(clientPID, remote.BeginHandshake{}, 2*time.Second)
			results <- result{v, err}
		}()
	}

	for i := 0; i < 2; i++ {
		r := <-results
		assert.NoError(t, r.err)
	}

	engineA.Shutdown(time.Second)
	engineB.Shutdown(time.Second)
}

func TestRemoteClient_BuffersWritesUntilConnectedThenDeliversInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Grab a free port, then release it: the client dials it while
	// nothing is listening (spec §8 scenario 3: Idle{attempts} grows on
	// each failure) before the peer comes up (scenario 3/4: buffered
	// writes are observed in order once reachable).
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := probe.Addr().String()
	require.NoError(t, probe.Close())

	var received []string
	handlers := remote.NewHandlerRegistry()
	recv := make(chan string, 8)
	handlers.Register("record", func(payload []byte) ([]byte, error) {
		var p echoPayload
		if err := json.Unmarshal(payload, &p); err == nil {
			recv <- p.Value
		}
		return nil, nil
	})

	engineA := actor.NewEngine()
	nodeA := remote.RemoteNode{ID: 100, Tag: "a"}
	registryA := engineA.Spawn(actor.NewProps(remote.NewRegistry(nodeA, remote.JSONCodec{}, fastConfig(), nil)))
	nodeB := remote.RemoteNode{ID: 200, Tag: "b"}
	clientPID := engineA.Spawn(actor.NewProps(remote.NewRemoteClient(nodeA, nodeB, addr, registryA, remote.JSONCodec{}, fastConfig(), nil)))
	require.NotNil(t, clientPID)

	// Let a couple of connect attempts fail while nothing is listening.
	time.Sleep(120 * time.Millisecond)

	statsAny, err := engineA.Ask(clientPID, remote.StatsRequest{}, time.Second)
	require.NoError(t, err)
	stats := statsAny.(remote.Stats)
	assert.GreaterOrEqual(t, stats.Attempts, uint32(1))

	engineA.Send(clientPID, remote.Write{HandlerName: "record", Payload: echoPayload{Value: "first"}}, nil)
	engineA.Send(clientPID, remote.Write{HandlerName: "record", Payload: echoPayload{Value: "second"}}, nil)

	engineB := actor.NewEngine()
	registryB := engineB.Spawn(actor.NewProps(remote.NewRegistry(nodeB, remote.JSONCodec{}, fastConfig(), handlers)))
	ln, err := remote.Listen(addr, engineB, nodeB, registryB, remote.JSONCodec{}, fastConfig(), handlers)
	require.NoError(t, err)
	defer ln.Close()
	go ln.Serve()

	received = append(received, <-recv)
	received = append(received, <-recv)
	assert.Equal(t, []string{"first", "second"}, received)

	engineA.Shutdown(time.Second)
	engineB.Shutdown(time.Second)
}
