package gateway_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/coerce-rs/coerce-go/actor"
	"github.com/coerce-rs/coerce-go/gateway"
	"github.com/coerce-rs/coerce-go/remote"
)

func TestNodeDirectory_JoinQuarantineLeave(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine := actor.NewEngine()
	self := remote.RemoteNode{ID: 1, Addr: "localhost:6000", Tag: "seed"}
	pid := engine.Spawn(actor.NewProps(gateway.NewNodeDirectoryProducer(self)))
	require.NotNil(t, pid)

	peer := remote.RemoteNode{ID: 2, Addr: "localhost:6001", Tag: "peer"}
	engine.Send(pid, gateway.NodeJoined{Node: peer}, nil)

	reply, err := engine.Ask(pid, gateway.ListNodesRequest{}, time.Second)
	require.NoError(t, err)
	list := reply.(gateway.NodeListResponse)
	assert.Len(t, list.Nodes, 2)

	engine.Send(pid, gateway.NodeQuarantined{NodeID: peer.ID}, nil)
	reply, err = engine.Ask(pid, gateway.ListNodesRequest{}, time.Second)
	require.NoError(t, err)
	list = reply.(gateway.NodeListResponse)
	var sawQuarantined bool
	for _, v := range list.Nodes {
		if v.Node.ID == peer.ID {
			sawQuarantined = v.Quarantined
		}
	}
	assert.True(t, sawQuarantined)

	engine.Send(pid, gateway.NodeLeft{NodeID: peer.ID}, nil)
	reply, err = engine.Ask(pid, gateway.ListNodesRequest{}, time.Second)
	require.NoError(t, err)
	list = reply.(gateway.NodeListResponse)
	assert.Len(t, list.Nodes, 1)

	engine.Shutdown(time.Second)
}
