package actor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	. "github.com/coerce-rs/coerce-go/actor"
)

func TestRef_ClosingLastCloneTerminatesActor(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine := NewEngine()
	r := &recorder{}
	pid := engine.Spawn(NewProps(func() Actor { return r }))
	require.NotNil(t, pid)

	ref := NewRef[Actor](engine, pid)
	clone := ref.Clone()

	ref.Close()
	// One outstanding clone: actor must still be alive.
	time.Sleep(30 * time.Millisecond)
	_, err := engine.Ask(pid, Status{}, 200*time.Millisecond)
	require.NoError(t, err)

	clone.Close()
	require.Eventually(t, func() bool {
		_, err := engine.Ask(pid, Status{}, 50*time.Millisecond)
		return err != nil
	}, time.Second, 10*time.Millisecond)
}
