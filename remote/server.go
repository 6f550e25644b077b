package remote

import (
	"net"

	"github.com/coerce-rs/coerce-go/internal/log"

	"github.com/coerce-rs/coerce-go/actor"
)

// Listener accepts inbound peer connections and hands each one to a
// freshly spawned, already-connected RemoteClient (spec §4.2's state
// machine applies identically to both the dialing and accepting side once
// a socket exists).
type Listener struct {
	ln       net.Listener
	engine   *actor.Engine
	self     RemoteNode
	registry *actor.PID
	codec    Codec
	config   Config
	handlers *HandlerRegistry
}

// Listen starts accepting connections on addr. Call Serve to run the
// accept loop; call Close to stop it.
func Listen(addr string, engine *actor.Engine, self RemoteNode, registry *actor.PID, codec Codec, config Config, handlers *HandlerRegistry) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{
		ln:       ln,
		engine:   engine,
		self:     self,
		registry: registry,
		codec:    codec,
		config:   config,
		handlers: handlers,
	}, nil
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

func (l *Listener) Close() error { return l.ln.Close() }

// Serve runs the accept loop until Close is called. Grounded on
// server/websocket.go's Accept-loop-spawns-a-handler-per-connection shape,
// adapted here from an HTTP upgrade to a raw framed TCP session.
func (l *Listener) Serve() {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			log.Printf("remote: accept loop exiting: %v\n", err)
			return
		}

		pid := l.engine.Spawn(actor.NewProps(
			NewRemoteClient(l.self, RemoteNode{}, "", l.registry, l.codec, l.config, l.handlers),
		))
		if pid == nil {
			_ = conn.Close()
			continue
		}
		l.engine.Send(pid, Adopt{Conn: conn}, nil)
	}
}
