package gateway

import (
	"context"
	"net/http"

	"golang.org/x/net/websocket"

	"github.com/coerce-rs/coerce-go/actor"
	"github.com/coerce-rs/coerce-go/internal/log"
	"github.com/coerce-rs/coerce-go/remote"
)

// Server is the gateway's HTTP front door: a thin wrapper around an
// actor.Engine plus the PIDs of its two gateway actors, mirroring the
// teacher's server.Server (which wraps an engine plus a
// RoomManager/Broadcaster PID pair). Unlike the teacher's Server it is
// built with its dependencies already resolved (no GetEngine()/
// GetRoomManagerPID() accessors returning nil-until-set fields) since
// every gateway actor is spawned synchronously before the HTTP server
// starts listening.
type Server struct {
	engine         *actor.Engine
	directoryPID   *actor.PID
	broadcasterPID *actor.PID
	httpServer     *http.Server
}

// NewServer spawns the NodeDirectory and EventBroadcaster actors and
// wires an http.ServeMux exposing /health, /nodes, and /subscribe.
func NewServer(engine *actor.Engine, self remote.RemoteNode, addr string) *Server {
	directoryPID := engine.Spawn(actor.NewProps(NewNodeDirectoryProducer(self)))
	broadcasterPID := engine.Spawn(actor.NewProps(NewEventBroadcasterProducer()))

	s := &Server{engine: engine, directoryPID: directoryPID, broadcasterPID: broadcasterPID}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", HandleHealthCheck())
	mux.HandleFunc("/nodes", s.HandleGetNodes())
	mux.Handle("/subscribe", websocket.Handler(s.HandleSubscribe()))

	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	return s
}

// DirectoryPID returns the PID of this gateway's NodeDirectory, so the
// node's boot sequence can forward remote.Registry membership
// notifications into it.
func (s *Server) DirectoryPID() *actor.PID { return s.directoryPID }

// BroadcasterPID returns the PID of this gateway's EventBroadcaster, so
// membership notifications forwarded into the directory can also be
// fanned out to subscribers.
func (s *Server) BroadcasterPID() *actor.PID { return s.broadcasterPID }

// ListenAndServe blocks serving HTTP until the server is shut down.
func (s *Server) ListenAndServe() error {
	log.Printf("gateway: listening on %s\n", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
