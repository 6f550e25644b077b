package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"golang.org/x/net/websocket"

	"github.com/coerce-rs/coerce-go/actor"
	"github.com/coerce-rs/coerce-go/internal/log"
)

const listNodesTimeout = 2 * time.Second

// HandleSubscribe upgrades an HTTP connection to a websocket and spawns
// a SubscriberConnection actor to own it, blocking until that actor
// signals it has torn down. Adapted from server/handlers.go's
// HandleSubscribe, simplified: SubscriberConnection has no room
// assignment to wait for, so there is no handlerDone channel — the
// handler instead blocks by reading from the connection itself until a
// read fails (the client disconnected, or the SubscriberConnection actor
// closed the connection while tearing down).
func (s *Server) HandleSubscribe() func(ws *websocket.Conn) {
	return func(ws *websocket.Conn) {
		connAddr := ws.RemoteAddr().String()

		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC recovered in HandleSubscribe for %s: %v\nStack trace:\n%s\n", connAddr, r, string(debug.Stack()))
				_ = ws.Close()
			}
		}()

		props := actor.NewProps(NewSubscriberConnectionProducer(SubscriberConnectionArgs{
			Conn:           ws,
			BroadcasterPID: s.broadcasterPID,
		}))
		pid := s.engine.Spawn(props)
		if pid == nil {
			log.Printf("HandleSubscribe: failed to spawn SubscriberConnection for %s\n", connAddr)
			_ = ws.Close()
			return
		}

		// Block the websocket handler goroutine (golang.org/x/net/websocket
		// closes the connection the moment this function returns) until a
		// read on the connection fails.
		for {
			if _, err := ws.Read(make([]byte, 1)); err != nil {
				return
			}
		}
	}
}

// HandleGetNodes answers GET /nodes by asking the NodeDirectory for its
// current view, mirroring server/handlers.go's HandleGetRooms
// Ask-then-type-switch pattern.
func (s *Server) HandleGetNodes() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("PANIC recovered in HandleGetNodes: %v\nStack trace:\n%s\n", rec, string(debug.Stack()))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		reply, err := s.engine.Ask(s.directoryPID, ListNodesRequest{}, listNodesTimeout)
		if err != nil {
			if errors.Is(err, actor.ErrTimeout) {
				http.Error(w, "Timeout querying node directory", http.StatusGatewayTimeout)
			} else {
				http.Error(w, "Error querying node directory", http.StatusInternalServerError)
			}
			return
		}

		switch v := reply.(type) {
		case NodeListResponse:
			data, marshalErr := json.Marshal(v)
			if marshalErr != nil {
				http.Error(w, "Error generating node list", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(data)
		case error:
			http.Error(w, "Error retrieving node list", http.StatusInternalServerError)
		default:
			http.Error(w, "Internal server error processing reply", http.StatusInternalServerError)
		}
	}
}

// HandleHealthCheck is a trivial liveness probe, identical in shape to
// server/handlers.go's HandleHealthCheck.
func HandleHealthCheck() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	}
}
