// Command actornode boots a single cluster node: an actor.Engine, a
// remote.Registry, a TCP listener accepting peer connections, and the
// gateway HTTP server. Mirrors main.go's boot sequence (config -> engine
// -> child actors -> http listen) generalized from one HTTP server to a
// TCP peer listener plus an HTTP gateway side by side.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coerce-rs/coerce-go/actor"
	"github.com/coerce-rs/coerce-go/config"
	"github.com/coerce-rs/coerce-go/gateway"
	"github.com/coerce-rs/coerce-go/internal/log"
	"github.com/coerce-rs/coerce-go/remote"
)

func main() {
	cfg := config.DefaultConfig()

	var (
		nodeTag     = flag.String("tag", "", "human-readable node tag")
		listenAddr  = flag.String("listen", cfg.ListenAddr, "address to accept peer connections on")
		gatewayAddr = flag.String("gateway", cfg.GatewayAddr, "address to serve the HTTP gateway on")
		seedAddr    = flag.String("seed", "", "address of a seed node to connect to on boot (empty for the first node in a cluster)")
	)
	flag.Parse()

	cfg.NodeTag = *nodeTag
	cfg.ListenAddr = *listenAddr
	cfg.GatewayAddr = *gatewayAddr
	cfg.SeedAddr = *seedAddr
	cfg.NodeID = remote.NodeID(rand.Uint64())

	self := remote.RemoteNode{ID: cfg.NodeID, Addr: cfg.ListenAddr, Tag: cfg.NodeTag}
	log.Printf("actornode: booting node %d (%s) tag=%q\n", self.ID, self.Addr, self.Tag)

	engine := actor.NewEngine()
	handlers := remote.NewHandlerRegistry()
	codec := remote.JSONCodec{}

	registryPID := engine.Spawn(actor.NewProps(remote.NewRegistry(self, codec, cfg.Remote, handlers)))
	if registryPID == nil {
		panic("actornode: failed to spawn registry")
	}

	gw := gateway.NewServer(engine, self, cfg.GatewayAddr)

	listener, err := remote.Listen(cfg.ListenAddr, engine, self, registryPID, codec, cfg.Remote, handlers)
	if err != nil {
		panic(fmt.Sprintf("actornode: failed to listen on %s: %v", cfg.ListenAddr, err))
	}
	go listener.Serve()
	log.Printf("actornode: accepting peer connections on %s\n", listener.Addr())

	if cfg.SeedAddr != "" {
		seedResult, err := engine.Ask(registryPID, remote.RegisterNodes{
			Nodes: []remote.RemoteNode{{Addr: cfg.SeedAddr}},
		}, cfg.Remote.DialTimeout+cfg.Remote.IdentityWaitTimeout+time.Second)
		if err != nil {
			log.Printf("actornode: seed connect did not complete: %v\n", err)
		} else if errResult, ok := seedResult.(error); ok && errResult != nil {
			log.Printf("actornode: seed connect reported errors: %v\n", errResult)
		} else {
			log.Printf("actornode: connected to seed %s\n", cfg.SeedAddr)
		}
	}

	go func() {
		if err := gw.ListenAndServe(); err != nil {
			log.Printf("actornode: gateway server stopped: %v\n", err)
		}
	}()
	log.Printf("actornode: gateway HTTP listening on %s\n", cfg.GatewayAddr)

	syncDone := make(chan struct{})
	go syncGatewayDirectory(engine, registryPID, gw, syncDone)
	defer close(syncDone)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Printf("actornode: shutting down\n")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = gw.Shutdown(shutdownCtx)
	_ = listener.Close()
	engine.Shutdown(5 * time.Second)
	log.Printf("actornode: shutdown complete\n")
}
