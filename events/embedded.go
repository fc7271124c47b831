package events

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// StartEmbeddedServer runs an in-process NATS server on a random port,
// for development and tests where no external broker is available.
// Returns the server and its client URL; the caller shuts it down.
func StartEmbeddedServer() (*server.Server, string, error) {
	opts := &server.Options{
		Port:   -1, // Random available port
		NoLog:  true,
		NoSigs: true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, "", fmt.Errorf("create embedded NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, "", fmt.Errorf("embedded NATS server not ready")
	}

	return ns, ns.ClientURL(), nil
}
