// Package session implements the boundary operations for PIR and OKVS.
//
// Every operation takes and returns plain bytes and handles, and every
// failure is a *status.Error whose code is what crosses the boundary.
// Output slices are freshly allocated and never retained by the Manager.
package session

import (
	"github.com/hashicorp/go-hclog"

	"github.com/mundrapranay/silhouette-db/internal/frodo"
	"github.com/mundrapranay/silhouette-db/internal/handle"
)

type pirServer struct {
	shard *frodo.Shard
}

type pirClient struct {
	base   *frodo.BaseParams
	common *frodo.CommonParams
}

// Manager owns all server and client state behind handles.
type Manager struct {
	servers *handle.Registry[*pirServer]
	clients *handle.Registry[*pirClient]
	logger  hclog.Logger
}

// NewManager returns an empty manager. A nil logger discards output.
func NewManager(logger hclog.Logger) *Manager {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Manager{
		servers: handle.NewRegistry[*pirServer](),
		clients: handle.NewRegistry[*pirClient](),
		logger:  logger.Named("session"),
	}
}

// LiveHandles returns the number of undestroyed server and client handles.
func (m *Manager) LiveHandles() (servers, clients int) {
	return m.servers.Len(), m.clients.Len()
}
