// Package verse is a same-process stand-in for the Verse wire
// transport that spec.md treats as an external collaborator (§1, §6):
// it is not a reimplementation of that wire protocol, just enough to
// let cmd/purple and the fixture loader drive the full
// create/acknowledge/sync pipeline without a live connection.
package verse

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/rakunlabs/purple/internal/engine/node"
	purplesync "github.com/rakunlabs/purple/internal/sync"
)

type snapshot struct {
	name      string
	tagGroups []node.TagGroup
	content   any
}

// Loopback implements sync.Transport and sync.RemoteView entirely
// in-memory. CreateNode acknowledges synchronously and snapshots the
// node's content as the remote's known state; later Send calls are
// recorded but never replayed into that snapshot, so a node whose
// content changes after creation keeps reporting out-of-sync until
// the process restarts. That asymmetry is fine for fixtures and local
// development, which is the only thing this type is for.
type Loopback struct {
	mu     sync.Mutex
	nextID int
	known  map[node.ID]snapshot
	sent   []purplesync.Command

	ack    func(kind node.Kind, id node.ID) bool
	logger *slog.Logger
}

// NewLoopback builds a Loopback that calls ack — typically
// (*sync.Synchronizer).OnCreateAck — synchronously whenever it mints a
// new node id.
func NewLoopback(ack func(kind node.Kind, id node.ID) bool, logger *slog.Logger) *Loopback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loopback{
		known:  make(map[node.ID]snapshot),
		ack:    ack,
		logger: logger,
	}
}

// CreateNode implements sync.Transport.
func (l *Loopback) CreateNode(n *node.Node) {
	l.mu.Lock()
	l.nextID++
	id := node.ID(fmt.Sprintf("local-%s-%d", n.Type, l.nextID))
	l.known[id] = snapshot{
		name:      n.Name,
		tagGroups: append([]node.TagGroup(nil), n.TagGroups...),
		content:   n.Content,
	}
	l.mu.Unlock()

	l.logger.Debug("loopback: node created", "id", id, "kind", n.Type, "name", n.Name)
	l.ack(n.Type, id)
}

// Send implements sync.Transport.
func (l *Loopback) Send(cmd purplesync.Command) {
	l.mu.Lock()
	l.sent = append(l.sent, cmd)
	l.mu.Unlock()
	l.logger.Debug("loopback: command sent", "node", cmd.NodeID, "kind", cmd.Kind, "op", cmd.Op)
}

// Head implements sync.RemoteView.
func (l *Loopback) Head(id node.ID) (string, []node.TagGroup, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.known[id]
	return s.name, s.tagGroups, ok
}

// Content implements sync.RemoteView.
func (l *Loopback) Content(id node.ID) (any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.known[id]
	return s.content, ok
}

// Sent returns every command recorded so far, oldest first, for tests
// and the debug server.
func (l *Loopback) Sent() []purplesync.Command {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]purplesync.Command(nil), l.sent...)
}
