package treeviewer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/LukasParke/treeviewer/projection"
	"github.com/LukasParke/treeviewer/protocol"
	"github.com/LukasParke/treeviewer/treesitter"
)

var errStaleNode = errors.New("node is not part of the current tree")

// nodeHandle is what a node ID sent to the client stands for.
type nodeHandle struct {
	node          projection.Node
	uri           protocol.DocumentURI
	showPositions bool
}

// handleTable hands out node IDs. IDs are scoped to a tree generation:
// once a newer tree of the same document is handed out, the IDs of the
// older one stop resolving.
type handleTable struct {
	mu          sync.Mutex
	generations map[treesitter.DocumentID]uint64
	nodes       map[string]nodeHandle
}

func newHandleTable() *handleTable {
	return &handleTable{
		generations: make(map[treesitter.DocumentID]uint64),
		nodes:       make(map[string]nodeHandle),
	}
}

func (t *handleTable) put(h nodeHandle) string {
	tree := h.node.Syntax().Tree()
	doc, gen := tree.Document(), tree.Generation()
	id := handleID(h.node, gen)

	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.generations[doc]; !ok || prev != gen {
		if ok && prev > gen {
			return id
		}
		for k, v := range t.nodes {
			if v.node.Syntax().Tree().Document() == doc {
				delete(t.nodes, k)
			}
		}
		t.generations[doc] = gen
	}
	t.nodes[id] = h
	return id
}

func (t *handleTable) get(id string) (nodeHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.nodes[id]
	if !ok {
		return nodeHandle{}, fmt.Errorf("%w: %q", errStaleNode, id)
	}
	return h, nil
}

func (t *handleTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.nodes)
}

// handleID encodes the generation and node identity. A terminal shares its
// syntax node with its parent, so it gets its own suffix.
func handleID(n projection.Node, gen uint64) string {
	id := fmt.Sprintf("%d.%x", gen, n.Syntax().ID())
	if _, ok := n.(*projection.Terminal); ok {
		id += ".t"
	}
	return id
}
