package codec

import (
	"github.com/OFFIS-RIT/nafstore/pkg/anchor"
	"github.com/OFFIS-RIT/nafstore/pkg/layer"
	"github.com/OFFIS-RIT/nafstore/pkg/naf"
)

// FlattenTree lists the nodes of t in pre-order. Edges of a parent are
// emitted in child order, which is the order RebuildTree restores.
func FlattenTree(t *naf.Tree) TreeRecord {
	rec := TreeRecord{
		Terminals:    []TerminalRecord{},
		NonTerminals: []NonTerminalRecord{},
		Edges:        []EdgeRecord{},
	}
	t.Root.Walk(func(n *naf.TreeNode) bool {
		if n.IsTerminal() {
			rec.Terminals = append(rec.Terminals, TerminalRecord{ID: n.ID, Anchor: termIDs(n.Span)})
			return false
		}
		rec.NonTerminals = append(rec.NonTerminals, NonTerminalRecord{ID: n.ID, Label: n.Label})
		for _, c := range n.Children {
			rec.Edges = append(rec.Edges, EdgeRecord{ID: c.EdgeID, From: c.ID, To: n.ID, Head: Flag(c.Head)})
		}
		return true
	})
	return rec
}

// RebuildTree reconstructs the forest described by rec. Every node without an
// incoming edge roots one tree; roots keep their materialization order
// (terminals first, then non-terminals) and children keep edge order.
func RebuildTree(rec TreeRecord, terms *anchor.Index[*naf.Term]) ([]*naf.Tree, error) {
	return rebuildTree(0, rec, terms)
}

func rebuildTree(ti int, rec TreeRecord, terms *anchor.Index[*naf.Term]) ([]*naf.Tree, error) {
	malformed := func(id, reason string) error {
		return &layer.MalformedTreeError{TreeIndex: ti, NodeID: id, Reason: reason}
	}

	n := len(rec.Terminals) + len(rec.NonTerminals)
	nodes := make(map[string]*naf.TreeNode, n)
	order := make([]string, 0, n)
	root := make(map[string]bool, n)

	add := func(node *naf.TreeNode) error {
		if _, dup := nodes[node.ID]; dup {
			return malformed(node.ID, "duplicate node id")
		}
		nodes[node.ID] = node
		order = append(order, node.ID)
		root[node.ID] = true
		return nil
	}

	for _, tr := range rec.Terminals {
		span, err := terms.ResolveAll(tr.Anchor)
		if err != nil {
			return nil, err
		}
		if err := add(naf.NewTerminal(tr.ID, span)); err != nil {
			return nil, err
		}
	}
	for _, nt := range rec.NonTerminals {
		if err := add(naf.NewNonTerminal(nt.ID, nt.Label)); err != nil {
			return nil, err
		}
	}

	for _, e := range rec.Edges {
		child, ok := nodes[e.From]
		if !ok {
			return nil, malformed(e.From, "edge "+e.ID+" references unknown child")
		}
		parent, ok := nodes[e.To]
		if !ok {
			return nil, malformed(e.To, "edge "+e.ID+" references unknown parent")
		}
		if child == parent {
			return nil, malformed(e.From, "edge "+e.ID+" links a node to itself")
		}
		if !root[e.From] {
			return nil, malformed(e.From, "node has more than one parent")
		}
		if err := parent.AddChild(child, e.ID, bool(e.Head)); err != nil {
			return nil, malformed(e.To, "terminal cannot have children")
		}
		root[e.From] = false
	}

	var out []*naf.Tree
	reached := 0
	for _, id := range order {
		if !root[id] {
			continue
		}
		r := nodes[id]
		r.Walk(func(*naf.TreeNode) bool {
			reached++
			return true
		})
		out = append(out, naf.NewTree(r))
	}
	if reached != len(order) {
		return nil, malformed("", "edges form a cycle")
	}
	return out, nil
}
