package naf

import "fmt"

// Tree is one constituent of a constituency forest.
type Tree struct {
	Root *TreeNode
}

func NewTree(root *TreeNode) *Tree {
	return &Tree{Root: root}
}

// TreeNode is either a terminal, anchored to terms, or a non-terminal with a
// label and ordered children. EdgeID and Head describe the incoming edge and
// are empty for a root.
type TreeNode struct {
	ID       string
	EdgeID   string
	Head     bool
	Label    string
	Span     []*Term
	Children []*TreeNode

	terminal bool
}

func NewTerminal(id string, span []*Term) *TreeNode {
	return &TreeNode{ID: id, Span: span, terminal: true}
}

func NewNonTerminal(id, label string) *TreeNode {
	return &TreeNode{ID: id, Label: label}
}

func (n *TreeNode) IsTerminal() bool {
	return n.terminal
}

// AddChild appends child under n. Terminals cannot have children.
func (n *TreeNode) AddChild(child *TreeNode, edgeID string, head bool) error {
	if n.terminal {
		return fmt.Errorf("node %q is a terminal", n.ID)
	}
	child.EdgeID = edgeID
	child.Head = head
	n.Children = append(n.Children, child)
	return nil
}

// Walk visits the subtree rooted at n in pre-order. Returning false from fn
// skips the children of the visited node.
func (n *TreeNode) Walk(fn func(*TreeNode) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Terms returns the terms covered by the tree, left to right.
func (t *Tree) Terms() []*Term {
	var out []*Term
	t.Root.Walk(func(n *TreeNode) bool {
		out = append(out, n.Span...)
		return true
	})
	return out
}
