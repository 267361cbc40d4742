package graph

import "fmt"

// NodeMap owns every node in the tree, keyed by ID, and the root group
// all other nodes descend from. It is only ever touched from the audio
// thread.
type NodeMap struct {
	nodes    map[ID]Node
	root     *Group
	next     ID
	capacity int
}

// ErrFull is returned by Register when the map already holds capacity
// nodes, root included.
var ErrFull = fmt.Errorf("graph: node map at capacity")

// NewNodeMap creates a NodeMap with an empty root group at RootID and
// room for at most capacity nodes, root included.
func NewNodeMap(capacity int) *NodeMap {
	root := NewGroup(RootID)
	return &NodeMap{
		nodes:    map[ID]Node{RootID: root},
		root:     root,
		next:     RootID + 1,
		capacity: capacity,
	}
}

// Root returns the always-present root group.
func (m *NodeMap) Root() *Group { return m.root }

// NextID allocates and returns the next free node ID, skipping any IDs
// already registered by Register.
func (m *NodeMap) NextID() ID {
	for {
		id := m.next
		m.next++
		if _, exists := m.nodes[id]; !exists {
			return id
		}
	}
}

// Lookup returns the node registered under id.
func (m *NodeMap) Lookup(id ID) (Node, error) {
	n, ok := m.nodes[id]
	if !ok {
		return nil, fmt.Errorf("graph: no node with id %d", id)
	}
	return n, nil
}

// LookupGroup is like Lookup but requires the node to be a *Group.
func (m *NodeMap) LookupGroup(id ID) (*Group, error) {
	n, err := m.Lookup(id)
	if err != nil {
		return nil, err
	}
	g, ok := n.(*Group)
	if !ok {
		return nil, fmt.Errorf("graph: node %d is not a group", id)
	}
	return g, nil
}

// Register records n under its own ID. The caller is responsible for
// having already inserted n into its parent group's child list. Fails
// with ErrFull once the map holds capacity nodes.
func (m *NodeMap) Register(n Node) error {
	if _, exists := m.nodes[n.ID()]; exists {
		return fmt.Errorf("graph: node id %d already in use", n.ID())
	}
	if len(m.nodes) >= m.capacity {
		return ErrFull
	}
	m.nodes[n.ID()] = n
	return nil
}

// Free removes the subtree rooted at id from the tree and the map,
// returning every *Synth in that subtree in depth-first order so the
// caller can hand them to a worker for Destroy — Free itself never calls
// Destroy, since that must not happen on the audio thread. Freeing the
// root is rejected.
func (m *NodeMap) Free(id ID) ([]*Synth, error) {
	if id == RootID {
		return nil, fmt.Errorf("graph: cannot free the root group")
	}
	n, err := m.Lookup(id)
	if err != nil {
		return nil, err
	}

	var freed []*Synth
	m.collect(n, &freed)

	if parent := n.Parent(); parent != nil {
		parent.Remove(n)
	}
	for _, s := range freed {
		delete(m.nodes, s.ID())
	}
	return freed, nil
}

// collect appends every *Synth under n to out and unregisters every
// *Group under n, n itself included.
func (m *NodeMap) collect(n Node, out *[]*Synth) {
	switch v := n.(type) {
	case *Synth:
		*out = append(*out, v)
	case *Group:
		for c := v.Head(); c != nil; c = c.nextNode() {
			m.collect(c, out)
		}
		delete(m.nodes, v.ID())
	}
}

// Len returns the total number of nodes registered, including the root.
func (m *NodeMap) Len() int { return len(m.nodes) }
