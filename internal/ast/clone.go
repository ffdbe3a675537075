package ast

// Clone deep-copies the subtree rooted at id and returns the new root.
// Analysis state (ValueType, Completed) is reset on every copy.
func (t *Tree) Clone(id NodeID) NodeID {
	src := t.Get(id)
	if src == nil {
		return NoNodeID
	}
	n := *src
	n.ValueType = 0
	n.Completed = false
	n.Path = cloneStrings(src.Path)
	n.Params = cloneStrings(src.Params)
	if src.Extern != nil {
		ext := *src.Extern
		n.Extern = &ext
	}
	n.A = t.Clone(src.A)
	n.B = t.Clone(src.B)
	n.C = t.Clone(src.C)
	n.D = t.Clone(src.D)
	n.TypeArgs = t.cloneList(src.TypeArgs)
	n.List = t.cloneList(src.List)
	return t.New(n)
}

func (t *Tree) cloneList(ids []NodeID) []NodeID {
	if ids == nil {
		return nil
	}
	out := make([]NodeID, len(ids))
	for i, c := range ids {
		out[i] = t.Clone(c)
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
