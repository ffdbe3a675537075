package ast

// NodeID addresses a Node inside a Tree. Zero means "no node".
type NodeID uint32

const NoNodeID NodeID = 0

func (id NodeID) IsValid() bool { return id != NoNodeID }
