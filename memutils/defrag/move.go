package defrag

import (
	"fmt"

	"github.com/SunnyShi051223/OS-Design/memutils/metadata"
)

type DefragmentationMoveOperation uint32

const (
	// DefragmentationMoveCopy relocates the region
	DefragmentationMoveCopy DefragmentationMoveOperation = iota
	// DefragmentationMoveIgnore leaves the region where it is for this pass
	DefragmentationMoveIgnore
)

var defragmentationMoveOperationMapping = map[DefragmentationMoveOperation]string{
	DefragmentationMoveCopy:   "DefragmentationMoveCopy",
	DefragmentationMoveIgnore: "DefragmentationMoveIgnore",
}

func (o DefragmentationMoveOperation) String() string {
	str, ok := defragmentationMoveOperationMapping[o]
	if !ok {
		return "unknown DefragmentationMoveOperation"
	}

	return str
}

// MoveHandler is consulted for each planned relocation and decides whether it goes ahead
type MoveHandler func(move DefragmentationMove) DefragmentationMoveOperation

// DefragmentationMove relocates the occupied region Src so that it begins at DstStart. DstStart is
// always lower than Src.Start.
type DefragmentationMove struct {
	Src      metadata.Region
	DstStart int
}

// Dst returns the region the move relocates Src to
func (m DefragmentationMove) Dst() metadata.Region {
	return metadata.Region{Start: m.DstStart, Size: m.Src.Size}
}

func (m DefragmentationMove) String() string {
	return fmt.Sprintf("%s -> %s", m.Src, m.Dst())
}
