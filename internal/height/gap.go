package height

import (
	"errors"
	"fmt"
)

// Gap is the outcome of comparing the target node with the quorum
type Gap struct {
	QuorumHeight int64 `json:"quorum_height"`
	NodeHeight   int64 `json:"node_height"`
	// Diff is QuorumHeight - NodeHeight. Positive means the node lags.
	Diff int64 `json:"diff"`
}

// ComputeGap derives the signed height difference.
//
// A missing quorum is reported as ErrNoQuorum before the node result is
// looked at. A failed node fetch is reported as ErrNodeUnreachable. The
// difference is not clamped and may be negative.
func ComputeGap(quorumMax int64, quorumErr error, nodeHeight int64, nodeErr error) (Gap, error) {
	if quorumErr != nil {
		if errors.Is(quorumErr, ErrNoQuorum) {
			return Gap{}, quorumErr
		}
		return Gap{}, fmt.Errorf("%w: %v", ErrNoQuorum, quorumErr)
	}
	if nodeErr != nil {
		return Gap{QuorumHeight: quorumMax}, fmt.Errorf("%w: %v", ErrNodeUnreachable, nodeErr)
	}

	return Gap{
		QuorumHeight: quorumMax,
		NodeHeight:   nodeHeight,
		Diff:         quorumMax - nodeHeight,
	}, nil
}
