package height

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeGap(t *testing.T) {
	tests := []struct {
		name       string
		quorumMax  int64
		quorumErr  error
		nodeHeight int64
		nodeErr    error
		wantDiff   int64
		wantErr    error
	}{
		{name: "node lags", quorumMax: 1000, nodeHeight: 985, wantDiff: 15},
		{name: "node caught up", quorumMax: 1000, nodeHeight: 1000, wantDiff: 0},
		{name: "node ahead is not clamped", quorumMax: 1000, nodeHeight: 1007, wantDiff: -7},
		{name: "no quorum", quorumErr: ErrNoQuorum, nodeHeight: 10, wantErr: ErrNoQuorum},
		{name: "no quorum wins over node failure", quorumErr: errors.New("all down"), nodeErr: errors.New("x"), wantErr: ErrNoQuorum},
		{name: "node unreachable", quorumMax: 1000, nodeErr: errors.New("timeout"), wantErr: ErrNodeUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gap, err := ComputeGap(tt.quorumMax, tt.quorumErr, tt.nodeHeight, tt.nodeErr)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDiff, gap.Diff)
			assert.Equal(t, tt.quorumMax, gap.QuorumHeight)
			assert.Equal(t, tt.nodeHeight, gap.NodeHeight)
		})
	}
}

func TestComputeGap_NodeUnreachableKeepsQuorum(t *testing.T) {
	gap, err := ComputeGap(777, nil, 0, errors.New("refused"))

	assert.ErrorIs(t, err, ErrNodeUnreachable)
	assert.Contains(t, err.Error(), "refused")
	assert.Equal(t, int64(777), gap.QuorumHeight)
}
