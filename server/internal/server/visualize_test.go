package server

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/transformerzoo/zoo-server/pkg/tensor"
)

func TestFlattenAttentions(t *testing.T) {
	head := tensor.New(2, 2)
	head.Set(1, 0, 0)
	head.Set(0.25, 1, 0)
	head.Set(0.75, 1, 1)

	got := flattenAttentions([][]*tensor.T{{head}})
	want := [][][][]float64{
		{
			{
				{1, 0},
				{0.25, 0.75},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected attentions (-want +got):\n%s", diff)
	}
}

func TestFlattenAttentionsCopies(t *testing.T) {
	head := tensor.New(1, 1)
	head.Set(0.5, 0, 0)

	got := flattenAttentions([][]*tensor.T{{head}})
	head.Set(0.9, 0, 0)
	assert.Equal(t, 0.5, got[0][0][0][0])
}
