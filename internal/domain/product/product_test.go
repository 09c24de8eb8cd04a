package product

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVector3_String(t *testing.T) {
	assert.Equal(t, "0.1m 0.25m -3m", Vector3{X: 0.1, Y: 0.25, Z: -3}.String())
	assert.Equal(t, "0m 0m 0m", Vector3{}.String())
}

func TestParseVector3(t *testing.T) {
	v, err := ParseVector3("0.1m 0.25m -3m")
	require.NoError(t, err)
	assert.Equal(t, Vector3{X: 0.1, Y: 0.25, Z: -3}, v)

	v, err = ParseVector3(" 1 2 3 ")
	require.NoError(t, err)
	assert.Equal(t, Vector3{X: 1, Y: 2, Z: 3}, v)

	_, err = ParseVector3("1m 2m")
	require.Error(t, err)

	_, err = ParseVector3("1m twom 3m")
	require.Error(t, err)
}

func TestIndex(t *testing.T) {
	idx, err := NewIndex([]Product{{ID: "b", Name: "B"}, {ID: "a", Name: "A"}})
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())

	list, err := idx.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", list[0].ID, "catalog order is preserved")

	p, err := idx.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "A", p.Name)

	_, err = idx.Get("zzz")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIndex_Rejects(t *testing.T) {
	_, err := NewIndex([]Product{{ID: "a"}, {ID: "a"}})
	require.Error(t, err)

	_, err = NewIndex([]Product{{ID: ""}})
	require.Error(t, err)
}
