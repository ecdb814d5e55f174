package item_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streamforge/dataloader/item"
)

func TestNewImage_ValidatesBufferLength(t *testing.T) {
	_, err := item.NewImage(2, 2, 3, make([]byte, 5))
	require.Error(t, err)

	img, err := item.NewImage(2, 2, 3, make([]byte, 12))
	require.NoError(t, err)
	require.Equal(t, item.KindImage, img.Kind)
}

func TestClone_DeepCopiesImageBytes(t *testing.T) {
	img, err := item.NewImage(1, 1, 3, []byte{1, 2, 3})
	require.NoError(t, err)

	clone := img.Clone()
	clone.Image.Bytes[0] = 0xFF

	require.Equal(t, byte(1), img.Image.Bytes[0])
	require.True(t, img.Equal(clone) == false)
}

func TestEqual(t *testing.T) {
	a := item.NewText("hello")
	b := item.NewText("hello")
	c := item.NewText("world")

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
	require.False(t, a.Equal(nil))
}

func TestGenerator_DeterministicCallCounts(t *testing.T) {
	gen := item.NewGenerator()

	for i := 0; i < 5; i++ {
		_, err := gen.Load("abc")
		require.NoError(t, err)
	}

	require.Equal(t, 5, gen.CallCount("abc"))
	require.Equal(t, 5, gen.TotalCalls())
}
