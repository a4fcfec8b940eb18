package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatIndex_AddAndSearch(t *testing.T) {
	// Given: vectors a=[1,0,0,0], b=[0,1,0,0], c=[0.9,0.1,0,0]
	idx, err := NewFlatIndex(4)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0.9, 0.1, 0, 0},
	}))

	// When: searching for [1,0,0,0] with k=2
	scores, positions, err := idx.Search([]float32{1, 0, 0, 0}, 2)

	// Then: positions are [0, 2] in that order
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, positions)
	assert.InDelta(t, 1.0, scores[0], 1e-6)
	assert.Less(t, scores[1], scores[0])
}

func TestFlatIndex_ScoresAreCosine(t *testing.T) {
	// Given: unnormalized vectors
	idx, err := NewFlatIndex(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{{3, 4}, {10, 0}}))

	// When: searching with an unnormalized query
	scores, positions, err := idx.Search([]float32{0, 5}, 2)

	// Then: inner products equal cosine similarities
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, positions)
	assert.InDelta(t, 0.8, scores[0], 1e-6)
	assert.InDelta(t, 0.0, scores[1], 1e-6)
}

func TestFlatIndex_ExhaustiveWithKEqualsN(t *testing.T) {
	// Given: five vectors
	idx, err := NewFlatIndex(3)
	require.NoError(t, err)
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 0}, {-1, 0, 0}}
	require.NoError(t, idx.Add(vectors))

	// When: requesting more than the corpus
	scores, positions, err := idx.Search([]float32{1, 0, 0}, 99)

	// Then: every position is returned exactly once, best first
	require.NoError(t, err)
	require.Len(t, positions, 5)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, positions)
	for i := 1; i < len(scores); i++ {
		assert.GreaterOrEqual(t, scores[i-1], scores[i])
	}
	assert.Equal(t, 4, positions[4])
}

func TestFlatIndex_TiesBreakByPosition(t *testing.T) {
	idx, err := NewFlatIndex(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{{0, 1}, {1, 0}, {0, 1}, {1, 0}}))

	_, positions, err := idx.Search([]float32{1, 0}, 4)

	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 0, 2}, positions)
}

func TestFlatIndex_DimensionMismatch(t *testing.T) {
	idx, err := NewFlatIndex(3)
	require.NoError(t, err)

	err = idx.Add([][]float32{{1, 2}})
	var dm ErrDimensionMismatch
	require.True(t, errors.As(err, &dm))
	assert.Equal(t, 3, dm.Expected)
	assert.Equal(t, 2, dm.Got)

	_, _, err = idx.Search([]float32{1}, 1)
	assert.Error(t, err)

	_, err = NewFlatIndex(0)
	assert.Error(t, err)
}

func TestFlatIndex_AddCopiesInput(t *testing.T) {
	idx, err := NewFlatIndex(2)
	require.NoError(t, err)
	v := []float32{3, 4}

	require.NoError(t, idx.Add([][]float32{v}))

	assert.Equal(t, []float32{3, 4}, v)
}

func TestFlatIndex_ZeroKAndEmptyIndex(t *testing.T) {
	idx, err := NewFlatIndex(2)
	require.NoError(t, err)

	scores, positions, err := idx.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, scores)
	assert.Empty(t, positions)
	assert.Equal(t, 0, idx.Len())
}

func TestFlatIndex_SaveLoadRoundTrip(t *testing.T) {
	// Given: a saved index
	path := filepath.Join(t.TempDir(), FlatFile)
	idx, err := NewFlatIndex(3)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{{1, 2, 3}, {-1, 0, 1}}))
	require.NoError(t, idx.Save(path))

	// When: loading it
	loaded, err := LoadFlatIndex(path)
	require.NoError(t, err)

	// Then: dimensions, length and search results match
	assert.Equal(t, 3, loaded.Dimensions())
	assert.Equal(t, 2, loaded.Len())
	wantScores, wantPos, _ := idx.Search([]float32{1, 1, 1}, 2)
	gotScores, gotPos, err := loaded.Search([]float32{1, 1, 1}, 2)
	require.NoError(t, err)
	assert.Equal(t, wantPos, gotPos)
	assert.Equal(t, wantScores, gotScores)
}

// flatHeader encodes a vector file header with the given fields.
func flatHeader(version, dims, count uint32) []byte {
	var buf bytes.Buffer
	buf.Write(flatMagic[:])
	_ = binary.Write(&buf, binary.LittleEndian, []uint32{version, dims, count})
	return buf.Bytes()
}

func TestReadFlatIndex_RejectsBadInput(t *testing.T) {
	var valid bytes.Buffer
	idx, _ := NewFlatIndex(2)
	_ = idx.Add([][]float32{{1, 0}, {0, 1}})
	_, err := idx.WriteTo(&valid)
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   []byte
		wantErr string
	}{
		{"bad magic", []byte("NOPE"), "not a vector index file"},
		{"short header", flatMagic[:], "failed to read header"},
		{"bad version", flatHeader(9, 2, 1), "unsupported vector index version"},
		{"zero dims", flatHeader(flatFormatVersion, 0, 1), "invalid dimensions"},
		{"huge dims", flatHeader(flatFormatVersion, 0xFFFFFFFF, 0xFFFFFFFF), "invalid dimensions"},
		{"huge count", flatHeader(flatFormatVersion, 1024, 0xFFFFFFFF), "exceeds limit"},
		{"count beyond body", flatHeader(flatFormatVersion, 4, 1000), "failed to read"},
		{"truncated body", valid.Bytes()[:valid.Len()-3], "failed to read"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				err error
				got *FlatIndex
			)
			require.NotPanics(t, func() {
				got, err = ReadFlatIndex(bytes.NewReader(tt.input))
			})

			require.Error(t, err)
			assert.Nil(t, got)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFlatIndex_SizeMustMatchHeader(t *testing.T) {
	// Given: a saved index with extra bytes appended
	path := filepath.Join(t.TempDir(), FlatFile)
	idx, err := NewFlatIndex(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{{1, 0}}))
	require.NoError(t, idx.Save(path))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte{0, 0, 0, 0})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// When: loading it
	_, err = LoadFlatIndex(path)

	// Then: the size mismatch is reported
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header describes")
}

func TestLoadFlatIndex_CorruptHeaderDoesNotAllocate(t *testing.T) {
	path := filepath.Join(t.TempDir(), FlatFile)
	require.NoError(t, os.WriteFile(path, flatHeader(flatFormatVersion, 0xFFFF, 0xFFFF), 0o644))

	_, err := LoadFlatIndex(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "header describes")
}

func TestReadFlatIndex_EmptyIndex(t *testing.T) {
	loaded, err := ReadFlatIndex(bytes.NewReader(flatHeader(flatFormatVersion, 3, 0)))

	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Dimensions())
	assert.Zero(t, loaded.Len())
}

func TestNormalizeVectorInPlace(t *testing.T) {
	v := []float32{3, 4}
	normalizeVectorInPlace(v)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := []float32{0, 0}
	normalizeVectorInPlace(zero)
	assert.Equal(t, []float32{0, 0}, zero)
	assert.False(t, math.IsNaN(float64(zero[0])))
}
