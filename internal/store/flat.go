package store

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
)

// FlatFile is the artifact name of a persisted FlatIndex.
const FlatFile = "vectors.flat"

var flatMagic = [4]byte{'D', 'S', 'V', 'F'}

const flatFormatVersion uint32 = 1

// FlatIndex is an exact inner-product index. Vectors are L2-normalized on
// insert and queries are normalized on search, so scores are cosine
// similarities. Search is exhaustive and always returns the true top-k.
//
// Add is not safe for concurrent use; once built, Search may be called
// concurrently.
type FlatIndex struct {
	dims    int
	vectors []float32 // row-major, len = count*dims
}

// Verify interface implementation at compile time
var _ VectorIndex = (*FlatIndex)(nil)

// NewFlatIndex creates an empty index for vectors of dims dimensions.
func NewFlatIndex(dims int) (*FlatIndex, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("invalid dimensions: %d", dims)
	}
	return &FlatIndex{dims: dims}, nil
}

// Add appends vectors in order; the i-th added vector occupies the next position.
// Input slices are copied before normalization.
func (f *FlatIndex) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != f.dims {
			return fmt.Errorf("vector %d: %w", i, ErrDimensionMismatch{Expected: f.dims, Got: len(v)})
		}
	}
	for _, v := range vectors {
		row := make([]float32, f.dims)
		copy(row, v)
		normalizeVectorInPlace(row)
		f.vectors = append(f.vectors, row...)
	}
	return nil
}

// Search scores every stored vector against query and returns the k best,
// ordered by score descending with ties broken by position ascending.
// k is clamped to [0, Len()].
func (f *FlatIndex) Search(query []float32, k int) ([]float32, []int, error) {
	if len(query) != f.dims {
		return nil, nil, ErrDimensionMismatch{Expected: f.dims, Got: len(query)}
	}

	n := f.Len()
	if k > n {
		k = n
	}
	if k <= 0 {
		return []float32{}, []int{}, nil
	}

	q := make([]float32, f.dims)
	copy(q, query)
	normalizeVectorInPlace(q)

	all := make([]float32, n)
	for i := 0; i < n; i++ {
		all[i] = dot(q, f.vectors[i*f.dims:(i+1)*f.dims])
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return all[order[a]] > all[order[b]]
	})

	scores := make([]float32, k)
	positions := make([]int, k)
	for i := 0; i < k; i++ {
		positions[i] = order[i]
		scores[i] = all[order[i]]
	}
	return scores, positions, nil
}

// Len returns the number of stored vectors.
func (f *FlatIndex) Len() int {
	return len(f.vectors) / f.dims
}

// Dimensions returns the vector dimensionality.
func (f *FlatIndex) Dimensions() int {
	return f.dims
}

// Save writes the index to path: magic, version, dims, count, then the
// little-endian float32 rows. The file is replaced atomically.
func (f *FlatIndex) Save(path string) error {
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return err
	}
	return writeFileAtomic(path, buf.Bytes())
}

// WriteTo writes the binary form of the index to w.
func (f *FlatIndex) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	header := []uint32{flatFormatVersion, uint32(f.dims), uint32(f.Len())}

	if _, err := bw.Write(flatMagic[:]); err != nil {
		return 0, err
	}
	if err := binary.Write(bw, binary.LittleEndian, header); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, f.vectors); err != nil {
		return 0, fmt.Errorf("failed to write vectors: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	return int64(len(flatMagic) + 4*len(header) + 4*len(f.vectors)), nil
}

// LoadFlatIndex reads an index written by Save. The header must account for
// every byte of the file.
func LoadFlatIndex(path string) (*FlatIndex, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	return readFlatIndex(bufio.NewReader(file), info.Size())
}

// ReadFlatIndex decodes the binary form produced by WriteTo.
func ReadFlatIndex(r io.Reader) (*FlatIndex, error) {
	return readFlatIndex(r, -1)
}

const (
	flatHeaderSize = 16 // magic + version + dims + count
	maxFlatDims    = 1 << 16
	maxFlatValues  = 1 << 30
	flatReadBlock  = 1 << 16 // float32 values per read
)

// readFlatIndex decodes an index. size is the total byte length of the
// input, or -1 when unknown. The header is validated before any allocation
// and vectors are read in blocks.
func readFlatIndex(r io.Reader, size int64) (*FlatIndex, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("failed to read magic: %w", err)
	}
	if magic != flatMagic {
		return nil, fmt.Errorf("not a vector index file (magic %q)", magic[:])
	}

	var header [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	version, dims, count := header[0], uint64(header[1]), uint64(header[2])
	if version != flatFormatVersion {
		return nil, fmt.Errorf("unsupported vector index version %d", version)
	}
	if dims == 0 || dims > maxFlatDims {
		return nil, fmt.Errorf("invalid dimensions: %d", dims)
	}
	total := count * dims // both < 2^32, cannot overflow uint64
	if total > maxFlatValues {
		return nil, fmt.Errorf("vector count %d x %d dimensions exceeds limit", count, dims)
	}
	if size >= 0 {
		if want := int64(flatHeaderSize) + int64(total)*4; want != size {
			return nil, fmt.Errorf("vector file is %d bytes, header describes %d", size, want)
		}
	}

	vectors := make([]float32, 0, min(total, flatReadBlock))
	block := make([]float32, min(total, flatReadBlock))
	for remaining := total; remaining > 0; {
		n := min(remaining, uint64(len(block)))
		if err := binary.Read(r, binary.LittleEndian, block[:n]); err != nil {
			return nil, fmt.Errorf("failed to read %d vectors: %w", count, err)
		}
		vectors = append(vectors, block[:n]...)
		remaining -= n
	}

	return &FlatIndex{dims: int(dims), vectors: vectors}, nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// normalizeVectorInPlace scales v to unit length. Zero vectors are left unchanged.
func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	invMagnitude := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= invMagnitude
	}
}
