package flat

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"sync"

	"medrag/internal/domain"
	"medrag/internal/fsutil"
)

const (
	magic   = "MEDRAGL2"
	version = uint32(1)
	// maxModelLen bounds the header string so a corrupt file cannot trigger a huge allocation.
	maxModelLen = 1 << 12
)

// Storage is an exact (brute-force) L2 index persisted to a single binary file.
// Distances are squared Euclidean distances.
type Storage struct {
	mu        sync.RWMutex
	path      string
	dimension int
	vectors   [][]float64
}

// NewStorage returns an empty index persisted at path.
func NewStorage(path string) *Storage { return &Storage{path: path} }

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	return nil
}

func (s *Storage) Add(_ context.Context, vectors [][]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(v), s.dimension)
		}
	}
	s.vectors = append(s.vectors, vectors...)
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float64, topK int) ([]domain.Neighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: got %d, want %d", len(vector), s.dimension)
	}
	if topK <= 0 || len(s.vectors) == 0 {
		return nil, nil
	}
	hits := make([]domain.Neighbor, len(s.vectors))
	for i, v := range s.vectors {
		hits[i] = domain.Neighbor{ID: i, Distance: squaredL2(v, vector)}
	}
	// ids start in ascending order, so the stable sort breaks distance ties by id
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if topK > len(hits) {
		topK = len(hits)
	}
	return hits[:topK], nil
}

func (s *Storage) Len(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors), nil
}

func (s *Storage) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// Save writes the header (magic, version, dimension, count, model) followed by the
// little-endian vectors, replacing any previous file atomically.
func (s *Storage) Save(_ context.Context, model string) error {
	if len(model) > maxModelLen {
		return fmt.Errorf("model identifier too long: %d bytes", len(model))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fsutil.WriteAtomic(s.path, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		if _, err := bw.WriteString(magic); err != nil {
			return err
		}
		header := []any{version, uint32(s.dimension), uint64(len(s.vectors)), uint32(len(model))}
		for _, field := range header {
			if err := binary.Write(bw, binary.LittleEndian, field); err != nil {
				return fmt.Errorf("write index header: %w", err)
			}
		}
		if _, err := bw.WriteString(model); err != nil {
			return err
		}
		buf := make([]byte, 8)
		for _, v := range s.vectors {
			for _, x := range v {
				binary.LittleEndian.PutUint64(buf, math.Float64bits(x))
				if _, err := bw.Write(buf); err != nil {
					return fmt.Errorf("write index vectors: %w", err)
				}
			}
		}
		return bw.Flush()
	})
}

// Load replaces the in-memory state with the file at the configured path.
func (s *Storage) Load(context.Context) (string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	r := bufio.NewReader(f)

	head := make([]byte, len(magic))
	if _, err := io.ReadFull(r, head); err != nil {
		return "", fmt.Errorf("read index magic: %w", err)
	}
	if string(head) != magic {
		return "", errors.New("not a flat l2 index file")
	}
	var (
		ver      uint32
		dim      uint32
		count    uint64
		modelLen uint32
	)
	for _, field := range []any{&ver, &dim, &count, &modelLen} {
		if err := binary.Read(r, binary.LittleEndian, field); err != nil {
			return "", fmt.Errorf("read index header: %w", err)
		}
	}
	if ver != version {
		return "", fmt.Errorf("unsupported index version %d", ver)
	}
	if dim == 0 || modelLen > maxModelLen {
		return "", errors.New("corrupt index header")
	}
	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	headerLen := int64(len(magic)) + 4 + 4 + 8 + 4 + int64(modelLen)
	rowBytes := int64(dim) * 8
	if info.Size() < headerLen || count > uint64((info.Size()-headerLen)/rowBytes) {
		return "", fmt.Errorf("index file size %d too small for %d vectors", info.Size(), count)
	}
	if want := headerLen + int64(count)*rowBytes; info.Size() != want {
		return "", fmt.Errorf("index file size %d does not match header (want %d)", info.Size(), want)
	}
	model := make([]byte, modelLen)
	if _, err := io.ReadFull(r, model); err != nil {
		return "", fmt.Errorf("read index model: %w", err)
	}
	vectors := make([][]float64, count)
	buf := make([]byte, 8)
	for i := range vectors {
		v := make([]float64, dim)
		for j := range v {
			if _, err := io.ReadFull(r, buf); err != nil {
				return "", fmt.Errorf("read index vectors: %w", err)
			}
			v[j] = math.Float64frombits(binary.LittleEndian.Uint64(buf))
		}
		vectors[i] = v
	}

	s.mu.Lock()
	s.dimension = int(dim)
	s.vectors = vectors
	s.mu.Unlock()
	return string(model), nil
}

func squaredL2(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
