package db

import (
	"encoding/binary"
	"math"
)

// VectorBlob encodes v as the little-endian FLOAT32 blob that HNSW vector
// fields and KNN query parameters expect.
func VectorBlob(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
