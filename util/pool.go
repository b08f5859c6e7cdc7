package util

import "sync"

// ChunkSize is the fixed size of a single socket read (16 KiB).
const ChunkSize = 16 * 1024

// ChunkPool provides reusable read buffers for the stream read loop,
// reducing GC pressure when a server streams many chunks.
var ChunkPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, ChunkSize)
		return &buf
	},
}

// GetChunk retrieves a buffer from the pool.  Callers must return it
// with [PutChunk] when finished.
func GetChunk() *[]byte {
	return ChunkPool.Get().(*[]byte)
}

// PutChunk returns a buffer to the pool for reuse.
func PutChunk(buf *[]byte) {
	if buf == nil {
		return
	}
	ChunkPool.Put(buf)
}
