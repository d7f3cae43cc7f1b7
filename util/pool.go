package util

import "sync"

// chunks recycles the fixed-size read buffers that connection readers
// hold for their lifetime.
var chunks = sync.Pool{
	New: func() any {
		b := make([]byte, DefaultBufSize)
		return &b
	},
}

// GetBuf borrows a DefaultBufSize chunk.  Hand it back with [PutBuf]
// once the reader exits.
func GetBuf() *[]byte {
	b := chunks.Get().(*[]byte)
	*b = (*b)[:cap(*b)]
	return b
}

// PutBuf returns a chunk to the pool.  nil and undersized slices are
// dropped.
func PutBuf(b *[]byte) {
	if b == nil || cap(*b) < DefaultBufSize {
		return
	}
	chunks.Put(b)
}
