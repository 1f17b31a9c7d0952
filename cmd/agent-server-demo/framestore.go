package main

import "sync"

// shardSize is the size in bytes of one locking shard of the frame store.
// Adapted from backend/mem.go's Memory type: sharded RWMutex locking so a
// screen read and a frame-tick write never contend over the whole buffer,
// repurposed here from a block device's byte-addressable storage to a
// pixel/depth framebuffer.
const shardSize = 64 * 1024

// frameStore is a sharded-lock byte buffer backing one simulated capture
// surface (the RGB framebuffer or the depth buffer).
type frameStore struct {
	data   []byte
	shards []sync.RWMutex
}

func newFrameStore(size int) *frameStore {
	numShards := (size + shardSize - 1) / shardSize
	if numShards == 0 {
		numShards = 1
	}
	return &frameStore{
		data:   make([]byte, size),
		shards: make([]sync.RWMutex, numShards),
	}
}

func (f *frameStore) shardRange(off, length int) (start, end int) {
	start = off / shardSize
	end = (off + length - 1) / shardSize
	if end >= len(f.shards) {
		end = len(f.shards) - 1
	}
	return start, end
}

// Snapshot returns a copy of the full buffer, locking only the shards it
// spans for the duration of the copy.
func (f *frameStore) Snapshot() []byte {
	out := make([]byte, len(f.data))
	start, end := f.shardRange(0, len(f.data))
	for i := start; i <= end; i++ {
		f.shards[i].RLock()
	}
	copy(out, f.data)
	for i := start; i <= end; i++ {
		f.shards[i].RUnlock()
	}
	return out
}

// WriteAt writes p into the buffer at off, locking only the shards it spans.
func (f *frameStore) WriteAt(p []byte, off int) {
	if off >= len(f.data) {
		return
	}
	if off+len(p) > len(f.data) {
		p = p[:len(f.data)-off]
	}
	start, end := f.shardRange(off, len(p))
	for i := start; i <= end; i++ {
		f.shards[i].Lock()
	}
	copy(f.data[off:off+len(p)], p)
	for i := start; i <= end; i++ {
		f.shards[i].Unlock()
	}
}
