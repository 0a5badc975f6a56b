package arena

import (
	"testing"
	"unsafe"
)

func TestAllocNonOverlapping(t *testing.T) {
	a := New(256)
	ptrs := make([][]byte, 0, 8)
	for i := 0; i < 8; i++ {
		b := a.Alloc(16)
		if b == nil {
			t.Fatalf("alloc %d failed", i)
		}
		for _, p := range ptrs {
			if overlaps(p, b) {
				t.Fatalf("allocation %d overlaps a previous allocation", i)
			}
		}
		ptrs = append(ptrs, b)
	}
}

func overlaps(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	aStart := uintptr(unsafe.Pointer(&a[0]))
	bStart := uintptr(unsafe.Pointer(&b[0]))
	aEnd := aStart + uintptr(len(a))
	bEnd := bStart + uintptr(len(b))
	return aStart < bEnd && bStart < aEnd
}

func TestAllocAligned(t *testing.T) {
	a := New(256)
	b := a.Alloc(3)
	if len(b) != 3 {
		t.Fatalf("len = %d, want 3", len(b))
	}
	// next alloc should start at an 8-byte-aligned offset within the chunk
	second := a.Alloc(1)
	_ = second
	if a.current.used%pointerAlign != 0 {
		t.Fatalf("used offset %d not pointer-aligned", a.current.used)
	}
}

func TestAllocCrossesChunkBoundary(t *testing.T) {
	a := New(32)
	a.Alloc(24) // fills most of the first chunk
	before := a.Stats().ChunkCount
	b := a.Alloc(24) // does not fit remaining space, must allocate a new chunk
	after := a.Stats().ChunkCount
	if after != before+1 {
		t.Fatalf("expected a new chunk, chunk count %d -> %d", before, after)
	}
	if len(b) != 24 {
		t.Fatalf("len(b) = %d, want 24", len(b))
	}
}

func TestAllocNeverSplitsAcrossChunks(t *testing.T) {
	a := New(16)
	big := a.Alloc(64)
	if len(big) != 64 {
		t.Fatalf("large alloc truncated: len=%d", len(big))
	}
	// The allocation must come from a single contiguous backing chunk.
	if cap(big) < 64 {
		t.Fatalf("cap(big) = %d, want >= 64 (single contiguous chunk)", cap(big))
	}
}

func TestTempScopeRestoresState(t *testing.T) {
	a := New(64)
	a.Alloc(8)
	before := a.Stats()

	scope := a.Begin()
	a.Alloc(16)
	a.Alloc(512) // forces a new chunk
	a.Alloc(8)
	scope.End()

	after := a.Stats()
	if before != after {
		t.Fatalf("TempScope.End did not restore stats: before=%+v after=%+v", before, after)
	}
	if a.current != a.first {
		t.Fatalf("TempScope.End should have rewound to the original chunk")
	}
}

func TestResetFreesExtraChunksAndRewindsFirst(t *testing.T) {
	a := New(16)
	a.Alloc(8)
	a.Alloc(64) // new chunk
	a.Alloc(64) // another new chunk
	if a.Stats().ChunkCount < 3 {
		t.Fatalf("expected at least 3 chunks before reset, got %d", a.Stats().ChunkCount)
	}

	a.Reset()
	s := a.Stats()
	if s.ChunkCount != 1 {
		t.Fatalf("ChunkCount after Reset = %d, want 1", s.ChunkCount)
	}
	if s.Allocated != 0 {
		t.Fatalf("Allocated after Reset = %d, want 0", s.Allocated)
	}
	if a.first.used != 0 {
		t.Fatalf("first.used after Reset = %d, want 0", a.first.used)
	}
}

func TestAllocZeroLengthReturnsNil(t *testing.T) {
	a := New(16)
	if b := a.Alloc(0); b != nil {
		t.Fatalf("Alloc(0) = %v, want nil", b)
	}
}

func TestDestroyClearsState(t *testing.T) {
	a := New(16)
	a.Alloc(8)
	a.Destroy()
	if a.Stats().ChunkCount != 0 {
		t.Fatalf("ChunkCount after Destroy = %d, want 0", a.Stats().ChunkCount)
	}
}

func TestDupBytesAndDupString(t *testing.T) {
	a := New(64)
	src := []byte("hello")
	dup := a.DupBytes(src)
	src[0] = 'H'
	if string(dup) != "hello" {
		t.Fatalf("DupBytes did not copy: %q", dup)
	}

	s := a.DupString("world")
	if string(s) != "world" {
		t.Fatalf("DupString = %q, want %q", s, "world")
	}
}
