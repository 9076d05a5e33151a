package engine

// IDAllocator hands out node ids.
type IDAllocator interface {
	Next() uint32
}

// SequentialIDs allocates monotonically increasing ids starting at 1.
// Wrap-around is handled by World.NextID, which skips ids still in use.
type SequentialIDs struct {
	last uint32
}

func (s *SequentialIDs) Next() uint32 {
	s.last++
	if s.last == 0 {
		s.last = 1
	}
	return s.last
}
