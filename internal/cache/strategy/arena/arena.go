// Package arena implements LRU recency as a doubly linked list threaded
// through a slice of nodes, with a free list for slot reuse after eviction.
package arena

import "github.com/discochess/lrusim/internal/cache/strategy"

// Compile-time check that Strategy implements strategy.Strategy.
var _ strategy.Strategy = (*Strategy)(nil)

const nilIndex = -1

type node struct {
	key  int64
	prev int32
	next int32
}

// Strategy is an index-addressed LRU list. Head is most recently used.
type Strategy struct {
	nodes []node
	index map[int64]int32
	free  []int32
	head  int32
	tail  int32
}

// New creates an empty arena sized for capacityHint keys.
func New(capacityHint int) *Strategy {
	capacityHint = max(capacityHint, 0)
	return &Strategy{
		nodes: make([]node, 0, capacityHint),
		index: make(map[int64]int32, capacityHint),
		head:  nilIndex,
		tail:  nilIndex,
	}
}

// Name returns "arena".
func (s *Strategy) Name() string { return "arena" }

// Push links key at the head.
func (s *Strategy) Push(key int64) {
	if _, ok := s.index[key]; ok {
		s.Touch(key)
		return
	}

	var i int32
	if n := len(s.free); n > 0 {
		i = s.free[n-1]
		s.free = s.free[:n-1]
		s.nodes[i] = node{key: key, prev: nilIndex, next: nilIndex}
	} else {
		i = int32(len(s.nodes))
		s.nodes = append(s.nodes, node{key: key, prev: nilIndex, next: nilIndex})
	}
	s.index[key] = i
	s.linkFront(i)
}

// Touch moves key to the head.
func (s *Strategy) Touch(key int64) {
	i, ok := s.index[key]
	if !ok || i == s.head {
		return
	}
	s.unlink(i)
	s.linkFront(i)
}

// Remove unlinks key and returns its slot to the free list.
func (s *Strategy) Remove(key int64) {
	i, ok := s.index[key]
	if !ok {
		return
	}
	s.unlink(i)
	delete(s.index, key)
	s.free = append(s.free, i)
}

// Victim walks from the tail towards the head.
func (s *Strategy) Victim(skip func(key int64) bool) (int64, bool) {
	for i := s.tail; i != nilIndex; i = s.nodes[i].prev {
		k := s.nodes[i].key
		if skip == nil || !skip(k) {
			return k, true
		}
	}
	return 0, false
}

// Len returns the number of linked keys.
func (s *Strategy) Len() int { return len(s.index) }

// Keys walks from the head.
func (s *Strategy) Keys() []int64 {
	keys := make([]int64, 0, len(s.index))
	for i := s.head; i != nilIndex; i = s.nodes[i].next {
		keys = append(keys, s.nodes[i].key)
	}
	return keys
}

func (s *Strategy) linkFront(i int32) {
	n := &s.nodes[i]
	n.prev = nilIndex
	n.next = s.head
	if s.head != nilIndex {
		s.nodes[s.head].prev = i
	}
	s.head = i
	if s.tail == nilIndex {
		s.tail = i
	}
}

func (s *Strategy) unlink(i int32) {
	n := &s.nodes[i]
	if n.prev != nilIndex {
		s.nodes[n.prev].next = n.next
	} else {
		s.head = n.next
	}
	if n.next != nilIndex {
		s.nodes[n.next].prev = n.prev
	} else {
		s.tail = n.prev
	}
	n.prev, n.next = nilIndex, nilIndex
}
