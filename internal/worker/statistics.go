package worker

// Statistics counts what one worker observed. Each worker owns its own
// Statistics; the coordinator merges them after the workers are joined.
type Statistics struct {
	Hits       int64
	Misses     int64
	Evictions  int64
	WriteBacks int64
	Errors     int64
	Reads      int64
	Writes     int64
}

// Ops returns the number of completed operations.
func (s Statistics) Ops() int64 { return s.Hits + s.Misses }

// HitRate returns hits/(hits+misses), or 0 when nothing ran.
func (s Statistics) HitRate() float64 {
	if s.Ops() == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Ops())
}

// Merge adds o to s.
func (s *Statistics) Merge(o Statistics) {
	s.Hits += o.Hits
	s.Misses += o.Misses
	s.Evictions += o.Evictions
	s.WriteBacks += o.WriteBacks
	s.Errors += o.Errors
	s.Reads += o.Reads
	s.Writes += o.Writes
}
