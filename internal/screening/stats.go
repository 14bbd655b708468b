package screening

// Stats aggregates diagnostic counters for one screening run. It is
// purely observational and never feeds back into selection. Stats from
// per-instrument runs combine with Merge, which is associative, so the
// universe may be reduced in any order.
type Stats struct {
	Universe    int   // instruments offered to the run
	Evaluated   int   // instruments with sufficient history
	Checked     int   // candidate indices visited across all instruments
	StageCounts []int // StageCounts[k] = indices that passed at least k+1 stages
	Selected    int   // signals emitted
}

// Merge returns the sum of two stats snapshots. Stage counts are padded
// to the longer chain.
func (s Stats) Merge(o Stats) Stats {
	out := Stats{
		Universe:  s.Universe + o.Universe,
		Evaluated: s.Evaluated + o.Evaluated,
		Checked:   s.Checked + o.Checked,
		Selected:  s.Selected + o.Selected,
	}
	long, short := s.StageCounts, o.StageCounts
	if len(short) > len(long) {
		long, short = short, long
	}
	out.StageCounts = make([]int, len(long))
	copy(out.StageCounts, long)
	for i, v := range short {
		out.StageCounts[i] += v
	}
	return out
}
