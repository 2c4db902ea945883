package aggregate

// Lanes is the batch width of Batched.
const Lanes = 8

// Batched buffers values into a group of Lanes slots. Each full group is
// folded elementwise into per-lane min, max and sum vectors; Summary reduces
// the lanes horizontally and folds the partially filled group with scalar
// logic.
type Batched struct {
	min, max, sum [Lanes]int64
	groups        int64 // full groups folded into the lanes

	pending [Lanes]int64
	n       int64 // total values added, folded or pending
}

// NewBatched returns an empty Batched.
func NewBatched() *Batched { return &Batched{} }

// Add buffers v, folding the group once it is full.
func (b *Batched) Add(v int64) {
	i := b.n % Lanes
	b.pending[i] = v
	b.n++
	if i == Lanes-1 {
		b.fold(&b.pending)
	}
}

// fold combines one full group into the lane vectors.
func (b *Batched) fold(g *[Lanes]int64) {
	if b.groups == 0 {
		b.min, b.max, b.sum = *g, *g, *g
		b.groups = 1
		return
	}
	for i := 0; i < Lanes; i++ {
		b.min[i] = min(b.min[i], g[i])
		b.max[i] = max(b.max[i], g[i])
		b.sum[i] += g[i]
	}
	b.groups++
}

// Merge absorbs o. Lane vectors merge elementwise; o's pending values are
// replayed through Add. The receiver's own pending position is unchanged
// because only whole groups are added to its count before the replay.
func (b *Batched) Merge(o *Batched) {
	if o.groups > 0 {
		if b.groups == 0 {
			b.min, b.max, b.sum = o.min, o.max, o.sum
		} else {
			for i := 0; i < Lanes; i++ {
				b.min[i] = min(b.min[i], o.min[i])
				b.max[i] = max(b.max[i], o.max[i])
				b.sum[i] += o.sum[i]
			}
		}
		b.groups += o.groups
		b.n += o.groups * Lanes
	}
	for i := int64(0); i < o.n%Lanes; i++ {
		b.Add(o.pending[i])
	}
}

// Summary reduces the lanes and the pending group.
func (b *Batched) Summary() Summary {
	var s Summary
	if b.groups > 0 {
		s.Min, s.Max = b.min[0], b.max[0]
		for i := 0; i < Lanes; i++ {
			s.Min = min(s.Min, b.min[i])
			s.Max = max(s.Max, b.max[i])
			s.Sum += b.sum[i]
		}
		s.Count = b.groups * Lanes
	}
	for i := int64(0); i < b.n%Lanes; i++ {
		s.Add(b.pending[i])
	}
	return s
}

var _ Aggregate[*Batched] = (*Batched)(nil)
