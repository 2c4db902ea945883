package aggregate

// Scalar applies every value immediately.
type Scalar struct {
	s Summary
}

// NewScalar returns an empty Scalar.
func NewScalar() *Scalar { return &Scalar{} }

func (a *Scalar) Add(v int64)      { a.s.Add(v) }
func (a *Scalar) Merge(o *Scalar)  { a.s.Merge(o.s) }
func (a *Scalar) Summary() Summary { return a.s }

var _ Aggregate[*Scalar] = (*Scalar)(nil)
