// Package curve implements keyed scalar curves evaluated with cubic Hermite
// interpolation over normalized time.
package curve

import (
	"fmt"
	"math"
	"sort"
)

// keyEpsilon is the distance under which two key times are the same key.
const keyEpsilon = 1e-9

// Key is one control point of a curve. Tangents are slopes in value units
// per unit of normalized time.
type Key struct {
	Time       float64 `yaml:"time" json:"time"`
	Value      float64 `yaml:"value" json:"value"`
	InTangent  float64 `yaml:"in" json:"in"`
	OutTangent float64 `yaml:"out" json:"out"`
}

// Curve is an ordered list of keys with strictly increasing times.
// The zero value is an empty curve that evaluates to 0.
type Curve struct {
	keys []Key
}

// New builds a curve from keys that must already be in strictly increasing time order.
func New(keys ...Key) (*Curve, error) {
	for i := 1; i < len(keys); i++ {
		if keys[i].Time-keys[i-1].Time <= keyEpsilon {
			return nil, fmt.Errorf("%w: key %d at %v follows %v", ErrUnorderedKeys, i, keys[i].Time, keys[i-1].Time)
		}
	}
	c := &Curve{keys: make([]Key, len(keys))}
	copy(c.keys, keys)
	return c, nil
}

// Len returns the number of keys.
func (c *Curve) Len() int { return len(c.keys) }

// Key returns the i-th key.
func (c *Curve) Key(i int) Key { return c.keys[i] }

// Keys returns a copy of the keys.
func (c *Curve) Keys() []Key {
	out := make([]Key, len(c.keys))
	copy(out, c.keys)
	return out
}

// Times returns the key times in order.
func (c *Curve) Times() []float64 {
	out := make([]float64, len(c.keys))
	for i, k := range c.keys {
		out[i] = k.Time
	}
	return out
}

// Clone returns a deep copy.
func (c *Curve) Clone() *Curve {
	return &Curve{keys: c.Keys()}
}

// Equal reports whether both curves hold identical keys.
func (c *Curve) Equal(o *Curve) bool {
	if len(c.keys) != len(o.keys) {
		return false
	}
	for i := range c.keys {
		if c.keys[i] != o.keys[i] {
			return false
		}
	}
	return true
}

// Find returns the index of the key closest to t when it lies within tol.
func (c *Curve) Find(t, tol float64) (int, bool) {
	idx := sort.Search(len(c.keys), func(i int) bool { return c.keys[i].Time >= t })
	best, bestDist := -1, math.Inf(1)
	for _, i := range []int{idx - 1, idx} {
		if i < 0 || i >= len(c.keys) {
			continue
		}
		if d := math.Abs(c.keys[i].Time - t); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 || bestDist > tol {
		return -1, false
	}
	return best, true
}

// AddKey inserts k in time order and returns its index.
func (c *Curve) AddKey(k Key) (int, error) {
	if math.IsNaN(k.Time) || math.IsInf(k.Time, 0) {
		return -1, fmt.Errorf("%w: key time %v", ErrOutOfRangeQuery, k.Time)
	}
	if _, ok := c.Find(k.Time, keyEpsilon); ok {
		return -1, fmt.Errorf("%w: %v", ErrDuplicateKey, k.Time)
	}
	idx := sort.Search(len(c.keys), func(i int) bool { return c.keys[i].Time > k.Time })
	c.keys = append(c.keys, Key{})
	copy(c.keys[idx+1:], c.keys[idx:])
	c.keys[idx] = k
	return idx, nil
}

// Insert adds a key at t that keeps the curve's shape: the value and the
// tangents are taken from the curve as it is before the insert.
func (c *Curve) Insert(t float64) (int, error) {
	v, err := c.Evaluate(t)
	if err != nil {
		return -1, err
	}
	d, err := c.Derivative(t)
	if err != nil {
		return -1, err
	}
	return c.AddKey(Key{Time: t, Value: v, InTangent: d, OutTangent: d})
}

// RemoveAt deletes the i-th key.
func (c *Curve) RemoveAt(i int) error {
	if i < 0 || i >= len(c.keys) {
		return fmt.Errorf("%w: index %d", ErrKeyNotFound, i)
	}
	c.keys = append(c.keys[:i], c.keys[i+1:]...)
	return nil
}

// MoveKey changes the time of the i-th key, keeping value and tangents.
// The key may not pass its neighbours.
func (c *Curve) MoveKey(i int, t float64) error {
	if i < 0 || i >= len(c.keys) {
		return fmt.Errorf("%w: index %d", ErrKeyNotFound, i)
	}
	if i > 0 && t-c.keys[i-1].Time <= keyEpsilon {
		return fmt.Errorf("%w: %v not after %v", ErrUnorderedKeys, t, c.keys[i-1].Time)
	}
	if i < len(c.keys)-1 && c.keys[i+1].Time-t <= keyEpsilon {
		return fmt.Errorf("%w: %v not before %v", ErrUnorderedKeys, t, c.keys[i+1].Time)
	}
	c.keys[i].Time = t
	return nil
}

// SetValue changes the value of the i-th key.
func (c *Curve) SetValue(i int, v float64) {
	c.keys[i].Value = v
}

// SetTangents changes both tangents of the i-th key.
func (c *Curve) SetTangents(i int, in, out float64) {
	c.keys[i].InTangent = in
	c.keys[i].OutTangent = out
}

// Truncate keeps only the keys for which keep returns true.
func (c *Curve) Truncate(keep func(Key) bool) {
	out := c.keys[:0]
	for _, k := range c.keys {
		if keep(k) {
			out = append(out, k)
		}
	}
	c.keys = out
}

// checkTime rejects times the segment lookup cannot serve.
func checkTime(t float64) error {
	if math.IsNaN(t) || t < 0 || t > 1 {
		return fmt.Errorf("%w: %v", ErrOutOfRangeQuery, t)
	}
	return nil
}

// segment returns i such that keys[i].Time <= t < keys[i+1].Time, -1 before the
// first key and len-1 at or after the last key.
func (c *Curve) segment(t float64) int {
	return sort.Search(len(c.keys), func(i int) bool { return c.keys[i].Time > t }) - 1
}

// Evaluate returns the curve value at t in [0,1]. Before the first key and
// after the last key the curve holds the end values.
func (c *Curve) Evaluate(t float64) (float64, error) {
	if err := checkTime(t); err != nil {
		return 0, err
	}
	n := len(c.keys)
	if n == 0 {
		return 0, nil
	}
	i := c.segment(t)
	switch {
	case i < 0:
		return c.keys[0].Value, nil
	case i >= n-1:
		return c.keys[n-1].Value, nil
	}
	a, b := c.keys[i], c.keys[i+1]
	if t == a.Time {
		return a.Value, nil
	}
	return hermite(a, b, t), nil
}

// Derivative returns the slope of the curve at t. The last key takes the
// end slope of the segment ending there; outside the keys the curve is flat.
func (c *Curve) Derivative(t float64) (float64, error) {
	if err := checkTime(t); err != nil {
		return 0, err
	}
	n := len(c.keys)
	i := c.segment(t)
	if n < 2 || i < 0 {
		return 0, nil
	}
	if i >= n-1 {
		if t != c.keys[n-1].Time {
			return 0, nil
		}
		i = n - 2
	}
	return hermiteSlope(c.keys[i], c.keys[i+1], t), nil
}

func hermite(a, b Key, t float64) float64 {
	dt := b.Time - a.Time
	u := (t - a.Time) / dt
	u2 := u * u
	u3 := u2 * u
	h00 := 2*u3 - 3*u2 + 1
	h10 := u3 - 2*u2 + u
	h01 := -2*u3 + 3*u2
	h11 := u3 - u2
	return h00*a.Value + h10*dt*a.OutTangent + h01*b.Value + h11*dt*b.InTangent
}

func hermiteSlope(a, b Key, t float64) float64 {
	dt := b.Time - a.Time
	u := (t - a.Time) / dt
	u2 := u * u
	d00 := 6*u2 - 6*u
	d10 := 3*u2 - 4*u + 1
	d01 := -6*u2 + 6*u
	d11 := 3*u2 - 2*u
	return (d00*a.Value+d01*b.Value)/dt + d10*a.OutTangent + d11*b.InTangent
}
