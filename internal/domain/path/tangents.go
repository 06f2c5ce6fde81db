package path

import "github.com/okian/animpath/internal/domain/model"

// slope returns the chord slope of the segment between nodes i and i+1.
func slope(nodes []model.Node, i int) model.Vec3 {
	a, b := nodes[i], nodes[i+1]
	return b.Position.Sub(a.Position).Mul(1 / (b.Timestamp - a.Timestamp))
}

// smoothAt is the Catmull-Rom slope at node i. Endpoints take the slope of
// their only segment.
func smoothAt(nodes []model.Node, i int) model.Vec3 {
	n := len(nodes)
	switch {
	case n < 2:
		return model.Vec3{}
	case i == 0:
		return slope(nodes, 0)
	case i == n-1:
		return slope(nodes, n-2)
	}
	prev, next := nodes[i-1], nodes[i+1]
	return next.Position.Sub(prev.Position).Mul(1 / (next.Timestamp - prev.Timestamp))
}

// applyTangents recomputes every tangent for mode. Free leaves them alone.
func applyTangents(nodes []model.Node, mode model.TangentMode) {
	n := len(nodes)
	if n < 2 {
		return
	}
	switch mode {
	case model.Smooth:
		out := make([]model.Vec3, n)
		for i := range nodes {
			out[i] = smoothAt(nodes, i)
		}
		for i := range nodes {
			nodes[i].InTangent = out[i]
			nodes[i].OutTangent = out[i]
		}
	case model.Linear:
		for i := range nodes {
			in, out := model.Vec3{}, model.Vec3{}
			if i > 0 {
				in = slope(nodes, i-1)
			}
			if i < n-1 {
				out = slope(nodes, i)
			}
			if i == 0 {
				in = out
			}
			if i == n-1 {
				out = in
			}
			nodes[i].InTangent = in
			nodes[i].OutTangent = out
		}
	}
}
