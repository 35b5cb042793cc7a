package main

import "math"

// Manifold describes one contact between two fixtures, expressed against the
// owning bodies. Normal points from A toward B.
type Manifold struct {
	A, B        *Body
	Normal      Vec2
	Penetration float64
	Contact     Vec2
	Restitution float64
}

const frictionCoef = 0.5

// detectFixturePair tests two fixtures in world space and returns a contact
// manifold, or nil when separated.
func detectFixturePair(a *Body, fa *Fixture, b *Body, fb *Fixture) *Manifold {
	pa, ra := a.FixtureWorld(fa)
	pb, rb := b.FixtureWorld(fb)

	var m *Manifold
	switch {
	case fa.Shape.Kind == ShapeCircle && fb.Shape.Kind == ShapeCircle:
		m = circleCircle(pa, fa.Shape.Radius, pb, fb.Shape.Radius)
	case fa.Shape.Kind == ShapeCircle && fb.Shape.Kind == ShapeRect:
		m = circleRect(pa, fa.Shape.Radius, pb, rb, fb.Shape)
	case fa.Shape.Kind == ShapeRect && fb.Shape.Kind == ShapeCircle:
		m = circleRect(pb, fb.Shape.Radius, pa, ra, fa.Shape)
		if m != nil {
			m.Normal = m.Normal.Scale(-1)
		}
	default:
		m = rectRect(pa, ra, fa.Shape, pb, rb, fb.Shape)
	}
	if m == nil {
		return nil
	}
	m.A, m.B = a, b
	m.Restitution = math.Min(a.Restitution, b.Restitution)
	return m
}

// circleCircle returns a manifold with the normal from circle A to circle B.
func circleCircle(pa Vec2, ra float64, pb Vec2, rb float64) *Manifold {
	delta := pb.Sub(pa)
	distSq := delta.LenSq()
	total := ra + rb
	if distSq >= total*total {
		return nil
	}
	dist := math.Sqrt(distSq)
	n := Vec2{1, 0}
	if dist > 0 {
		n = delta.Scale(1 / dist)
	}
	return &Manifold{
		Normal:      n,
		Penetration: total - dist,
		Contact:     pa.Add(n.Scale(ra - (total-dist)*0.5)),
	}
}

// circleRect tests a circle against an oriented rectangle. The normal points
// from the circle toward the rectangle.
func circleRect(cp Vec2, cr float64, rp Vec2, rrot float64, rs Shape) *Manifold {
	// Work in the rectangle's local frame.
	local := cp.Sub(rp).Rotate(-rrot)
	closest := Vec2{
		Clamp(local.X, -rs.HalfW, rs.HalfW),
		Clamp(local.Y, -rs.HalfH, rs.HalfH),
	}
	delta := local.Sub(closest)
	distSq := delta.LenSq()
	if distSq >= cr*cr {
		return nil
	}

	var nLocal Vec2
	var pen float64
	if distSq > 0 {
		dist := math.Sqrt(distSq)
		nLocal = delta.Scale(-1 / dist) // from circle toward rect
		pen = cr - dist
	} else {
		// Center inside the rectangle: push out along the shallowest axis.
		dx := rs.HalfW - abs(local.X)
		dy := rs.HalfH - abs(local.Y)
		if dx < dy {
			nLocal = Vec2{1, 0}
			if local.X > 0 {
				nLocal.X = -1
			}
			pen = dx + cr
		} else {
			nLocal = Vec2{0, 1}
			if local.Y > 0 {
				nLocal.Y = -1
			}
			pen = dy + cr
		}
	}
	return &Manifold{
		Normal:      nLocal.Rotate(rrot),
		Penetration: pen,
		Contact:     closest.Rotate(rrot).Add(rp),
	}
}

// rectRect runs SAT over both rectangles' face axes. The normal points from
// A toward B; the contact point is taken between the deepest support
// vertices, which is stable enough for stacked boxes at this scale.
func rectRect(pa Vec2, ra float64, sa Shape, pb Vec2, rb float64, sb Shape) *Manifold {
	va := rectVertices(pa, ra, sa)
	vb := rectVertices(pb, rb, sb)
	axes := [4]Vec2{
		(Vec2{1, 0}).Rotate(ra),
		(Vec2{0, 1}).Rotate(ra),
		(Vec2{1, 0}).Rotate(rb),
		(Vec2{0, 1}).Rotate(rb),
	}

	best := math.MaxFloat64
	var bestAxis Vec2
	for _, axis := range axes {
		minA, maxA := projectVerts(va, axis)
		minB, maxB := projectVerts(vb, axis)
		overlap := math.Min(maxA, maxB) - math.Max(minA, minB)
		if overlap <= 0 {
			return nil
		}
		if overlap < best {
			best = overlap
			bestAxis = axis
		}
	}
	// Orient the normal from A to B.
	if pb.Sub(pa).Dot(bestAxis) < 0 {
		bestAxis = bestAxis.Scale(-1)
	}

	deepB := supportVertex(vb, bestAxis.Scale(-1))
	deepA := supportVertex(va, bestAxis)
	return &Manifold{
		Normal:      bestAxis,
		Penetration: best,
		Contact:     deepA.Add(deepB).Scale(0.5),
	}
}

func rectVertices(p Vec2, rot float64, s Shape) [4]Vec2 {
	corners := [4]Vec2{
		{s.HalfW, s.HalfH},
		{-s.HalfW, s.HalfH},
		{-s.HalfW, -s.HalfH},
		{s.HalfW, -s.HalfH},
	}
	for i, c := range corners {
		corners[i] = c.Rotate(rot).Add(p)
	}
	return corners
}

func projectVerts(verts [4]Vec2, axis Vec2) (min, max float64) {
	min = verts[0].Dot(axis)
	max = min
	for _, v := range verts[1:] {
		d := v.Dot(axis)
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	return
}

// supportVertex returns the vertex furthest along dir; ties keep the first
// (lowest-index) vertex so results are deterministic.
func supportVertex(verts [4]Vec2, dir Vec2) Vec2 {
	best := verts[0]
	bestDot := best.Dot(dir)
	for _, v := range verts[1:] {
		if d := v.Dot(dir); d > bestDot {
			best, bestDot = v, d
		}
	}
	return best
}

// resolveManifold applies a contact impulse with rotation, then Coulomb
// friction against the tangent.
func resolveManifold(m *Manifold) {
	a, b := m.A, m.B
	if a.InvMass == 0 && b.InvMass == 0 {
		return
	}

	rA := m.Contact.Sub(a.Pos)
	rB := m.Contact.Sub(b.Pos)
	rv := b.velocityAt(rB).Sub(a.velocityAt(rA))
	velAlongNormal := rv.Dot(m.Normal)
	if velAlongNormal > 0 {
		return
	}

	invMassSum := a.InvMass + b.InvMass +
		sq(rA.Cross(m.Normal))*a.InvInertia +
		sq(rB.Cross(m.Normal))*b.InvInertia
	if invMassSum == 0 {
		return
	}

	j := -(1 + m.Restitution) * velAlongNormal / invMassSum
	impulse := m.Normal.Scale(j)
	a.applyImpulse(impulse.Scale(-1), rA)
	b.applyImpulse(impulse, rB)

	// Friction along the tangent, clamped by the normal impulse.
	rv = b.velocityAt(rB).Sub(a.velocityAt(rA))
	tangent := rv.Sub(m.Normal.Scale(rv.Dot(m.Normal)))
	tLenSq := tangent.LenSq()
	if tLenSq < 1e-12 {
		return
	}
	tangent = tangent.Scale(1 / math.Sqrt(tLenSq))
	invMassTan := a.InvMass + b.InvMass +
		sq(rA.Cross(tangent))*a.InvInertia +
		sq(rB.Cross(tangent))*b.InvInertia
	if invMassTan == 0 {
		return
	}
	jt := -rv.Dot(tangent) / invMassTan
	maxFriction := frictionCoef * abs(j)
	jt = Clamp(jt, -maxFriction, maxFriction)
	frictionImpulse := tangent.Scale(jt)
	a.applyImpulse(frictionImpulse.Scale(-1), rA)
	b.applyImpulse(frictionImpulse, rB)
}

// correctPosition bleeds off remaining penetration so stacks settle instead
// of sinking.
func correctPosition(m *Manifold) {
	const percent = 0.4
	const slop = 0.005

	a, b := m.A, m.B
	invMassSum := a.InvMass + b.InvMass
	if invMassSum == 0 || m.Penetration <= slop {
		return
	}
	correction := m.Normal.Scale((m.Penetration - slop) / invMassSum * percent)
	a.Pos = a.Pos.Sub(correction.Scale(a.InvMass))
	b.Pos = b.Pos.Add(correction.Scale(b.InvMass))
}

func sq(v float64) float64 { return v * v }

// fixtureContains reports whether the world-space point lies inside the
// fixture as placed by its body.
func fixtureContains(b *Body, f *Fixture, p Vec2) bool {
	fp, frot := b.FixtureWorld(f)
	if f.Shape.Kind == ShapeCircle {
		return p.Sub(fp).LenSq() <= f.Shape.Radius*f.Shape.Radius
	}
	local := p.Sub(fp).Rotate(-frot)
	return abs(local.X) <= f.Shape.HalfW && abs(local.Y) <= f.Shape.HalfH
}

// fixtureDistance returns the distance from a world-space point to the
// fixture surface, zero when inside.
func fixtureDistance(b *Body, f *Fixture, p Vec2) float64 {
	fp, frot := b.FixtureWorld(f)
	if f.Shape.Kind == ShapeCircle {
		d := p.Sub(fp).Len() - f.Shape.Radius
		if d < 0 {
			return 0
		}
		return d
	}
	local := p.Sub(fp).Rotate(-frot)
	dx := abs(local.X) - f.Shape.HalfW
	dy := abs(local.Y) - f.Shape.HalfH
	if dx < 0 {
		dx = 0
	}
	if dy < 0 {
		dy = 0
	}
	return math.Hypot(dx, dy)
}
