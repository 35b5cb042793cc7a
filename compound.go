package main

import (
	"math"
	"sort"
)

// unionFind groups entity ids by transitive parent relation.
type unionFind struct {
	parent map[uint32]uint32
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[uint32]uint32)}
}

func (u *unionFind) find(id uint32) uint32 {
	root, ok := u.parent[id]
	if !ok {
		u.parent[id] = id
		return id
	}
	if root == id {
		return id
	}
	r := u.find(root)
	u.parent[id] = r
	return r
}

func (u *unionFind) union(a, b uint32) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	// Keep the smaller id as root so group identity is deterministic.
	if ra < rb {
		u.parent[rb] = ra
	} else {
		u.parent[ra] = rb
	}
}

// BuildBodies resolves authored parent relations into rigid bodies: one
// compound body per disjoint parent group, one plain body per ungrouped
// entity. Cycles are assumed already rejected at document load. A body's id
// is the lowest member entity id. Rebuilt only at load, never mid-match.
func BuildBodies(reg *EntityRegistry) []*Body {
	uf := newUnionFind()
	for _, e := range reg.All() {
		uf.find(e.ID)
		if e.Parent != 0 {
			uf.union(e.ID, e.Parent)
		}
	}

	groups := make(map[uint32][]*Entity)
	for _, e := range reg.All() {
		root := uf.find(e.ID)
		groups[root] = append(groups[root], e)
	}
	roots := make([]uint32, 0, len(groups))
	for root := range groups {
		roots = append(roots, root)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	bodies := make([]*Body, 0, len(roots))
	for _, root := range roots {
		bodies = append(bodies, buildCompound(groups[root]))
	}
	return bodies
}

// buildCompound assembles one rigid body from a member set. If any member is
// static the whole body is static; otherwise mass is the sum of member
// masses and inertia is taken about the combined center of mass.
func buildCompound(members []*Entity) *Body {
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })

	static := false
	totalMass := 0.0
	weighted := Vec2{}
	for _, e := range members {
		if e.Static {
			static = true
		}
		m := shapeMass(e.Shape)
		totalMass += m
		weighted = weighted.Add(e.Pos.Scale(m))
	}

	// Reference frame: center of mass for dynamic compounds, first member
	// placement for static ones (mass is meaningless there).
	var origin Vec2
	if static || totalMass == 0 {
		origin = members[0].Pos
	} else {
		origin = weighted.Scale(1 / totalMass)
	}

	b := &Body{
		ID:          members[0].ID,
		Pos:         origin,
		Static:      static,
		Restitution: members[0].Restitution,
	}
	inertia := 0.0
	for _, e := range members {
		local := e.Pos.Sub(origin)
		b.Fixtures = append(b.Fixtures, Fixture{
			EntityID: e.ID,
			Shape:    e.Shape,
			Local:    local,
			LocalRot: e.Rot,
			Category: e.Category,
			UserData: e.Category.UserData(),
		})
		switch e.Category {
		case CategoryGrabbable:
			b.Grabbable = true
		case CategoryDeath:
			b.Deadly = true
		}
		if e.Restitution > b.Restitution {
			b.Restitution = e.Restitution
		}
		m := shapeMass(e.Shape)
		inertia += shapeInertia(e.Shape, m) + m*local.LenSq()
	}

	if !static && totalMass > 0 {
		b.Mass = totalMass
		b.InvMass = 1 / totalMass
		b.Inertia = inertia
		if inertia > 0 {
			b.InvInertia = 1 / inertia
		}
	}
	return b
}

// shapeMass uses unit density, matching the authored physics.
func shapeMass(s Shape) float64 {
	if s.Kind == ShapeCircle {
		return math.Pi * s.Radius * s.Radius
	}
	return 4 * s.HalfW * s.HalfH
}

// shapeInertia is the moment about the shape's own centroid.
func shapeInertia(s Shape, mass float64) float64 {
	if s.Kind == ShapeCircle {
		return 0.5 * mass * s.Radius * s.Radius
	}
	w := 2 * s.HalfW
	h := 2 * s.HalfH
	return mass * (w*w + h*h) / 12
}
