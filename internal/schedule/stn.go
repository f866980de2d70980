package schedule

import "math"

// The constraint network is materialized on demand from the ordered task
// list rather than mutated edge by edge: the edges between tasks depend
// only on adjacency, window and transfer data, all of which live on the
// tasks themselves. Rebuilding keeps insert and pop free of relabeling.
//
// Edge semantics follow the standard difference-constraint encoding: an
// edge (from, to, w) asserts t(to) - t(from) <= w. Node 0 is the reference
// timepoint at absolute time zero, so bounds against node 0 are absolute.

type edge struct {
	from, to int
	weight   float64
}

// constraintGraph materializes the schedule's STN. Node 0 is the reference;
// each pending timepoint of each task gets one node.
func (s *Schedule) constraintGraph() (nodes int, edges []edge) {
	nodes = 1
	prevFinish := -1
	prevLocation, havePrev := s.headOrigin()

	for i, id := range s.order {
		t := s.arena[id]
		loc := t.location()

		start := -1
		if !(i == 0 && t.startDone) {
			start = nodes
			nodes++
		}
		finish := nodes
		nodes++

		if start != -1 {
			// Window bounds the arrival; the transfer shifts the finish
			// bounds by the transfer duration.
			if end := t.windowEnd(); !math.IsInf(end, 1) {
				edges = append(edges, edge{0, start, end})
				edges = append(edges, edge{0, finish, end + t.transfer})
			}
			edges = append(edges, edge{start, 0, -t.windowStart()})
			edges = append(edges, edge{finish, 0, -(t.windowStart() + t.transfer)})

			// Duration: finish >= start + transfer.
			edges = append(edges, edge{finish, start, -t.transfer})

			// Sequencing: start >= previous finish + travel. For the
			// first task the previous timepoint is the reference node and
			// the travel starts from the vessel's current position.
			if prevFinish != -1 {
				travel := s.vessel.TravelTime(s.network.Distance(prevLocation, loc))
				edges = append(edges, edge{start, prevFinish, -travel})
			} else if i == 0 && havePrev {
				travel := s.vessel.TravelTime(s.network.Distance(prevLocation, loc))
				edges = append(edges, edge{start, 0, -(s.timeOrigin + travel)})
			}
		} else {
			// Mid-flight task: only the transfer end remains constrained.
			edges = append(edges, edge{finish, 0, -(t.windowStart() + t.transfer)})
			if end := t.windowEnd(); !math.IsInf(end, 1) {
				edges = append(edges, edge{0, finish, end + t.transfer})
			}
		}

		// Head bound applies to the first pending timepoint.
		if i == 0 {
			bound := s.headBound
			node := finish
			if start != -1 {
				node = start
			}
			edges = append(edges, edge{node, 0, -bound})
		}

		prevFinish = finish
		prevLocation, havePrev = loc, true
	}
	return nodes, edges
}

// hasNegativeCycle runs Bellman-Ford relaxation from a virtual source
// connected to every node. Edges with +Inf weight are vacuous and never
// materialized. A -Inf edge (an unreachable travel leg) is unsatisfiable by
// any finite timepoint assignment, so it is reported as infeasible outright
// rather than relied on to relax, where IEEE saturation would hide it.
func hasNegativeCycle(nodes int, edges []edge) bool {
	for _, e := range edges {
		if math.IsInf(e.weight, -1) {
			return true
		}
	}
	dist := make([]float64, nodes)
	for i := 0; i < nodes-1; i++ {
		changed := false
		for _, e := range edges {
			if d := dist[e.from] + e.weight; d < dist[e.to] {
				dist[e.to] = d
				changed = true
			}
		}
		if !changed {
			return false
		}
	}
	for _, e := range edges {
		if dist[e.from]+e.weight < dist[e.to] {
			return true
		}
	}
	return false
}
