package strategy

import "github.com/AllyMarthaJ/git-reabsorb/internal/domain"

// settle pushes hunks into later commits until every dependency is
// satisfied. Assignments only ever grow, so the loop terminates.
func settle(assign map[domain.HunkID]int, deps []domain.Dependency) {
	for changed := true; changed; {
		changed = false
		for _, d := range deps {
			before, okB := assign[d.Before]
			after, okA := assign[d.After]
			if okB && okA && before > after {
				assign[d.After] = before
				changed = true
			}
		}
	}
}

// stableOrder topologically sorts n nodes under edges (from, to), keeping
// the input order wherever the edges allow it. Cycles fall back to input order
// for the nodes involved.
func stableOrder(n int, edges [][2]int) []int {
	indeg := make([]int, n)
	out := make([][]int, n)
	for _, e := range edges {
		if e[0] == e[1] {
			continue
		}
		out[e[0]] = append(out[e[0]], e[1])
		indeg[e[1]]++
	}

	done := make([]bool, n)
	order := make([]int, 0, n)
	for len(order) < n {
		next := -1
		for i := 0; i < n; i++ {
			if !done[i] && indeg[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			for i := 0; i < n; i++ {
				if !done[i] {
					next = i
					break
				}
			}
		}
		done[next] = true
		order = append(order, next)
		for _, j := range out[next] {
			indeg[j]--
		}
	}
	return order
}
