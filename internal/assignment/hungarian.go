package assignment

import "math"

// solveHungarian solves the minimum-weight perfect matching on a square cost
// matrix using the Kuhn-Munkres (Hungarian) algorithm with vertex
// potentials and shortest augmenting paths — O(n^3). This is the standard
// library implementation the "Scipy Hungarian dependency" design note in
// spec.md §9 calls for: the algorithmic contract (§4.5) is ours, the method
// is the textbook one scipy.optimize.linear_sum_assignment also uses.
//
// cost must be n x n. Returns rowToCol where rowToCol[i] is the column
// matched to row i, and the total cost of the matching.
func solveHungarian(cost [][]float64) (rowToCol []int, total float64) {
	n := len(cost)
	if n == 0 {
		return nil, 0
	}

	const inf = math.MaxFloat64 / 4

	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1) // p[j] = 1-indexed row currently matched to column j
	way := make([]int, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := range minv {
			minv[j] = inf
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1

			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}

			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}

			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		// Augment along the shortest path found.
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	rowToCol = make([]int, n)
	for j := 1; j <= n; j++ {
		if p[j] != 0 {
			rowToCol[p[j]-1] = j - 1
		}
	}

	for i, j := range rowToCol {
		total += cost[i][j]
	}
	return rowToCol, total
}
