package hunter

import (
	"github.com/lixenwraith/swim-mill/grid"
	"github.com/lixenwraith/swim-mill/parameter"
)

// NearestTargetColumn picks the column of the target to chase from (row, col)
// Rows are scanned outward from the hunter's row; the first row band holding any target wins
// Within that band the smallest horizontal distance wins, then the lower column
// With no target anywhere the goal is the home column
func NearestTargetColumn(b *grid.Board, row, col int) int {
	for d := 0; d < grid.Rows; d++ {
		best, bestDist := -1, grid.Cols

		for _, r := range bandRows(row, d) {
			for c := 0; c < grid.Cols; c++ {
				if !b.At(r, c).HasTarget() {
					continue
				}
				dist := abs(c - col)
				if dist < bestDist || (dist == bestDist && c < best) {
					best, bestDist = c, dist
				}
			}
		}

		if best >= 0 {
			return best
		}
	}
	return parameter.HunterHomeCol
}

// NextColumn moves one column from cur toward goal, clamped to the grid
func NextColumn(cur, goal int) int {
	next := cur
	switch {
	case goal > cur:
		next = cur + 1
	case goal < cur:
		next = cur - 1
	}
	if next < 0 {
		return 0
	}
	if next >= grid.Cols {
		return grid.Cols - 1
	}
	return next
}

// bandRows returns the on-grid rows at distance d from row
func bandRows(row, d int) []int {
	if d == 0 {
		return []int{row}
	}
	rows := make([]int, 0, 2)
	if r := row - d; r >= 0 {
		rows = append(rows, r)
	}
	if r := row + d; r < grid.Rows {
		rows = append(rows, r)
	}
	return rows
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
