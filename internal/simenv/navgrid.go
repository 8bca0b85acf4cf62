package simenv

import (
	"container/heap"
	"math"

	"mine-and-die/agent/internal/geom"
)

type navNeighbor struct {
	col      int
	row      int
	cost     float64
	diagonal bool
}

var navNeighborOffsets = [...]navNeighbor{
	{col: 0, row: -1, cost: 1},
	{col: 1, row: 0, cost: 1},
	{col: 0, row: 1, cost: 1},
	{col: -1, row: 0, cost: 1},
	{col: 1, row: -1, cost: math.Sqrt2, diagonal: true},
	{col: 1, row: 1, cost: math.Sqrt2, diagonal: true},
	{col: -1, row: 1, cost: math.Sqrt2, diagonal: true},
	{col: -1, row: -1, cost: math.Sqrt2, diagonal: true},
}

const (
	navCellSize = 2.0
	navMargin   = 8.0
	maxNavCells = 1 << 18
)

// navGrid rasterises obstacle footprints onto the ground plane. Height is
// ignored; a box blocks every cell its XY rectangle touches.
type navGrid struct {
	cols, rows       int
	originX, originY float64
	cellSize         float64
	walkable         []bool
}

type navPoint struct {
	col int
	row int
}

func newNavGrid(obstacles []Box, from, to geom.Vec3) *navGrid {
	minX, maxX := math.Min(from.X, to.X), math.Max(from.X, to.X)
	minY, maxY := math.Min(from.Y, to.Y), math.Max(from.Y, to.Y)
	for _, box := range obstacles {
		minX, maxX = math.Min(minX, box.Min.X), math.Max(maxX, box.Max.X)
		minY, maxY = math.Min(minY, box.Min.Y), math.Max(maxY, box.Max.Y)
	}
	minX -= navMargin
	minY -= navMargin
	maxX += navMargin
	maxY += navMargin

	cell := navCellSize
	for (maxX-minX)/cell*(maxY-minY)/cell > maxNavCells {
		cell *= 2
	}
	originX := math.Floor(minX/cell) * cell
	originY := math.Floor(minY/cell) * cell
	grid := &navGrid{
		cols:     int(math.Ceil((maxX-originX)/cell)) + 1,
		rows:     int(math.Ceil((maxY-originY)/cell)) + 1,
		originX:  originX,
		originY:  originY,
		cellSize: cell,
	}
	grid.walkable = make([]bool, grid.cols*grid.rows)
	for row := 0; row < grid.rows; row++ {
		for col := 0; col < grid.cols; col++ {
			x0 := originX + float64(col)*cell
			y0 := originY + float64(row)*cell
			blocked := false
			for _, box := range obstacles {
				if x0 <= box.Max.X && x0+cell >= box.Min.X && y0 <= box.Max.Y && y0+cell >= box.Min.Y {
					blocked = true
					break
				}
			}
			grid.walkable[grid.index(col, row)] = !blocked
		}
	}
	return grid
}

func (g *navGrid) inBounds(col, row int) bool {
	return col >= 0 && row >= 0 && col < g.cols && row < g.rows
}

func (g *navGrid) index(col, row int) int {
	return row*g.cols + col
}

func (g *navGrid) isWalkable(col, row int) bool {
	return g.inBounds(col, row) && g.walkable[g.index(col, row)]
}

func (g *navGrid) locate(p geom.Vec3) navPoint {
	return navPoint{
		col: int(math.Floor((p.X - g.originX) / g.cellSize)),
		row: int(math.Floor((p.Y - g.originY) / g.cellSize)),
	}
}

func (g *navGrid) canTraverseDiagonal(current navPoint, delta navNeighbor) bool {
	if !delta.diagonal {
		return true
	}
	return g.isWalkable(current.col+delta.col, current.row) && g.isWalkable(current.col, current.row+delta.row)
}

// closestWalkable finds the nearest open cell by breadth-first search, so an
// agent standing against a wall can still path out.
func (g *navGrid) closestWalkable(start navPoint) (navPoint, bool) {
	if !g.inBounds(start.col, start.row) {
		return navPoint{}, false
	}
	visited := map[int]struct{}{g.index(start.col, start.row): {}}
	queue := []navPoint{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if g.walkable[g.index(current.col, current.row)] {
			return current, true
		}
		for _, delta := range navNeighborOffsets[:4] {
			next := navPoint{col: current.col + delta.col, row: current.row + delta.row}
			if !g.inBounds(next.col, next.row) {
				continue
			}
			idx := g.index(next.col, next.row)
			if _, seen := visited[idx]; seen {
				continue
			}
			visited[idx] = struct{}{}
			queue = append(queue, next)
		}
	}
	return navPoint{}, false
}

func (g *navGrid) heuristic(a, b navPoint) float64 {
	dx := math.Abs(float64(a.col - b.col))
	dy := math.Abs(float64(a.row - b.row))
	if dx > dy {
		return dx + (math.Sqrt2-1)*dy
	}
	return dy + (math.Sqrt2-1)*dx
}

type pathNode struct {
	point navPoint
	g     float64
	f     float64
	index int
}

type pathQueue []*pathNode

func (pq pathQueue) Len() int { return len(pq) }

func (pq pathQueue) Less(i, j int) bool { return pq[i].f < pq[j].f }

func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	item := x.(*pathNode)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

func (g *navGrid) astar(start, goal navPoint) bool {
	open := &pathQueue{}
	heap.Push(open, &pathNode{point: start, f: g.heuristic(start, goal)})
	gScore := map[int]float64{g.index(start.col, start.row): 0}
	closed := make(map[int]struct{})

	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		currIdx := g.index(current.point.col, current.point.row)
		if _, seen := closed[currIdx]; seen {
			continue
		}
		closed[currIdx] = struct{}{}
		if current.point == goal {
			return true
		}

		for _, delta := range navNeighborOffsets {
			if !g.canTraverseDiagonal(current.point, delta) {
				continue
			}
			next := navPoint{col: current.point.col + delta.col, row: current.point.row + delta.row}
			if !g.isWalkable(next.col, next.row) {
				continue
			}
			idx := g.index(next.col, next.row)
			if _, seen := closed[idx]; seen {
				continue
			}
			tentative := current.g + delta.cost
			if prev, ok := gScore[idx]; ok && tentative >= prev {
				continue
			}
			gScore[idx] = tentative
			heap.Push(open, &pathNode{point: next, g: tentative, f: tentative + g.heuristic(next, goal)})
		}
	}
	return false
}

// reachable reports whether a walkable route joins from and to.
func (g *navGrid) reachable(from, to geom.Vec3) bool {
	goal := g.locate(to)
	if !g.isWalkable(goal.col, goal.row) {
		return false
	}
	start, ok := g.closestWalkable(g.locate(from))
	if !ok {
		return false
	}
	return g.astar(start, goal)
}
