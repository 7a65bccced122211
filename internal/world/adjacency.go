package world

// NeighborOffsets defines the six-direction neighborhood used for every
// spatial pass (dynamics, migration, diffusion). Only the (-1,-1)/(1,1)
// diagonal pair counts as adjacent; the other two diagonals do not.
var NeighborOffsets = [6]Coord{
	{X: -1, Y: 0},
	{X: 1, Y: 0},
	{X: 0, Y: -1},
	{X: 0, Y: 1},
	{X: -1, Y: -1},
	{X: 1, Y: 1},
}

// AdjacencyIndex is a precomputed neighbor lookup over a cell set.
// Lookups are O(1) per coordinate.
type AdjacencyIndex struct {
	byCoord   map[Coord]*Cell
	neighbors map[Coord][]*Cell
}

// BuildAdjacency indexes the given cells and precomputes each cell's
// neighbor list using NeighborOffsets.
func BuildAdjacency(cells []*Cell) *AdjacencyIndex {
	idx := &AdjacencyIndex{
		byCoord:   make(map[Coord]*Cell, len(cells)),
		neighbors: make(map[Coord][]*Cell, len(cells)),
	}
	for _, c := range cells {
		idx.byCoord[c.Coord()] = c
	}
	for _, c := range cells {
		at := c.Coord()
		var ns []*Cell
		for _, off := range NeighborOffsets {
			if n, ok := idx.byCoord[Coord{X: at.X + off.X, Y: at.Y + off.Y}]; ok {
				ns = append(ns, n)
			}
		}
		idx.neighbors[at] = ns
	}
	return idx
}

// At returns the cell at the given coordinate, or nil.
func (idx *AdjacencyIndex) At(c Coord) *Cell {
	return idx.byCoord[c]
}

// Neighbors returns the cells adjacent to the given coordinate.
// Border cells have fewer than six neighbors.
func (idx *AdjacencyIndex) Neighbors(c Coord) []*Cell {
	return idx.neighbors[c]
}

// Len returns the number of indexed cells.
func (idx *AdjacencyIndex) Len() int {
	return len(idx.byCoord)
}
