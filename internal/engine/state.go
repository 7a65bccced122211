package engine

import (
	"github.com/talgya/civgrid/internal/civ"
	"github.com/talgya/civgrid/internal/world"
)

// tickState is the point-in-time snapshot a tick operates on. It is
// loaded once at the top of the tick; yearly phases mutate the contained
// populations in place and keep the indexes coherent so each phase sees
// its predecessor's writes.
type tickState struct {
	tick    int64
	year    int64
	yearEnd bool

	cells     []*world.Cell
	cellByID  map[string]*world.Cell
	adjacency *world.AdjacencyIndex

	pops        []*civ.Population
	popsByCoord map[world.Coord][]*civ.Population
	popByKey    map[popKey]*civ.Population

	civs    []*civ.Civilization
	civByID map[string]*civ.Civilization
}

// popKey identifies the at-most-one population per (cell, civilization).
type popKey struct {
	cellID string
	civID  string
}

func newTickState(tick, year int64, yearEnd bool, cells []*world.Cell, pops []*civ.Population, civs []*civ.Civilization) *tickState {
	st := &tickState{
		tick:        tick,
		year:        year,
		yearEnd:     yearEnd,
		cells:       cells,
		cellByID:    make(map[string]*world.Cell, len(cells)),
		adjacency:   world.BuildAdjacency(cells),
		pops:        pops,
		popsByCoord: make(map[world.Coord][]*civ.Population),
		popByKey:    make(map[popKey]*civ.Population, len(pops)),
		civs:        civs,
		civByID:     make(map[string]*civ.Civilization, len(civs)),
	}
	for _, c := range cells {
		st.cellByID[c.ID] = c
	}
	for _, p := range pops {
		st.index(p)
	}
	for _, c := range civs {
		st.civByID[c.ID] = c
	}
	return st
}

func (st *tickState) index(p *civ.Population) {
	coord := world.Coord{X: p.CellX, Y: p.CellY}
	st.popsByCoord[coord] = append(st.popsByCoord[coord], p)
	st.popByKey[popKey{cellID: p.CellID, civID: p.CivilizationID}] = p
}

// addPopulation registers a newly created population in every index.
func (st *tickState) addPopulation(p *civ.Population) {
	st.pops = append(st.pops, p)
	st.index(p)
}

// cellOf returns the cell a population sits on.
func (st *tickState) cellOf(p *civ.Population) *world.Cell {
	return st.cellByID[p.CellID]
}

// populationAt returns the population for a (cell, civilization) pair.
func (st *tickState) populationAt(cellID, civID string) *civ.Population {
	return st.popByKey[popKey{cellID: cellID, civID: civID}]
}

// alivePopsAt returns the non-inert populations on a coordinate.
func (st *tickState) alivePopsAt(coord world.Coord) []*civ.Population {
	var out []*civ.Population
	for _, p := range st.popsByCoord[coord] {
		if p.Alive() {
			out = append(out, p)
		}
	}
	return out
}

// neighborPops returns the non-inert populations on cells adjacent to the
// given coordinate.
func (st *tickState) neighborPops(coord world.Coord) []*civ.Population {
	var out []*civ.Population
	for _, cell := range st.adjacency.Neighbors(coord) {
		out = append(out, st.alivePopsAt(cell.Coord())...)
	}
	return out
}

// popsOfCiv returns the non-inert populations of one civilization.
func (st *tickState) popsOfCiv(civID string) []*civ.Population {
	var out []*civ.Population
	for _, p := range st.pops {
		if p.Alive() && p.CivilizationID == civID {
			out = append(out, p)
		}
	}
	return out
}

// totalSizeAt sums population on a coordinate across civilizations.
func (st *tickState) totalSizeAt(coord world.Coord) int64 {
	var total int64
	for _, p := range st.popsByCoord[coord] {
		total += p.Size
	}
	return total
}
