package domain

import "sort"

// Board is a sparse map of occupied cells. A coordinate is present iff a living piece sits there.
type Board struct {
	cells map[Coord]Piece
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{cells: make(map[Coord]Piece)}
}

// Clone returns a deep copy.
func (b *Board) Clone() *Board {
	out := &Board{cells: make(map[Coord]Piece, len(b.cells))}
	for c, p := range b.cells {
		out.cells[c] = p
	}
	return out
}

// At returns the piece at c.
func (b *Board) At(c Coord) (Piece, bool) {
	p, ok := b.cells[c]
	return p, ok
}

// Occupied reports whether a piece sits at c.
func (b *Board) Occupied(c Coord) bool {
	_, ok := b.cells[c]
	return ok
}

// Put places p at c, replacing whatever was there.
func (b *Board) Put(c Coord, p Piece) {
	b.cells[c] = p
}

// Remove clears c and returns the removed piece.
func (b *Board) Remove(c Coord) (Piece, bool) {
	p, ok := b.cells[c]
	if ok {
		delete(b.cells, c)
	}
	return p, ok
}

// Relocate moves the piece at src to dst.
func (b *Board) Relocate(src, dst Coord) {
	p, ok := b.cells[src]
	if !ok {
		return
	}
	delete(b.cells, src)
	b.cells[dst] = p
}

// Reveal makes the piece at c visible to both players.
func (b *Board) Reveal(c Coord) {
	if p, ok := b.cells[c]; ok {
		b.cells[c] = p.Revealed()
	}
}

// Len returns the number of occupied cells.
func (b *Board) Len() int {
	return len(b.cells)
}

// Coords returns the occupied cells in row-major order.
func (b *Board) Coords() []Coord {
	out := make([]Coord, 0, len(b.cells))
	for c := range b.cells {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

// Each calls fn for every occupied cell in row-major order.
func (b *Board) Each(fn func(Coord, Piece)) {
	for _, c := range b.Coords() {
		fn(c, b.cells[c])
	}
}

// Count returns how many living pieces of owner satisfy pred.
func (b *Board) Count(owner Player, pred func(Piece) bool) int {
	n := 0
	for _, p := range b.cells {
		if p.Owner == owner && p.Alive && (pred == nil || pred(p)) {
			n++
		}
	}
	return n
}

// RemoveOwned clears every piece of owner.
func (b *Board) RemoveOwned(owner Player) int {
	n := 0
	for c, p := range b.cells {
		if p.Owner == owner {
			delete(b.cells, c)
			n++
		}
	}
	return n
}

// VisibleFor returns a read-only copy holding only the pieces player may see.
func (b *Board) VisibleFor(player Player) *Board {
	out := NewBoard()
	for c, p := range b.cells {
		if p.VisibleTo.Has(player) {
			out.cells[c] = p
		}
	}
	return out
}
