package game

import (
	"errors"
	"math/rand"
	"time"
)

// Config describes the board a room is created with.
type Config struct {
	Cols  int `json:"cols"`
	Rows  int `json:"rows"`
	Mines int `json:"mines"`
}

func (c Config) Validate() error {
	if c.Cols <= 0 || c.Rows <= 0 {
		return errors.New("board dimensions must be positive")
	}
	if c.Mines < 1 || c.Mines >= c.Cols*c.Rows {
		return errors.New("mine count out of range")
	}
	return nil
}

type Outcome string

const (
	OutcomeContinue Outcome = "Continue"
	OutcomeWon      Outcome = "Won"
	OutcomeLost     Outcome = "Lost"
)

type Point struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// CellUpdate is one cell revealed by a single operation.
type CellUpdate struct {
	Row      int `json:"row"`
	Col      int `json:"col"`
	Adjacent int `json:"adjacent"`
}

type FlagUpdate struct {
	Row     int  `json:"row"`
	Col     int  `json:"col"`
	Flagged bool `json:"flagged"`
}

// RevealResult collects everything a single reveal changed. Mines and
// Detonated are populated only on a terminal outcome.
type RevealResult struct {
	Outcome   Outcome      `json:"outcome"`
	Cells     []CellUpdate `json:"revealed_cells"`
	Mines     []Point      `json:"mines,omitempty"`
	Detonated *Point       `json:"detonated,omitempty"`
}

type Cell struct {
	Mine     bool
	Adjacent int
	Revealed bool
	Flagged  bool
}

// Board is a rows x cols minefield. It is not safe for concurrent use; the
// owning room serializes access.
type Board struct {
	cols, rows, mines int
	cells             [][]Cell
	opened            int
	placed            bool
	firstSafe         bool
	rng               *rand.Rand
}

type Option func(*Board)

// WithRand injects the mine-placement source, for deterministic tests.
func WithRand(r *rand.Rand) Option {
	return func(b *Board) { b.rng = r }
}

// WithFirstClickSafe controls whether mine placement is deferred to the first
// reveal and excludes the revealed cell plus its neighbors.
func WithFirstClickSafe(on bool) Option {
	return func(b *Board) { b.firstSafe = on }
}

func NewBoard(cfg Config, opts ...Option) *Board {
	cells := make([][]Cell, cfg.Rows)
	for r := range cells {
		cells[r] = make([]Cell, cfg.Cols)
	}
	b := &Board{
		cols:      cfg.Cols,
		rows:      cfg.Rows,
		mines:     cfg.Mines,
		cells:     cells,
		firstSafe: true,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(b)
	}
	if !b.firstSafe {
		b.placeMines(-1, -1)
	}
	return b
}

func (b *Board) Rows() int { return b.rows }
func (b *Board) Cols() int { return b.cols }

// Revealed reports how many non-mine cells have been opened so far.
func (b *Board) Revealed() int { return b.opened }

func (b *Board) Cell(row, col int) Cell { return b.cells[row][col] }

func (b *Board) InBounds(row, col int) bool {
	return row >= 0 && row < b.rows && col >= 0 && col < b.cols
}

func (b *Board) eachNeighbor(row, col int, fn func(r, c int)) {
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			if r, c := row+dr, col+dc; b.InBounds(r, c) {
				fn(r, c)
			}
		}
	}
}

// placeMines scatters the configured mine count. A valid exclusion point keeps
// that cell and its neighbors mine-free; if the board is too small for that,
// only the cell itself is excluded.
func (b *Board) placeMines(excludeRow, excludeCol int) {
	excluded := func(r, c int) bool {
		if excludeRow < 0 {
			return false
		}
		return r >= excludeRow-1 && r <= excludeRow+1 && c >= excludeCol-1 && c <= excludeCol+1
	}

	candidates := make([]Point, 0, b.rows*b.cols)
	for r := 0; r < b.rows; r++ {
		for c := 0; c < b.cols; c++ {
			if !excluded(r, c) {
				candidates = append(candidates, Point{Row: r, Col: c})
			}
		}
	}
	if len(candidates) < b.mines {
		candidates = candidates[:0]
		for r := 0; r < b.rows; r++ {
			for c := 0; c < b.cols; c++ {
				if r != excludeRow || c != excludeCol {
					candidates = append(candidates, Point{Row: r, Col: c})
				}
			}
		}
	}

	b.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	for _, p := range candidates[:b.mines] {
		b.cells[p.Row][p.Col].Mine = true
		b.eachNeighbor(p.Row, p.Col, func(r, c int) {
			b.cells[r][c].Adjacent++
		})
	}
	b.placed = true
}

// Reveal opens one cell. Revealed or flagged targets are a no-op. Opening a
// zero-adjacency cell flood-fills its connected region.
func (b *Board) Reveal(row, col int) RevealResult {
	if !b.placed {
		b.placeMines(row, col)
	}
	cell := &b.cells[row][col]
	if cell.Revealed || cell.Flagged {
		return RevealResult{Outcome: OutcomeContinue}
	}
	if cell.Mine {
		cell.Revealed = true
		p := Point{Row: row, Col: col}
		return RevealResult{Outcome: OutcomeLost, Mines: b.minePoints(), Detonated: &p}
	}

	cells := b.floodReveal(row, col)
	if b.opened == b.rows*b.cols-b.mines {
		return RevealResult{Outcome: OutcomeWon, Cells: cells, Mines: b.minePoints()}
	}
	return RevealResult{Outcome: OutcomeContinue, Cells: cells}
}

func (b *Board) floodReveal(row, col int) []CellUpdate {
	var out []CellUpdate
	stack := []Point{{Row: row, Col: col}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cell := &b.cells[p.Row][p.Col]
		if cell.Revealed || cell.Flagged {
			continue
		}
		cell.Revealed = true
		b.opened++
		out = append(out, CellUpdate{Row: p.Row, Col: p.Col, Adjacent: cell.Adjacent})
		if cell.Adjacent == 0 {
			// Neighbors of a zero cell are never mines.
			b.eachNeighbor(p.Row, p.Col, func(r, c int) {
				stack = append(stack, Point{Row: r, Col: c})
			})
		}
	}
	return out
}

// ToggleFlag flips the flag on an unrevealed cell. The second return is false
// when the cell is already revealed and nothing changed.
func (b *Board) ToggleFlag(row, col int) (bool, bool) {
	cell := &b.cells[row][col]
	if cell.Revealed {
		return false, false
	}
	cell.Flagged = !cell.Flagged
	return cell.Flagged, true
}

func (b *Board) minePoints() []Point {
	pts := make([]Point, 0, b.mines)
	for r := 0; r < b.rows; r++ {
		for c := 0; c < b.cols; c++ {
			if b.cells[r][c].Mine {
				pts = append(pts, Point{Row: r, Col: c})
			}
		}
	}
	return pts
}
