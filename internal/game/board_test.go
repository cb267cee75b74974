package game

import (
	"math/rand"
	"testing"
)

func testBoard(cfg Config, seed int64, firstSafe bool) *Board {
	return NewBoard(cfg, WithFirstClickSafe(firstSafe), WithRand(rand.New(rand.NewSource(seed))))
}

func countMines(b *Board) int {
	n := 0
	for r := 0; r < b.Rows(); r++ {
		for c := 0; c < b.Cols(); c++ {
			if b.Cell(r, c).Mine {
				n++
			}
		}
	}
	return n
}

func TestNewBoard_MineCountAndAdjacency(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{name: "beginner", cfg: Config{Cols: 9, Rows: 9, Mines: 10}},
		{name: "wide", cfg: Config{Cols: 30, Rows: 16, Mines: 99}},
		{name: "dense", cfg: Config{Cols: 4, Rows: 4, Mines: 15}},
		{name: "single mine", cfg: Config{Cols: 3, Rows: 3, Mines: 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := testBoard(tc.cfg, 7, false)

			if got := countMines(b); got != tc.cfg.Mines {
				t.Fatalf("mines placed: got %d, want %d", got, tc.cfg.Mines)
			}

			for r := 0; r < b.Rows(); r++ {
				for c := 0; c < b.Cols(); c++ {
					want := 0
					for dr := -1; dr <= 1; dr++ {
						for dc := -1; dc <= 1; dc++ {
							if dr == 0 && dc == 0 {
								continue
							}
							nr, nc := r+dr, c+dc
							if b.InBounds(nr, nc) && b.Cell(nr, nc).Mine {
								want++
							}
						}
					}
					if got := b.Cell(r, c).Adjacent; got != want {
						t.Fatalf("adjacent at (%d,%d): got %d, want %d", r, c, got, want)
					}
				}
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "valid", cfg: Config{Cols: 10, Rows: 10, Mines: 16}},
		{name: "zero cols", cfg: Config{Cols: 0, Rows: 10, Mines: 5}, wantErr: true},
		{name: "zero mines", cfg: Config{Cols: 10, Rows: 10, Mines: 0}, wantErr: true},
		{name: "all mines", cfg: Config{Cols: 3, Rows: 3, Mines: 9}, wantErr: true},
		{name: "max mines", cfg: Config{Cols: 3, Rows: 3, Mines: 8}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
		})
	}
}

func TestFirstClickSafe_ExcludesNeighborhood(t *testing.T) {
	cfg := Config{Cols: 9, Rows: 9, Mines: 10}
	for seed := int64(0); seed < 20; seed++ {
		b := testBoard(cfg, seed, true)

		res := b.Reveal(4, 4)
		if res.Outcome == OutcomeLost {
			t.Fatalf("seed %d: first reveal hit a mine", seed)
		}
		for dr := -1; dr <= 1; dr++ {
			for dc := -1; dc <= 1; dc++ {
				if b.Cell(4+dr, 4+dc).Mine {
					t.Fatalf("seed %d: mine inside first-click neighborhood at (%d,%d)", seed, 4+dr, 4+dc)
				}
			}
		}
		if got := countMines(b); got != cfg.Mines {
			t.Fatalf("seed %d: mines placed: got %d, want %d", seed, got, cfg.Mines)
		}
	}
}

func TestFirstClickSafe_TinyBoardFallsBackToCellOnly(t *testing.T) {
	// 2x2 with 3 mines: excluding the whole neighborhood leaves no room, so
	// only the clicked cell stays clear and revealing it wins outright.
	cfg := Config{Cols: 2, Rows: 2, Mines: 3}
	b := testBoard(cfg, 3, true)

	res := b.Reveal(0, 0)
	if b.Cell(0, 0).Mine {
		t.Fatalf("clicked cell was mined")
	}
	if got := countMines(b); got != cfg.Mines {
		t.Fatalf("mines placed: got %d, want %d", got, cfg.Mines)
	}
	if res.Outcome != OutcomeWon {
		t.Fatalf("want %v, got %v", OutcomeWon, res.Outcome)
	}
	if len(res.Mines) != cfg.Mines {
		t.Fatalf("want %d mines in result, got %d", cfg.Mines, len(res.Mines))
	}
}

func findCell(b *Board, pred func(Cell) bool) (int, int, bool) {
	for r := 0; r < b.Rows(); r++ {
		for c := 0; c < b.Cols(); c++ {
			if pred(b.Cell(r, c)) {
				return r, c, true
			}
		}
	}
	return 0, 0, false
}

func TestReveal_FloodFillAndIdempotence(t *testing.T) {
	b := testBoard(Config{Cols: 16, Rows: 16, Mines: 12}, 11, false)

	row, col, ok := findCell(b, func(c Cell) bool { return !c.Mine && c.Adjacent == 0 })
	if !ok {
		t.Skip("no zero-adjacency cell for this seed")
	}

	res := b.Reveal(row, col)
	if res.Outcome == OutcomeLost {
		t.Fatalf("revealed a mine unexpectedly")
	}
	if len(res.Cells) < 2 {
		t.Fatalf("zero-adjacency reveal should cascade, got %d cells", len(res.Cells))
	}
	for _, cu := range res.Cells {
		if b.Cell(cu.Row, cu.Col).Mine {
			t.Fatalf("flood fill revealed a mine at (%d,%d)", cu.Row, cu.Col)
		}
		if !b.Cell(cu.Row, cu.Col).Revealed {
			t.Fatalf("reported cell (%d,%d) not actually revealed", cu.Row, cu.Col)
		}
	}

	// The frontier of the region is numbered: every revealed zero cell has
	// all its neighbors revealed too.
	for _, cu := range res.Cells {
		if cu.Adjacent != 0 {
			continue
		}
		b.eachNeighbor(cu.Row, cu.Col, func(r, c int) {
			if !b.Cell(r, c).Revealed {
				t.Fatalf("neighbor (%d,%d) of zero cell (%d,%d) left unrevealed", r, c, cu.Row, cu.Col)
			}
		})
	}

	opened := b.Revealed()
	again := b.Reveal(row, col)
	if len(again.Cells) != 0 || b.Revealed() != opened {
		t.Fatalf("re-reveal mutated the board")
	}
}

func TestReveal_MineLoses(t *testing.T) {
	cfg := Config{Cols: 8, Rows: 8, Mines: 10}
	b := testBoard(cfg, 5, false)

	row, col, ok := findCell(b, func(c Cell) bool { return c.Mine })
	if !ok {
		t.Fatalf("no mine on board")
	}

	res := b.Reveal(row, col)
	if res.Outcome != OutcomeLost {
		t.Fatalf("want %v, got %v", OutcomeLost, res.Outcome)
	}
	if res.Detonated == nil || res.Detonated.Row != row || res.Detonated.Col != col {
		t.Fatalf("detonated point: got %+v, want (%d,%d)", res.Detonated, row, col)
	}
	if len(res.Mines) != cfg.Mines {
		t.Fatalf("mines in result: got %d, want %d", len(res.Mines), cfg.Mines)
	}
}

func TestReveal_SkipsFlaggedAndRevealed(t *testing.T) {
	b := testBoard(Config{Cols: 5, Rows: 5, Mines: 3}, 9, false)

	row, col, _ := findCell(b, func(c Cell) bool { return !c.Mine })
	if flagged, changed := b.ToggleFlag(row, col); !flagged || !changed {
		t.Fatalf("flagging an unrevealed cell failed")
	}

	res := b.Reveal(row, col)
	if len(res.Cells) != 0 || b.Revealed() != 0 {
		t.Fatalf("reveal of a flagged cell must be a no-op")
	}

	b.ToggleFlag(row, col)
	b.Reveal(row, col)
	if !b.Cell(row, col).Revealed {
		t.Fatalf("cell not revealed after unflagging")
	}
	if flagged, changed := b.ToggleFlag(row, col); flagged || changed {
		t.Fatalf("flagging a revealed cell must be a no-op")
	}
}

func TestReveal_WinsWhenAllSafeCellsOpen(t *testing.T) {
	b := testBoard(Config{Cols: 2, Rows: 1, Mines: 1}, 2, false)

	row, col, _ := findCell(b, func(c Cell) bool { return !c.Mine })
	res := b.Reveal(row, col)
	if res.Outcome != OutcomeWon {
		t.Fatalf("want %v, got %v", OutcomeWon, res.Outcome)
	}
	if b.Revealed() != 1 {
		t.Fatalf("opened count: got %d, want 1", b.Revealed())
	}
}
