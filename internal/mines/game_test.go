package mines

import (
	"math/rand/v2"
	"testing"
)

// gridOf builds a grid from explicit rows, trusting the caller to have
// written consistent adjacency counts.
func gridOf(t *testing.T, rows [][]int8) Grid {
	t.Helper()
	g := Grid{Width: len(rows[0]), Height: len(rows)}
	for _, row := range rows {
		if len(row) != g.Width {
			t.Fatal("ragged test grid")
		}
		g.Cells = append(g.Cells, row...)
	}
	return g
}

// Two mines walling the middle column so flood fill cannot cross.
func splitGrid(t *testing.T) Grid {
	return gridOf(t, [][]int8{
		{0, 2, Mine, 2, 0},
		{0, 2, Mine, 2, 0},
	})
}

func countRevealed(g *Game) int {
	n := 0
	for _, r := range g.Revealed {
		if r {
			n++
		}
	}
	return n
}

func TestRevealFloodStopsAtBorders(t *testing.T) {
	t.Parallel()

	g := NewGame(splitGrid(t))
	res := g.Reveal(0, 0, true)
	if !res.Changed || res.HitMine {
		t.Fatalf("unexpected result %+v", res)
	}

	// The left zero region plus its numbered border, nothing else.
	want := map[Cell]bool{
		{0, 0}: true, {1, 0}: true, {0, 1}: true, {1, 1}: true,
	}
	for r := range g.Grid.Height {
		for c := range g.Grid.Width {
			if have := g.Revealed[r*g.Grid.Width+c]; have != want[Cell{r, c}] {
				t.Errorf("revealed(%d,%d): have %v, want %v", r, c, have, want[Cell{r, c}])
			}
		}
	}
	if g.Over {
		t.Error("game should not be over")
	}
}

func TestRevealIsIdempotent(t *testing.T) {
	t.Parallel()

	g := NewGame(splitGrid(t))
	if res := g.Reveal(0, 1, true); !res.Changed {
		t.Fatal("first reveal should change the mask")
	}
	if res := g.Reveal(0, 1, true); res.Changed {
		t.Error("revealing a revealed cell must be a no-op")
	}
}

func TestRevealBlockedByMarks(t *testing.T) {
	t.Parallel()

	g := NewGame(splitGrid(t))

	g.ToggleFlag(0, 0) // flagged
	if res := g.Reveal(0, 0, true); res.Changed {
		t.Error("flagged cell must not reveal")
	}

	g.ToggleFlag(0, 0) // questioned
	if res := g.Reveal(0, 0, true); res.Changed {
		t.Error("questioned cell must not reveal")
	}

	g.ToggleFlag(0, 0) // back to none
	if res := g.Reveal(0, 0, true); !res.Changed {
		t.Error("unmarked cell should reveal")
	}
}

func TestRevealMineLosesAndExposesMines(t *testing.T) {
	t.Parallel()

	g := NewGame(splitGrid(t))
	res := g.Reveal(0, 2, true)
	if !res.HitMine {
		t.Fatal("expected to hit a mine")
	}
	if !g.Over || g.Won {
		t.Fatalf("expected a lost game, have over=%v won=%v", g.Over, g.Won)
	}
	if g.Bomb == nil || *g.Bomb != (Cell{0, 2}) {
		t.Errorf("bomb cell: have %v, want (0,2)", g.Bomb)
	}
	for i, v := range g.Grid.Cells {
		if v == Mine && !g.Revealed[i] {
			t.Errorf("mine at index %d not exposed after loss", i)
		}
	}

	// Terminal games are immutable.
	if res := g.Reveal(0, 0, true); res.Changed {
		t.Error("reveal after game over must be a no-op")
	}
	if _, ok := g.ToggleFlag(1, 0); ok {
		t.Error("flag after game over must be a no-op")
	}
}

func TestRevealWithoutFloodOpensOneCell(t *testing.T) {
	t.Parallel()

	g := NewGame(splitGrid(t))
	g.Reveal(0, 0, false)
	if have := countRevealed(g); have != 1 {
		t.Errorf("revealed cells: have %d, want 1", have)
	}
}

func TestWinOnLastSafeCell(t *testing.T) {
	t.Parallel()

	g := NewGame(gridOf(t, [][]int8{
		{Mine, 1},
		{1, 1},
	}))
	g.Reveal(0, 1, true)
	g.Reveal(1, 0, true)
	if g.Over {
		t.Fatal("game ended early")
	}
	res := g.Reveal(1, 1, true)
	if !res.Won || !g.Over || !g.Won {
		t.Errorf("expected a win, have %+v", res)
	}
}

func TestChordThreeFlags(t *testing.T) {
	t.Parallel()

	grid := gridOf(t, [][]int8{
		{Mine, 2, Mine},
		{2, 3, 1},
		{Mine, 1, 0},
	})
	g := NewGame(grid)
	g.Reveal(1, 1, true)
	g.ToggleFlag(0, 0)
	g.ToggleFlag(0, 2)
	g.ToggleFlag(2, 0)

	res := g.Chord(1, 1, true)
	if res.Mismatch || res.HitMine {
		t.Fatalf("unexpected result %+v", res)
	}
	// Every unflagged neighbor opens in one call; that happens to be
	// every safe cell here, so the game is won.
	if !res.Won {
		t.Error("expected chord to win the game")
	}
	for _, cell := range []Cell{{0, 0}, {0, 2}, {2, 0}} {
		if g.Revealed[cell.Row*grid.Width+cell.Col] {
			t.Errorf("chord revealed flagged cell %v", cell)
		}
	}
}

func TestChordFlagMismatchIsNoop(t *testing.T) {
	t.Parallel()

	g := NewGame(splitGrid(t))
	g.Reveal(0, 1, true)

	res := g.Chord(0, 1, true)
	if !res.Mismatch {
		t.Fatal("expected a flag-count mismatch")
	}
	if res.Changed {
		t.Error("mismatched chord must not reveal anything")
	}
}

func TestChordOnCoveredOrZeroCellIsNoop(t *testing.T) {
	t.Parallel()

	g := NewGame(splitGrid(t))
	if res := g.Chord(0, 1, true); res.Changed || res.Mismatch {
		t.Error("chord on a covered cell must be ignored")
	}
	g.Reveal(0, 0, false)
	if res := g.Chord(0, 0, true); res.Changed || res.Mismatch {
		t.Error("chord on a zero cell must be ignored")
	}
}

func TestChordMisplacedFlagLoses(t *testing.T) {
	t.Parallel()

	g := NewGame(gridOf(t, [][]int8{
		{Mine, 1, 0},
		{1, 1, 0},
		{0, 0, 0},
	}))
	g.Reveal(1, 1, true)
	g.ToggleFlag(0, 1) // wrong cell

	res := g.Chord(1, 1, true)
	if !res.HitMine || !g.Over || g.Won {
		t.Fatalf("expected chord to lose the game, have %+v", res)
	}
}

func TestMinesLeftMayGoNegative(t *testing.T) {
	t.Parallel()

	g := NewGame(splitGrid(t))
	for _, cell := range []Cell{{0, 0}, {1, 0}, {0, 4}} {
		g.ToggleFlag(cell.Row, cell.Col)
	}
	if have := g.MinesLeft(); have != -1 {
		t.Errorf("mines left: have %d, want -1", have)
	}
}

func TestFlagBlockedOnRevealedCell(t *testing.T) {
	t.Parallel()

	g := NewGame(splitGrid(t))
	g.Reveal(0, 1, false)
	if _, ok := g.ToggleFlag(0, 1); ok {
		t.Error("flagging a revealed cell must be rejected")
	}
}

func TestRestartKeepsLayout(t *testing.T) {
	t.Parallel()

	g := NewGame(splitGrid(t))
	g.Reveal(0, 0, true)
	g.ToggleFlag(0, 2)
	before := g.StartedAt

	g.Restart()

	if countRevealed(g) != 0 {
		t.Error("restart must clear the reveal mask")
	}
	for _, f := range g.Flags {
		if f != FlagNone {
			t.Error("restart must clear the flag mask")
		}
	}
	if g.Over || g.Won || g.Bomb != nil {
		t.Error("restart must clear terminal state")
	}
	if g.StartedAt.Before(before) {
		t.Error("restart must reset the timer")
	}
	if g.Grid.At(0, 2) != Mine {
		t.Error("restart must keep the mine layout")
	}
}

func TestGeneratedZeroRevealFloods(t *testing.T) {
	t.Parallel()

	rnd := rand.New(rand.NewPCG(1, 2))
	grid, err := Generate(Params{Width: 9, Height: 9, MineCount: 10}, rnd)
	if err != nil {
		t.Fatal(err)
	}

	for r := range grid.Height {
		for c := range grid.Width {
			if grid.At(r, c) != 0 {
				continue
			}
			g := NewGame(grid)
			g.Reveal(r, c, true)
			if have := countRevealed(g); have <= 1 {
				t.Fatalf("zero reveal at (%d,%d) opened %d cells", r, c, have)
			}
			for i, v := range g.Grid.Cells {
				if v == Mine && g.Revealed[i] {
					t.Fatal("flood fill revealed a mine")
				}
			}
			return
		}
	}
	t.Skip("no zero cell in generated grid")
}
