package mines

import (
	"time"
)

// Game is one playthrough: an immutable Grid plus the reveal and flag
// masks shared by every player in a room. Reveal state only ever grows;
// once Over is set the game is immutable.
type Game struct {
	Grid      Grid
	Revealed  []bool
	Flags     []FlagState
	StartedAt time.Time
	Over      bool
	Won       bool
	Bomb      *Cell
}

func NewGame(grid Grid) *Game {
	return &Game{
		Grid:      grid,
		Revealed:  make([]bool, len(grid.Cells)),
		Flags:     make([]FlagState, len(grid.Cells)),
		StartedAt: time.Now(),
	}
}

// Restart resets the masks and timer but keeps the same mine layout.
func (g *Game) Restart() {
	g.Revealed = make([]bool, len(g.Grid.Cells))
	g.Flags = make([]FlagState, len(g.Grid.Cells))
	g.StartedAt = time.Now()
	g.Over = false
	g.Won = false
	g.Bomb = nil
}

type RevealResult struct {
	Changed bool
	HitMine bool
	Won     bool
}

// Reveal opens the cell at (r, c). Opening a mine loses the game and
// exposes every mine. Opening a zero runs an 8-connected flood fill
// when flood is set. Revealed or marked cells are left untouched.
func (g *Game) Reveal(r, c int, flood bool) RevealResult {
	if g.Over || !g.Grid.InBounds(r, c) {
		return RevealResult{}
	}
	i := r*g.Grid.Width + c
	if g.Revealed[i] || g.Flags[i] != FlagNone {
		return RevealResult{}
	}

	if g.Grid.At(r, c) == Mine {
		g.lose(&Cell{r, c})
		return RevealResult{Changed: true, HitMine: true}
	}

	if g.Grid.At(r, c) == 0 && flood {
		g.floodFrom(Cell{r, c})
	} else {
		g.Revealed[i] = true
	}

	if g.checkWin() {
		g.Over = true
		g.Won = true
	}
	return RevealResult{Changed: true, Won: g.Won}
}

// floodFrom opens every cell connected to start through zero-count
// cells, plus the non-zero border. Iterative on an explicit stack so
// large custom grids cannot blow the call stack; terminates because
// the reveal mask only grows.
func (g *Game) floodFrom(start Cell) {
	stack := []Cell{start}
	for len(stack) > 0 {
		cell := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		i := cell.Row*g.Grid.Width + cell.Col
		if g.Revealed[i] || g.Flags[i] != FlagNone {
			continue
		}
		g.Revealed[i] = true

		if g.Grid.At(cell.Row, cell.Col) == 0 {
			stack = append(stack, g.Grid.Neighbors(cell.Row, cell.Col)...)
		}
	}
}

type ChordResult struct {
	Changed  bool
	Mismatch bool
	HitMine  bool
	Won      bool
}

// Chord opens every unflagged, unrevealed neighbor of an already
// revealed numbered cell, provided the adjacent flag count matches the
// cell's number exactly. A mismatch is a benign no-op, reported so the
// requester can be notified. Revealing a mined neighbor loses the game.
func (g *Game) Chord(r, c int, flood bool) ChordResult {
	if g.Over || !g.Grid.InBounds(r, c) {
		return ChordResult{}
	}
	i := r*g.Grid.Width + c
	if !g.Revealed[i] || g.Grid.At(r, c) <= 0 {
		return ChordResult{}
	}

	var flags int8
	for _, n := range g.Grid.Neighbors(r, c) {
		if g.Flags[n.Row*g.Grid.Width+n.Col] == Flagged {
			flags++
		}
	}
	if flags != g.Grid.At(r, c) {
		return ChordResult{Mismatch: true}
	}

	stack := make([]Cell, 0, 8)
	for _, n := range g.Grid.Neighbors(r, c) {
		j := n.Row*g.Grid.Width + n.Col
		if !g.Revealed[j] && g.Flags[j] != Flagged {
			stack = append(stack, n)
		}
	}

	changed := false
	for len(stack) > 0 {
		cell := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		j := cell.Row*g.Grid.Width + cell.Col
		if g.Revealed[j] || g.Flags[j] == Flagged {
			continue
		}
		if g.Grid.At(cell.Row, cell.Col) == Mine {
			g.Revealed[j] = true
			g.lose(nil)
			return ChordResult{Changed: true, HitMine: true}
		}
		g.Revealed[j] = true
		changed = true

		if g.Grid.At(cell.Row, cell.Col) == 0 && flood {
			stack = append(stack, g.Grid.Neighbors(cell.Row, cell.Col)...)
		}
	}

	if g.checkWin() {
		g.Over = true
		g.Won = true
	}
	return ChordResult{Changed: changed, Won: g.Won}
}

// ToggleFlag advances the marking cycle on an unrevealed cell. The
// engine deliberately does not cap flags at the mine count, so the
// advisory mines-left counter may go negative.
func (g *Game) ToggleFlag(r, c int) (FlagState, bool) {
	if g.Over || !g.Grid.InBounds(r, c) {
		return FlagNone, false
	}
	i := r*g.Grid.Width + c
	if g.Revealed[i] {
		return FlagNone, false
	}
	g.Flags[i] = g.Flags[i].Next()
	return g.Flags[i], true
}

func (g *Game) MineCount() int {
	n := 0
	for _, v := range g.Grid.Cells {
		if v == Mine {
			n++
		}
	}
	return n
}

func (g *Game) FlaggedCount() int {
	n := 0
	for _, f := range g.Flags {
		if f == Flagged {
			n++
		}
	}
	return n
}

// MinesLeft is the advisory remaining-mine counter: placed mines minus
// cells currently flagged (question marks do not count).
func (g *Game) MinesLeft() int {
	return g.MineCount() - g.FlaggedCount()
}

// lose terminates the game and discloses every mine.
func (g *Game) lose(bomb *Cell) {
	g.Over = true
	g.Won = false
	g.Bomb = bomb
	for i, v := range g.Grid.Cells {
		if v == Mine {
			g.Revealed[i] = true
		}
	}
}

// checkWin reports whether every non-mine cell is revealed.
func (g *Game) checkWin() bool {
	for i, v := range g.Grid.Cells {
		if v != Mine && !g.Revealed[i] {
			return false
		}
	}
	return true
}

func (g *Game) Elapsed() time.Duration {
	return time.Since(g.StartedAt)
}

// RevealedRows and FlagRows lay the masks out as matrices for wire
// payloads.
func (g *Game) RevealedRows() [][]bool {
	rows := make([][]bool, g.Grid.Height)
	for r := range g.Grid.Height {
		rows[r] = g.Revealed[r*g.Grid.Width : (r+1)*g.Grid.Width]
	}
	return rows
}

func (g *Game) FlagRows() [][]FlagState {
	rows := make([][]FlagState, g.Grid.Height)
	for r := range g.Grid.Height {
		rows[r] = g.Flags[r*g.Grid.Width : (r+1)*g.Grid.Width]
	}
	return rows
}
