package mines

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Mine marks a mined cell in a [Grid]. Every other cell holds its
// adjacent mine count (0..8).
const Mine int8 = -1

type Params struct {
	Width     int `json:"w"`
	Height    int `json:"h"`
	MineCount int `json:"m"`
}

var (
	ErrTooManyMines = fmt.Errorf("mine count must be less than cell count")
	ErrBadDims      = fmt.Errorf("invalid grid dimensions")
)

func (p Params) Validate() error {
	if p.Width < 1 || p.Height < 1 {
		return ErrBadDims
	}
	if p.MineCount < 1 || p.MineCount >= p.Width*p.Height {
		return ErrTooManyMines
	}
	return nil
}

func (p Params) CellCount() int {
	return p.Width * p.Height
}

// Grid is an immutable mine layout: a Height x Width matrix stored
// row-major, each cell either [Mine] or an adjacent mine count.
type Grid struct {
	Width  int
	Height int
	Cells  []int8
}

// Generate places p.MineCount mines uniformly at random (rejection
// sampling: redraw on collision) and fills in adjacency counts. There
// is no first-click safety: any cell may be a mine.
func Generate(p Params, rnd *rand.Rand) (Grid, error) {
	if err := p.Validate(); err != nil {
		return Grid{}, err
	}

	g := Grid{
		Width:  p.Width,
		Height: p.Height,
		Cells:  make([]int8, p.CellCount()),
	}

	placed := 0
	for placed < p.MineCount {
		i := rnd.IntN(len(g.Cells))
		if g.Cells[i] != Mine {
			g.Cells[i] = Mine
			placed++
		}
	}

	for r := range g.Height {
		for c := range g.Width {
			if g.At(r, c) == Mine {
				continue
			}
			var count int8
			for _, n := range g.Neighbors(r, c) {
				if g.At(n.Row, n.Col) == Mine {
					count++
				}
			}
			g.Cells[r*g.Width+c] = count
		}
	}

	return g, nil
}

type Cell struct {
	Row int `json:"r"`
	Col int `json:"c"`
}

func (g Grid) InBounds(r, c int) bool {
	return 0 <= r && r < g.Height && 0 <= c && c < g.Width
}

func (g Grid) At(r, c int) int8 {
	return g.Cells[r*g.Width+c]
}

// Neighbors returns the up-to-8 cells adjacent to (r, c).
func (g Grid) Neighbors(r, c int) []Cell {
	ns := make([]Cell, 0, 8)
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			if g.InBounds(r+dr, c+dc) {
				ns = append(ns, Cell{r + dr, c + dc})
			}
		}
	}
	return ns
}

// Rows lays the grid out as a matrix for wire payloads.
func (g Grid) Rows() [][]int8 {
	rows := make([][]int8, g.Height)
	for r := range g.Height {
		rows[r] = g.Cells[r*g.Width : (r+1)*g.Width]
	}
	return rows
}

func (g Grid) String() string {
	var b strings.Builder
	for r := range g.Height {
		for c := range g.Width {
			if v := g.At(r, c); v == Mine {
				b.WriteByte('*')
			} else {
				fmt.Fprintf(&b, "%d", v)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
