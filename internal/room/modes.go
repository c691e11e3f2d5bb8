package room

import (
	"fmt"

	"github.com/vancomm/multisweeper/internal/mines"
)

// Presets are the named game modes every room can pick from. A room may
// instead select "custom" with its own validated parameters.
var Presets = map[string]mines.Params{
	"simple":  {Width: 9, Height: 9, MineCount: 10},
	"classic": {Width: 8, Height: 8, MineCount: 10},
	"medium":  {Width: 16, Height: 16, MineCount: 40},
	"expert":  {Width: 30, Height: 16, MineCount: 99},
}

const ModeCustom = "custom"

// Custom grid bounds. Mine count additionally has to satisfy
// 1 <= m < w*h.
const (
	minCustomWidth  = 5
	maxCustomWidth  = 50
	minCustomHeight = 5
	maxCustomHeight = 30
)

func validateCustom(p *mines.Params) error {
	if p == nil {
		return fmt.Errorf("%w: missing custom parameters", ErrInvalidMode)
	}
	if p.Width < minCustomWidth || p.Width > maxCustomWidth ||
		p.Height < minCustomHeight || p.Height > maxCustomHeight {
		return fmt.Errorf("%w: width/height out of allowed range", ErrInvalidMode)
	}
	if p.MineCount < 1 || p.MineCount >= p.Width*p.Height {
		return fmt.Errorf("%w: mine count out of range", ErrInvalidMode)
	}
	return nil
}

func describeMode(mode string, custom *mines.Params) string {
	if mode == ModeCustom && custom != nil {
		return fmt.Sprintf(
			"custom (%dx%d, %d mines)",
			custom.Width, custom.Height, custom.MineCount,
		)
	}
	return mode
}
