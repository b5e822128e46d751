// Library floor-plan generation using layered simplex noise.
// Builds the outline, exits, offices, help desk, and shelf stacks
// deterministically, then lets noise decide which desk spots are furnished
// and where free-standing obstacles go.
package world

import (
	"fmt"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds floor-plan generation parameters.
type GenConfig struct {
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	Seed          int64   `yaml:"seed"`           // 0 = random
	DeskDensity   float64 `yaml:"desk_density"`   // 0.0–1.0, share of desk spots furnished
	ObstacleLevel float64 `yaml:"obstacle_level"` // noise threshold above which floor becomes obstacle
}

// DefaultGenConfig returns a mid-sized library.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:         48,
		Height:        32,
		Seed:          0,
		DeskDensity:   0.7,
		ObstacleLevel: 0.82,
	}
}

// SmallTestConfig returns a tiny library for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Width:         24,
		Height:        18,
		Seed:          42,
		DeskDensity:   0.8,
		ObstacleLevel: 0.85,
	}
}

// GenerateLibrary creates a layout using the default legend.
func GenerateLibrary(cfg GenConfig) (Layout, error) {
	if cfg.Width < 20 || cfg.Height < 15 {
		return Layout{}, fmt.Errorf("%w: generated library must be at least 20x15, got %dx%d",
			ErrConfig, cfg.Width, cfg.Height)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	// Two noise generators for independent layers.
	deskNoise := opensimplex.NewNormalized(seed)
	clutterNoise := opensimplex.NewNormalized(seed + 1)

	w, h := cfg.Width, cfg.Height
	cells := make([][]rune, h)
	for y := range cells {
		cells[y] = make([]rune, w)
		for x := range cells[y] {
			cells[y][x] = '.'
		}
	}
	set := func(x, y int, r rune) { cells[y][x] = r }

	// Outer walls.
	for x := 0; x < w; x++ {
		set(x, 0, '#')
		set(x, h-1, '#')
	}
	for y := 0; y < h; y++ {
		set(0, y, '#')
		set(w-1, y, '#')
	}

	// Exits: A on the west wall, B on the south wall, C on the east wall.
	set(0, h/2, 'A')
	set(0, h/2+1, 'A')
	set(w-5, h-1, 'B')
	set(w-4, h-1, 'B')
	set(w-1, 3, 'C')
	set(w-1, 4, 'C')

	// Staff offices along the north-west wall.
	for x := 1; x <= 3; x++ {
		set(x, 1, 'O')
	}

	// Help desk near the north wall: helper side, counter, visitor side.
	cx := w / 2
	for x := cx - 2; x <= cx+1; x++ {
		set(x, 2, 'k')
		set(x, 3, 'H')
		set(x, 4, 'h')
	}

	// Shelf stacks in the east half: shelf column, access column, aisle.
	for x := cx + 3; x <= w-5; x += 3 {
		for y := 7; y <= h-5; y++ {
			set(x, y, 'S')
			set(x+1, y, 's')
		}
	}

	// Desk rows in the west half: desk above its seat, two aisle rows between.
	for y := 7; y+1 <= h-4; y += 4 {
		for x := 2; x <= cx-3; x += 2 {
			if octaveNoise(deskNoise, float64(x), float64(y), 3, 0.15, 0.5) > 1-cfg.DeskDensity {
				set(x, y, 'D')
				set(x, y+1, 'd')
			}
		}
	}

	// Free-standing obstacles only where all eight neighbours are still
	// floor, so no walkable region is ever cut off.
	for y := 2; y < h-2; y++ {
		for x := 2; x < w-2; x++ {
			if cells[y][x] != '.' {
				continue
			}
			if octaveNoise(clutterNoise, float64(x), float64(y), 4, 0.3, 0.5) <= cfg.ObstacleLevel {
				continue
			}
			if surroundedByFloor(cells, x, y) {
				set(x, y, 'o')
			}
		}
	}

	rows := make([]string, h)
	for y := range cells {
		rows[y] = string(cells[y])
	}
	return Layout{
		Name:   fmt.Sprintf("library-%d", seed),
		Rows:   rows,
		Legend: DefaultLegend(),
	}, nil
}

func surroundedByFloor(cells [][]rune, x, y int) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if (dx != 0 || dy != 0) && cells[y+dy][x+dx] != '.' {
				return false
			}
		}
	}
	return true
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
