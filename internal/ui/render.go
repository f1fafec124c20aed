// Package ui is the terminal front end: it draws the playfield, turns key
// presses into game events and asks for missing settings.
package ui

import (
	"strings"

	"github.com/pterm/pterm"

	"github.com/1ureka/pongon/internal/game"
	"github.com/1ureka/pongon/internal/physics"
)

// The playfield is drawn on a character grid; one cell covers
// cellWidth x cellHeight pixels.
const (
	cellWidth  = 8
	cellHeight = 16

	ballGlyph   = 'O'
	paddleGlyph = '█'
	emptyGlyph  = ' '
)

const helpLine = " W/↑ up   S/↓ down   Space stop   Enter chat   Esc/Q quit"

// Draw renders f as plain text: a header with both nicknames, the bordered
// playfield, the key help and, when chat is on, the scrollback and draft.
func Draw(f game.Frame) string {
	cols := int(f.Field.Width / cellWidth)
	rows := int(f.Field.Height / cellHeight)

	grid := make([][]rune, rows)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(string(emptyGlyph), cols))
	}

	drawPaddle(grid, f.Local)
	drawPaddle(grid, f.Remote)
	if r, c, ok := cell(grid, f.Ball); ok {
		grid[r][c] = ballGlyph
	}

	var b strings.Builder
	b.WriteString(header(f, cols+2))
	b.WriteByte('\n')

	border := "+" + strings.Repeat("-", cols) + "+\n"
	b.WriteString(border)
	for _, row := range grid {
		b.WriteByte('|')
		b.WriteString(string(row))
		b.WriteString("|\n")
	}
	b.WriteString(border)
	b.WriteString(helpLine)
	b.WriteByte('\n')

	if f.Chat != nil || f.Composing {
		b.WriteString("=== CHAT " + strings.Repeat("=", max(cols-7, 0)) + "\n")
		for _, line := range f.Chat {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		if f.Composing {
			b.WriteString("> " + f.Draft + "_\n")
		}
	}
	return b.String()
}

// header puts the left player's nickname on the left and the right player's
// on the right.
func header(f game.Frame, width int) string {
	left, right := f.LocalNick, f.RemoteNick
	if f.Local.X > f.Remote.X {
		left, right = right, left
	}
	pad := width - len([]rune(left)) - len([]rune(right)) - 2
	if pad < 1 {
		pad = 1
	}
	return " " + left + strings.Repeat(" ", pad) + right + " "
}

func drawPaddle(grid [][]rune, center physics.Vec2) {
	box := physics.BoxAt(center, game.PaddleWidth/2, game.PaddleHeight/2)
	_, c, ok := cell(grid, physics.Vec2{X: center.X, Y: clampY(grid, center.Y)})
	if !ok {
		return
	}
	top := int(box.Top / cellHeight)
	bottom := int((box.Bottom - 1) / cellHeight)
	for r := max(top, 0); r <= bottom && r < len(grid); r++ {
		grid[r][c] = paddleGlyph
	}
}

// cell maps a playfield point to a grid cell. Points outside the grid are
// reported with ok == false.
func cell(grid [][]rune, p physics.Vec2) (row, col int, ok bool) {
	if p.X < 0 || p.Y < 0 {
		return 0, 0, false
	}
	row, col = int(p.Y/cellHeight), int(p.X/cellWidth)
	if row >= len(grid) || len(grid) == 0 || col >= len(grid[0]) {
		return 0, 0, false
	}
	return row, col, true
}

func clampY(grid [][]rune, y float32) float32 {
	maxY := float32(len(grid)*cellHeight - 1)
	return min(max(y, 0), maxY)
}

// ---------------------------------------------------------------------------
// Renderer
// ---------------------------------------------------------------------------

// AreaRenderer draws frames in place with a pterm area.
type AreaRenderer struct {
	area *pterm.AreaPrinter
}

// StartRenderer takes over the terminal area below the cursor.
func StartRenderer() (*AreaRenderer, error) {
	area, err := pterm.DefaultArea.WithRemoveWhenDone().Start()
	if err != nil {
		return nil, err
	}
	return &AreaRenderer{area: area}, nil
}

func (r *AreaRenderer) Render(f game.Frame) {
	r.area.Update(Draw(f))
}

// Stop releases the area.
func (r *AreaRenderer) Stop() error {
	return r.area.Stop()
}
