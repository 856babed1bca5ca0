package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/schulte/internal/model"
)

const (
	cellWidth = 4
	cellPitch = cellWidth + 1 // cell plus separator column
	rowPitch  = 2             // row plus blank gap line
	// border plus one column of horizontal padding
	boxInsetX = 2
	boxInsetY = 1
	// header line and blank line above the grid box
	headerLines = 2
	fixationDot = "•"
)

var (
	cellStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#101010")).Background(lipgloss.Color("#C89A3A"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	fixationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Background(lipgloss.Color("#3A3A3A"))
	dotStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#6E6E6E")).Padding(0, 1)
	flashBoxStyle = boxStyle.BorderForeground(lipgloss.Color("#FF4D4F"))
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
)

// gridLayout locates the grid box on screen.
type gridLayout struct {
	size int
	top  int // first line of the view block
	left int // first column of the grid box
}

func gridContentWidth(size int) int {
	return size*cellPitch - 1
}

func gridContentHeight(size int) int {
	return size*rowPitch - 1
}

func gridBoxWidth(size int) int {
	return gridContentWidth(size) + 2*boxInsetX
}

func gridBoxHeight(size int) int {
	return gridContentHeight(size) + 2*boxInsetY
}

// blockHeight is the header, the grid box, a blank line and the footer.
func blockHeight(size int) int {
	return headerLines + gridBoxHeight(size) + 2
}

func computeLayout(size, width, height int) gridLayout {
	return gridLayout{
		size: size,
		top:  max(0, (height-blockHeight(size))/2),
		left: max(0, (width-gridBoxWidth(size))/2),
	}
}

// cellAt maps a screen position to a grid cell. Each cell owns its column
// separator and the gap line below it.
func (l gridLayout) cellAt(x, y int) (row, col int, ok bool) {
	dx := x - (l.left + boxInsetX)
	dy := y - (l.top + headerLines + boxInsetY)
	if dx < 0 || dy < 0 {
		return 0, 0, false
	}
	row = dy / rowPitch
	col = dx / cellPitch
	if row >= l.size || col >= l.size {
		return 0, 0, false
	}
	return row, col, true
}

type gridMarks struct {
	cursorRow, cursorCol int
	hint                 int // value to highlight, 0 for none
	fixation             bool
}

// renderGrid draws the cells without the surrounding box.
func renderGrid(g model.Grid, marks gridMarks) string {
	center := g.Size / 2
	oddSize := g.Size%2 == 1
	lines := make([]string, 0, gridContentHeight(g.Size))
	for r := 0; r < g.Size; r++ {
		cells := make([]string, 0, g.Size)
		for c := 0; c < g.Size; c++ {
			v := g.At(r, c)
			text := padCenter(strconv.Itoa(v), cellWidth)
			style := cellStyle
			switch {
			case r == marks.cursorRow && c == marks.cursorCol:
				style = cursorStyle
			case marks.hint != 0 && v == marks.hint:
				style = hintStyle
			case marks.fixation && oddSize && r == center && c == center:
				style = fixationStyle
			}
			cells = append(cells, style.Render(text))
		}
		lines = append(lines, strings.Join(cells, " "))
		if r < g.Size-1 {
			lines = append(lines, gapLine(g.Size, marks.fixation && !oddSize && r == center-1))
		}
	}
	return strings.Join(lines, "\n")
}

// gapLine is the blank line between rows. With dot set it carries the
// fixation dot at the grid centre.
func gapLine(size int, dot bool) string {
	width := gridContentWidth(size)
	if !dot {
		return strings.Repeat(" ", width)
	}
	pos := (size/2)*cellPitch - 1
	return strings.Repeat(" ", pos) + dotStyle.Render(fixationDot) + strings.Repeat(" ", width-pos-1)
}

func padCenter(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	left := (width - w) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-w-left)
}

// indent prefixes every line of block with n spaces.
func indent(block string, n int) string {
	if n <= 0 {
		return block
	}
	pad := strings.Repeat(" ", n)
	lines := strings.Split(block, "\n")
	for i, line := range lines {
		lines[i] = pad + line
	}
	return strings.Join(lines, "\n")
}

// centerLine pads s so that it is centred within width.
func centerLine(s string, width int) string {
	return indent(s, (width-lipgloss.Width(s))/2)
}
