package client

import (
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"text/template"

	"stack/stack"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	resetPos = "\033[H" // Reset cursor position to 0,0

	// the view spans the whole oscillation plus a base block.
	viewMin   = -(stack.MoveAmount + 2)
	viewWidth = 2*(stack.MoveAmount+2) + 10

	defaultRows = 16
)

//go:embed "layout.tmpl"
var layout string

var hints = map[stack.State]string{
	stack.Ready:     "(space) start   (q)uit",
	stack.Playing:   "(space) drop the block   (q)uit",
	stack.Ended:     "(space) restart   (q)uit",
	stack.Resetting: "clearing the tower...",
}

type row struct {
	Front, Side string
}

type templateData struct {
	Rows   []row
	Score  int
	Notice string
	Hint   string
}

type render struct {
	writer   io.Writer
	logger   *slog.Logger
	template *template.Template
	rows     int
}

func newRender(l *slog.Logger, rows int) *render {
	if rows <= 0 {
		rows = defaultRows
	}
	return &render{
		writer:   os.Stdout,
		logger:   l,
		template: loadTemplate(),
		rows:     rows,
	}
}

func (r *render) frame(s *stack.Snapshot) {
	fmt.Fprint(r.writer, resetPos)
	data := &templateData{
		Rows:   tower(s.Blocks, r.rows),
		Score:  s.Score,
		Notice: s.Notice,
		Hint:   hints[s.State],
	}
	if err := r.template.Execute(r.writer, data); err != nil {
		r.logger.Error("unable to execute template in frame()", slog.String("error", err.Error()))
	}
}

func loadTemplate() *template.Template {
	funcMap := template.FuncMap{
		"border": border,
		"pad":    pad,
	}
	// the keyboard puts the console in raw mode, where new lines don't move
	// the cursor back to the first column.
	l := strings.ReplaceAll(layout, "\n", "\r\n")
	return template.Must(template.New("layout").Funcs(funcMap).Parse(l))
}

func border() string {
	line := strings.Repeat("-", viewWidth)
	return "+" + line + "+" + line + "+"
}

func pad(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat(" ", n-len(s))
}

// tower renders the top n blocks, highest first. Short towers are padded on
// top so the base always sits on the last row.
func tower(blocks []stack.Block, n int) []row {
	rows := make([]row, 0, n)
	for range n - min(n, len(blocks)) {
		rows = append(rows, row{Front: pad("", viewWidth), Side: pad("", viewWidth)})
	}
	for i := len(blocks) - 1; i >= 0 && len(rows) < n; i-- {
		rows = append(rows, row{Front: strip(blocks[i], stack.PlaneX), Side: strip(blocks[i], stack.PlaneZ)})
	}
	return rows
}

// strip draws a block as seen along one axis: one column per world unit.
func strip(b stack.Block, p stack.Plane) string {
	pos, dim := component(b.Position, p), component(b.Dimension, p)
	if dim <= 0 {
		return pad("", viewWidth)
	}
	from := clamp(int(math.Round(pos-viewMin)), 0, viewWidth)
	to := clamp(int(math.Round(pos+dim-viewMin)), from, viewWidth)
	red, green, blue := b.Color.RGB255()
	return strings.Repeat(" ", from) +
		fmt.Sprintf("\x1b[48;2;%d;%d;%dm%s\x1b[0m", red, green, blue, strings.Repeat(" ", to-from)) +
		strings.Repeat(" ", viewWidth-to)
}

func component(v mgl64.Vec3, p stack.Plane) float64 {
	if p == stack.PlaneX {
		return v.X()
	}
	return v.Z()
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
