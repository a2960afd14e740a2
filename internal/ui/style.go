package ui

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/fatih/color"
)

// Sprint color functions for building styled strings.
var (
	Bold        = color.New(color.Bold).SprintFunc()
	Dim         = color.New(color.Faint).SprintFunc()
	Cyan        = color.New(color.FgCyan).SprintFunc()
	Green       = color.New(color.FgGreen).SprintFunc()
	Red         = color.New(color.FgRed).SprintFunc()
	Yellow      = color.New(color.FgYellow).SprintFunc()
	Magenta     = color.New(color.FgMagenta).SprintFunc()
	BoldCyan    = color.New(color.Bold, color.FgCyan).SprintFunc()
	BoldGreen   = color.New(color.Bold, color.FgGreen).SprintFunc()
	BoldYellow  = color.New(color.Bold, color.FgYellow).SprintFunc()
	BoldMagenta = color.New(color.Bold, color.FgMagenta).SprintFunc()
	BoldWhite   = color.New(color.Bold, color.FgWhite).SprintFunc()
)

// PrintBanner renders the critpath banner to w.
func PrintBanner(w io.Writer) {
	frame := color.New(color.FgCyan)
	bars := color.New(color.FgYellow)
	brand := color.New(color.Bold, color.FgMagenta)
	tag := color.New(color.Faint)

	fmt.Fprintln(w)
	frame.Fprintln(w, "   +----------------------------+")
	bars.Fprintln(w, "   |  ====                      |")
	bars.Fprintln(w, "   |      ========              |")
	bars.Fprintln(w, "   |              ======  ===   |")
	brand.Fprintln(w, "   |  C R I T P A T H           |")
	frame.Fprintln(w, "   +----------------------------+")
	tag.Fprintf(w, "   %s Critical path scheduling\n", Dim("📅"))
	fmt.Fprintln(w)
}

// taskColors is a palette of distinct bold colors for differentiating tasks.
var taskColors = []func(a ...interface{}) string{
	BoldMagenta,
	BoldCyan,
	BoldYellow,
	BoldGreen,
	color.New(color.Bold, color.FgHiBlue).SprintFunc(),
	color.New(color.Bold, color.FgHiRed).SprintFunc(),
}

// TaskID returns a colored #id. Each id gets a stable color from the palette.
func TaskID(id int) string {
	c := taskColors[id%len(taskColors)]
	return c("#" + strconv.Itoa(id))
}

// CriticalMarker returns the lightning marker for critical tasks, or a blank
// of the same width.
func CriticalMarker(critical bool) string {
	if critical {
		return BoldYellow("⚡")
	}
	return " "
}

// Slack renders slack rounded to one decimal place. Zero slack is red,
// a day or less is yellow, anything larger green.
func Slack(days float64) string {
	rounded := math.Round(days*10) / 10
	s := strconv.FormatFloat(rounded, 'f', 1, 64)
	switch {
	case rounded <= 0:
		return Red(s)
	case rounded <= 1:
		return Yellow(s)
	default:
		return Green(s)
	}
}

// WaveHeader returns a colored wave heading.
func WaveHeader(index int, critical bool) string {
	label := fmt.Sprintf("%s %d", BoldWhite("Wave"), index+1)
	if critical {
		return label + " " + BoldYellow("⚡")
	}
	return label
}
