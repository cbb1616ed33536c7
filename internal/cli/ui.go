package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Terminal color palette shared by all commands.
var (
	colorCyan   = lipgloss.Color("36")  // primary actions
	colorGreen  = lipgloss.Color("35")  // success
	colorYellow = lipgloss.Color("220") // warnings
	colorRed    = lipgloss.Color("167") // errors
	colorBlue   = lipgloss.Color("75")  // commands
	colorWhite  = lipgloss.Color("255") // values
	colorGray   = lipgloss.Color("245") // secondary text
	colorDim    = lipgloss.Color("240") // muted text
)

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

// Styles exported for use by the TUI views.
var (
	StyleTitle     = fg(colorCyan).Bold(true)
	StyleHighlight = fg(colorCyan)
	StyleDim       = fg(colorDim)
	StyleValue     = fg(colorWhite)
	StyleNumber    = fg(colorCyan)
	StyleSuccess   = fg(colorGreen)
	StyleWarning   = fg(colorYellow)
)

var (
	styleIconSuccess = fg(colorGreen)
	styleIconError   = fg(colorRed)
	styleIconWarning = fg(colorYellow)
	styleIconInfo    = fg(colorGray)
	styleIconSpinner = fg(colorCyan)
	styleCached      = fg(colorGreen)
	styleComputed    = fg(colorGray)
	styleCommand     = fg(colorBlue)
	styleKey         = fg(colorGray).Width(18)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// statusLine renders an icon followed by a message.
func statusLine(iconStyle lipgloss.Style, icon, msg string) string {
	return iconStyle.Render(icon) + " " + msg
}

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	fmt.Println(statusLine(styleIconSuccess, iconSuccess, fmt.Sprintf(format, args...)))
}

// printError prints an error message.
func printError(format string, args ...any) {
	fmt.Println(statusLine(styleIconError, iconError, fmt.Sprintf(format, args...)))
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	fmt.Println(statusLine(styleIconWarning, iconWarning, StyleWarning.Render(fmt.Sprintf(format, args...))))
}

// printInfo prints an info message.
func printInfo(format string, args ...any) {
	fmt.Println(statusLine(styleIconInfo, iconInfo, fmt.Sprintf(format, args...)))
}

// printDetail prints an indented detail line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints an output file path.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value with aligned keys.
func printKeyValue(key, value string) {
	fmt.Println(styleKey.Render(key) + " " + StyleValue.Render(value))
}

// printStats prints map statistics on a single line.
func printStats(pointCount, domainCount int, cached bool) {
	var parts []string
	if pointCount > 0 {
		parts = append(parts, StyleDim.Render(fmt.Sprintf("%d points", pointCount)))
	}
	if domainCount > 0 {
		parts = append(parts, StyleDim.Render(fmt.Sprintf("%d domains", domainCount)))
	}
	if cached {
		parts = append(parts, styleCached.Render(iconCached))
	} else {
		parts = append(parts, styleComputed.Render(iconFresh))
	}
	fmt.Println("  " + strings.Join(parts, StyleDim.Render(" · ")))
}

// printNextStep prints a suggested follow-up command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// printNewline prints an empty line.
func printNewline() {
	fmt.Println()
}
