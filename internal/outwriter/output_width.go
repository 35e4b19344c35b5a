package outwriter

import (
	"os"

	"github.com/huangsam/xrays/internal/contract"
	"golang.org/x/term"
)

const (
	fallbackTermWidth = 80 // narrow terminals and CI
	minPathWidth      = 15
	maxPathWidth      = 70
)

// terminalWidth returns the width override or the detected stdout width.
func terminalWidth(cfg *contract.Config) int {
	if cfg.Width > 0 {
		return cfg.Width
	}
	detected, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || detected <= 0 {
		return fallbackTermWidth
	}
	return detected
}

// GetMaxTablePathWidth returns the room left for one path column once the
// fixed columns and table borders are accounted for. pathColumns splits the
// remainder between several path columns.
func GetMaxTablePathWidth(cfg *contract.Config, fixedWidth, pathColumns int) int {
	available := terminalWidth(cfg) - fixedWidth - 20 // borders, separators, padding
	if pathColumns > 1 {
		available /= pathColumns
	}
	return min(max(available, minPathWidth), maxPathWidth)
}
