package cmd

import (
	"strings"

	"github.com/fatih/color"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

func formatStatusWithColor(status string) string {
	switch strings.ToLower(status) {
	case "completed", "done", "secure", "ok":
		return colorSuccess(status)
	case "error", "failed":
		return colorError(status)
	case "not_secure", "cancelled", "pending":
		return colorWarn(status)
	default:
		return status
	}
}
