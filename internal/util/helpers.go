package util

import (
	"github.com/fatih/color"
)

var (
	Red        = color.New(color.FgRed).SprintFunc()
	RedBold    = color.New(color.FgRed, color.Bold).SprintFunc()
	Green      = color.New(color.FgGreen).SprintFunc()
	GreenBold  = color.New(color.FgGreen, color.Bold).SprintFunc()
	Yellow     = color.New(color.FgYellow).SprintFunc()
	YellowBold = color.New(color.FgYellow, color.Bold).SprintFunc()
	Blue       = color.New(color.FgBlue).SprintFunc()
	BlueBold   = color.New(color.FgBlue, color.Bold).SprintFunc()
	Purple     = color.New(color.FgMagenta).SprintFunc()
	Cyan       = color.New(color.FgCyan).SprintFunc()
	CyanBold   = color.New(color.FgCyan, color.Bold).SprintFunc()
	Gray       = color.New(color.FgHiBlack).SprintFunc()
	Bold       = color.New(color.Bold).SprintFunc()
)

// Plural returns singular when n is 1, otherwise plural.
func Plural(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

func GetOrdinalSuffix(day int) string {
	if day <= 0 {
		return ""
	}
	if day%100 >= 11 && day%100 <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
