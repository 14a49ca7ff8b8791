package colours

import "github.com/fatih/color"

// Color scheme for the CLI
var (
	Title   = color.New(color.FgCyan, color.Bold)
	Topic   = color.New(color.FgMagenta)
	Prompt  = color.New(color.FgGreen, color.Bold)
	Error   = color.New(color.FgRed, color.Bold)
	Success = color.New(color.FgGreen)
	Info    = color.New(color.FgBlue)
	Warning = color.New(color.FgYellow)

	// Highlight marks the sentence being spoken
	Highlight = color.New(color.FgBlack, color.BgYellow)
	// Translation is used for the English text under each paragraph
	Translation = color.New(color.Faint, color.Italic)
)
