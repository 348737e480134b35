package utils

// Palette maps screen roles to Catppuccin Mocha colours.
type Palette struct {
	Title   string
	Accent  string
	Text    string
	Muted   string
	Border  string
	Success string
	Warning string
	Error   string
	Dialog  string
}

// Colours is the palette used by every view.
var Colours = Palette{
	Title:   "#cba6f7", // mauve
	Accent:  "#89b4fa", // blue
	Text:    "#cdd6f4",
	Muted:   "#6c7086", // overlay0
	Border:  "#45475a", // surface1
	Success: "#a6e3a1",
	Warning: "#f9e2af",
	Error:   "#f38ba8",
	Dialog:  "#181825", // mantle
}
