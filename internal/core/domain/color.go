package domain

// Color is the hint attached to console output. Sinks decide how to render it.
type Color int

const (
	ColorDefault Color = iota
	ColorGray
	ColorGreen
	ColorDarkGreen
	ColorYellow
	ColorRed
)

func (c Color) String() string {
	switch c {
	case ColorGray:
		return "gray"
	case ColorGreen:
		return "green"
	case ColorDarkGreen:
		return "dark_green"
	case ColorYellow:
		return "yellow"
	case ColorRed:
		return "red"
	default:
		return "default"
	}
}
