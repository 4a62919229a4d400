package grid

// Cell is the occupancy state of one grid cell
// A cell holds at most one target marker and at most one hunter
type Cell uint8

const (
	Blank  Cell = iota // Nothing here
	Target             // A falling target
	Hunter             // The hunter
	Both               // Target and hunter share the cell (collision)
)

// Wire encoding of each state inside the shared region
// Target and Both carry the 0x80 marker bit over their base glyph
const (
	byteBlank  byte = ' '
	byteTarget byte = ' ' | markerBit
	byteHunter byte = 'f'
	byteBoth   byte = 'f' | markerBit

	markerBit byte = 0x80
)

// HasTarget reports whether a target occupies the cell
func (c Cell) HasTarget() bool {
	return c == Target || c == Both
}

// HasHunter reports whether the hunter occupies the cell
func (c Cell) HasHunter() bool {
	return c == Hunter || c == Both
}

// WithTarget adds the target marker, combining with a hunter into Both
func (c Cell) WithTarget() Cell {
	if c.HasHunter() {
		return Both
	}
	return Target
}

// WithoutTarget removes the target marker, keeping the hunter if present
func (c Cell) WithoutTarget() Cell {
	if c.HasHunter() {
		return Hunter
	}
	return Blank
}

// WithHunter adds the hunter, combining with a target into Both
func (c Cell) WithHunter() Cell {
	if c.HasTarget() {
		return Both
	}
	return Hunter
}

// WithoutHunter removes the hunter, keeping the target if present
func (c Cell) WithoutHunter() Cell {
	if c.HasTarget() {
		return Target
	}
	return Blank
}

// Byte returns the wire encoding of the cell
func (c Cell) Byte() byte {
	switch c {
	case Target:
		return byteTarget
	case Hunter:
		return byteHunter
	case Both:
		return byteBoth
	default:
		return byteBlank
	}
}

// Glyph returns the printable character used by Render
func (c Cell) Glyph() byte {
	switch c {
	case Target:
		return 'o'
	case Hunter:
		return 'f'
	case Both:
		return '*'
	default:
		return ' '
	}
}

func (c Cell) String() string {
	switch c {
	case Blank:
		return "blank"
	case Target:
		return "target"
	case Hunter:
		return "hunter"
	case Both:
		return "both"
	default:
		return "invalid"
	}
}

// CellFromByte decodes a wire byte; ok is false for bytes outside the encoding, which decode as Blank
func CellFromByte(b byte) (c Cell, ok bool) {
	switch b {
	case byteBlank:
		return Blank, true
	case byteTarget:
		return Target, true
	case byteHunter:
		return Hunter, true
	case byteBoth:
		return Both, true
	default:
		return Blank, false
	}
}
