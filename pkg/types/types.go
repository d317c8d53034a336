package types

import "math"

// Point is a position in frame pixel coordinates
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the euclidean distance between two points
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Corner identifies one of the four corners of a rectangle
type Corner int

const (
	TopLeft Corner = iota
	TopRight
	BottomLeft
	BottomRight
)

// Corners lists the corners in hit-test priority order
var Corners = [4]Corner{TopLeft, TopRight, BottomLeft, BottomRight}

// Opposite returns the diagonally opposite corner
func (c Corner) Opposite() Corner {
	switch c {
	case TopLeft:
		return BottomRight
	case TopRight:
		return BottomLeft
	case BottomLeft:
		return TopRight
	default:
		return TopLeft
	}
}

func (c Corner) String() string {
	switch c {
	case TopLeft:
		return "top-left"
	case TopRight:
		return "top-right"
	case BottomLeft:
		return "bottom-left"
	case BottomRight:
		return "bottom-right"
	}
	return "unknown"
}

// Rect is a selection rectangle described by two corner points. Min and Max
// are only ordered after Normalized has been applied.
type Rect struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// RectFromPoints builds a raw (possibly inverted) rectangle from two corners
func RectFromPoints(a, b Point) Rect {
	return Rect{Min: a, Max: b}
}

// Normalized returns the rectangle with Min <= Max on both axes
func (r Rect) Normalized() Rect {
	return Rect{
		Min: Point{X: math.Min(r.Min.X, r.Max.X), Y: math.Min(r.Min.Y, r.Max.Y)},
		Max: Point{X: math.Max(r.Min.X, r.Max.X), Y: math.Max(r.Min.Y, r.Max.Y)},
	}
}

// IsNormalized reports whether Min <= Max on both axes
func (r Rect) IsNormalized() bool {
	return r.Min.X <= r.Max.X && r.Min.Y <= r.Max.Y
}

// Width of the normalized rectangle
func (r Rect) Width() float64 {
	return math.Abs(r.Max.X - r.Min.X)
}

// Height of the normalized rectangle
func (r Rect) Height() float64 {
	return math.Abs(r.Max.Y - r.Min.Y)
}

// Corner returns the position of corner c of the normalized rectangle
func (r Rect) Corner(c Corner) Point {
	n := r.Normalized()
	switch c {
	case TopLeft:
		return n.Min
	case TopRight:
		return Point{X: n.Max.X, Y: n.Min.Y}
	case BottomLeft:
		return Point{X: n.Min.X, Y: n.Max.Y}
	default:
		return n.Max
	}
}

// Contains reports whether p lies inside the normalized rectangle
func (r Rect) Contains(p Point) bool {
	n := r.Normalized()
	return p.X >= n.Min.X && p.X <= n.Max.X && p.Y >= n.Min.Y && p.Y <= n.Max.Y
}

// Box is an axis-aligned bounding box given as a minimum corner and a size
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Right returns the x coordinate of the right edge
func (b Box) Right() float64 { return b.X + b.W }

// Bottom returns the y coordinate of the bottom edge
func (b Box) Bottom() float64 { return b.Y + b.H }

// Union returns the smallest box containing both b and o
func (b Box) Union(o Box) Box {
	x0 := math.Min(b.X, o.X)
	y0 := math.Min(b.Y, o.Y)
	x1 := math.Max(b.Right(), o.Right())
	y1 := math.Max(b.Bottom(), o.Bottom())
	return Box{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Scale multiplies position and size by f
func (b Box) Scale(f float64) Box {
	return Box{X: b.X * f, Y: b.Y * f, W: b.W * f, H: b.H * f}
}

// Translate moves the box by (dx, dy)
func (b Box) Translate(dx, dy float64) Box {
	return Box{X: b.X + dx, Y: b.Y + dy, W: b.W, H: b.H}
}

// Contains reports whether p lies inside the box
func (b Box) Contains(p Point) bool {
	return p.X >= b.X && p.X <= b.Right() && p.Y >= b.Y && p.Y <= b.Bottom()
}

// Polygon returns the four corners clockwise from the top-left
func (b Box) Polygon() [][2]float64 {
	return [][2]float64{
		{b.X, b.Y},
		{b.Right(), b.Y},
		{b.Right(), b.Bottom()},
		{b.X, b.Bottom()},
	}
}

// RecognizedWord is one token accepted from the OCR engine
type RecognizedWord struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// RecognizedLine groups words read left to right
type RecognizedLine struct {
	Words []RecognizedWord `json:"words"`
	Box   Box              `json:"box"`
}

// Text joins the words of the line with single spaces
func (l RecognizedLine) Text() string {
	n := 0
	for _, w := range l.Words {
		n += len(w.Text) + 1
	}
	buf := make([]byte, 0, n)
	for i, w := range l.Words {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, w.Text...)
	}
	return string(buf)
}

// OcrResult pairs recognized text with the polygon it was read from
type OcrResult struct {
	Text    string       `json:"text"`
	Polygon [][2]float64 `json:"polygon"`
}

// Chunk is one unit of incremental output delivered by a backend job
type Chunk struct {
	Text    string      `json:"text"`
	Results []OcrResult `json:"results,omitempty"`
	// Err is set on the terminal chunk of a failed job. Text carries the
	// user-visible rendering of it when the backend reports failures as text.
	Err error `json:"-"`
}

// Accepted ranges for the local engine tunables
const (
	MinPageSegMode = 0
	MaxPageSegMode = 13
	MinEngineMode  = 0
	MaxEngineMode  = 3
	MinDPI         = 50
	MaxDPI         = 300
)

// BackendConfig holds the per-backend tunables read at submit time
type BackendConfig struct {
	Model       string `json:"model" yaml:"model" mapstructure:"model"`
	Prompt      string `json:"prompt" yaml:"prompt" mapstructure:"prompt"`
	Language    string `json:"language" yaml:"language" mapstructure:"language"`
	PageSegMode int    `json:"psm" yaml:"psm" mapstructure:"psm"`
	EngineMode  int    `json:"oem" yaml:"oem" mapstructure:"oem"`
	DPI         int    `json:"dpi" yaml:"dpi" mapstructure:"dpi"`
}

// DefaultBackendConfig mirrors the local engine defaults (eng, PSM 6, OEM 3, 150 dpi)
func DefaultBackendConfig() BackendConfig {
	return BackendConfig{
		Language:    "eng",
		PageSegMode: 6,
		EngineMode:  3,
		DPI:         150,
	}
}

// Clamped returns a copy with every numeric tunable forced into its accepted range
func (c BackendConfig) Clamped() BackendConfig {
	c.PageSegMode = clampInt(c.PageSegMode, MinPageSegMode, MaxPageSegMode)
	c.EngineMode = clampInt(c.EngineMode, MinEngineMode, MaxEngineMode)
	c.DPI = clampInt(c.DPI, MinDPI, MaxDPI)
	return c
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
