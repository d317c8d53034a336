package selection

import (
	"fmt"

	"github.com/menta2k/region-ocr/pkg/types"
)

// DefaultHandleRadius is the pixel distance within which a pointer-down grabs a corner
const DefaultHandleRadius = 8.0

// DragKind tags the variant held by DragMode
type DragKind int

const (
	Idle DragKind = iota
	Creating
	ResizingCorner
)

// DragMode governs how pointer movement updates the selection.
// Corner is only meaningful when Kind is ResizingCorner.
type DragMode struct {
	Kind   DragKind
	Corner types.Corner
}

func (m DragMode) String() string {
	switch m.Kind {
	case Idle:
		return "idle"
	case Creating:
		return "creating"
	case ResizingCorner:
		return fmt.Sprintf("resizing(%s)", m.Corner)
	}
	return "unknown"
}

// Controller is the pointer-driven selection state machine
type Controller struct {
	rect         types.Rect
	hasRect      bool
	mode         DragMode
	anchor       types.Point
	handleRadius float64
}

// NewController creates a controller with the default handle radius
func NewController() *Controller {
	return NewControllerWithRadius(DefaultHandleRadius)
}

// NewControllerWithRadius creates a controller with a custom handle radius
func NewControllerWithRadius(radius float64) *Controller {
	if radius <= 0 {
		radius = DefaultHandleRadius
	}
	return &Controller{handleRadius: radius}
}

// PointerDown starts a drag. It reports true when a brand-new selection was
// started, in which case everything derived from the previous one is stale.
// A press while a drag is already active is ignored.
func (c *Controller) PointerDown(pos types.Point) bool {
	if c.mode.Kind != Idle {
		return false
	}

	if corner, ok := c.HandleAt(pos); ok {
		c.mode = DragMode{Kind: ResizingCorner, Corner: corner}
		c.anchor = c.rect.Corner(corner.Opposite())
		c.rect = types.RectFromPoints(c.anchor, pos)
		return false
	}

	c.mode = DragMode{Kind: Creating}
	c.anchor = pos
	c.rect = types.RectFromPoints(pos, pos)
	c.hasRect = true
	return true
}

// PointerDrag moves the free corner of the selection
func (c *Controller) PointerDrag(pos types.Point) {
	if c.mode.Kind == Idle || !c.hasRect {
		return
	}
	c.rect = types.RectFromPoints(c.anchor, pos)
}

// PointerUp ends the drag, normalizes the rectangle and returns it as the
// finalized selection. ok is false when no drag was in progress.
func (c *Controller) PointerUp() (rect types.Rect, ok bool) {
	wasDragging := c.mode.Kind != Idle
	c.mode = DragMode{Kind: Idle}
	if !wasDragging || !c.hasRect {
		return types.Rect{}, false
	}
	c.rect = c.rect.Normalized()
	return c.rect, true
}

// HandleAt returns the corner handle of the current selection under pos
func (c *Controller) HandleAt(pos types.Point) (types.Corner, bool) {
	if !c.hasRect {
		return 0, false
	}
	n := c.rect.Normalized()
	for _, corner := range types.Corners {
		if n.Corner(corner).Distance(pos) < c.handleRadius {
			return corner, true
		}
	}
	return 0, false
}

// Selection returns the current selection, normalized
func (c *Controller) Selection() (types.Rect, bool) {
	if !c.hasRect {
		return types.Rect{}, false
	}
	return c.rect.Normalized(), true
}

// Mode returns the current drag mode
func (c *Controller) Mode() DragMode { return c.mode }

// HandleRadius returns the configured grab radius
func (c *Controller) HandleRadius() float64 { return c.handleRadius }

// Reset drops the selection and returns to Idle
func (c *Controller) Reset() {
	*c = Controller{handleRadius: c.handleRadius}
}
