// Package capture grabs the screen into a frame buffer.
package capture

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	"github.com/menta2k/region-ocr/pkg/frame"
)

// VirtualScreen returns the union of all active display bounds
func VirtualScreen() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}
	return union, nil
}

// Screen captures every active display as one frame
func Screen() (*frame.Buffer, error) {
	bounds, err := VirtualScreen()
	if err != nil {
		return nil, err
	}
	return Rect(bounds)
}

// Display captures a single display by index
func Display(index int) (*frame.Buffer, error) {
	if n := screenshot.NumActiveDisplays(); index < 0 || index >= n {
		return nil, fmt.Errorf("display %d out of range (%d active)", index, n)
	}
	return Rect(screenshot.GetDisplayBounds(index))
}

// Rect captures an arbitrary virtual-screen rectangle
func Rect(bounds image.Rectangle) (*frame.Buffer, error) {
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to capture screen: %w", err)
	}
	return frame.FromImage(img)
}
