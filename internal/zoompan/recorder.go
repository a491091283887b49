package zoompan

// Gesture names reported to a Recorder.
const (
	GestureZoom       = "zoom"
	GestureBrush      = "brush"
	GesturePan        = "pan"
	GestureReset      = "reset"
	GestureFitElement = "fit_element"
	GestureFitScreen  = "fit_screen"
	GestureOverlap    = "overlap"
	GestureAutoExpand = "auto_expand"
)

// Recorder observes engine activity. Implementations must be cheap; they are
// called on the interaction goroutine.
type Recorder interface {
	Gesture(name string)
	Canvases(n int)
}

type nopRecorder struct{}

func (nopRecorder) Gesture(string) {}
func (nopRecorder) Canvases(int) {}
