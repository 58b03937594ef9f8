package attribute

// WindowSize is the number of zoom stops a zoom-function attribute samples.
const WindowSize = 4

// StopWindow selects the WindowSize zoom breakpoints to sample for a
// zoom-dependent property at zoom. zoomLevels must be ascending.
//
// The window starts two stops below the first breakpoint at or above zoom
// and is shifted back inside the list at either end. Lists shorter than
// WindowSize repeat their last entry. An empty list samples zoom itself.
// The returned offset is the index of the window's first breakpoint.
func StopWindow(zoomLevels []float64, zoom float64) (window [WindowSize]float64, offset int) {
	if len(zoomLevels) == 0 {
		return [WindowSize]float64{zoom, zoom, zoom, zoom}, 0
	}

	numStops := 0
	for _, z := range zoomLevels {
		if z < zoom {
			numStops++
		}
	}

	offset = max(0, min(len(zoomLevels)-WindowSize, numStops-2))
	last := len(zoomLevels) - 1
	for i := range window {
		window[i] = zoomLevels[min(offset+i, last)]
	}
	return window, offset
}

// InterpolationT converts a property's fractional stop index into the
// window-relative position the shader mixes with, clamped to [0, 4].
func InterpolationT(t float64, offset int) float64 {
	return max(0, min(WindowSize, t-float64(offset)))
}
