/*
Package animation contains the animation engine for addressable LED strips:
the color model, a library of time driven animation functions and the
compositor, NPAnimation, which evaluates a function matrix against its clock
on every tick and hands the finished buffer to a hardware sink.

A typical loop, assuming a sink for the strip:

	matrix := animation.Matrix{}.
		Add(animation.Span(0, 6), animation.HueShiftEffect{Period: 5 * time.Second}).
		Add([]int{18, 19}, animation.BrakeLightsEffect{})
	npa, err := animation.New(matrix, 0, sink)
	...
	for range ticker.C {
		if err := npa.Tick(animation.Inputs{"braking": true}); err != nil {
			...
		}
	}
*/
package animation

// Animation is an interface for types that generate and transmit a frame on
// every tick of a caller driven loop
type Animation interface {
	// Tick renders the frame for the current time with the supplied inputs
	// and writes it out
	Tick(in Inputs) error
	// Stop blanks the output and resets the clock
	Stop() error
}

var _ Animation = (*NPAnimation)(nil)
