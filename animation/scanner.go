package animation

// ScannerState is the cursor of the step driven form of the knight rider
// sweep. It is a value: Advance returns the next state and leaves the receiver
// untouched, so the owner decides when the cursor moves. Driven once per tick
// it visits 0, 1, ... n-1, n-2, ... 0 with an exact step count regardless of
// how much wall clock time passed between ticks.
type ScannerState struct {
	N    int // Number of pixels swept
	Pos  int // Position of the bright pixel
	Dir  int // +1 moving up, -1 moving down
	Tail int // Number of fading pixels trailing the bright pixel
}

// NewScanner creates a cursor at pixel 0 moving up
func NewScanner(n, tail int) ScannerState {
	if n < 0 {
		n = 0
	}
	if tail < 0 {
		tail = 0
	}
	return ScannerState{N: n, Dir: 1, Tail: tail}
}

// Advance moves the cursor by one pixel, bouncing at either end
func (s ScannerState) Advance() ScannerState {
	if s.N <= 1 {
		s.Pos = 0
		return s
	}
	if s.Dir == 0 {
		s.Dir = 1
	}
	switch {
	case s.Pos < 0:
		s.Pos = 0
	case s.Pos >= s.N:
		s.Pos = s.N - 1
	}
	next := s.Pos + s.Dir
	if next < 0 || next >= s.N {
		s.Dir = -s.Dir
		next = s.Pos + s.Dir
	}
	s.Pos = next
	return s
}

// Levels is the intensity of every pixel for the current cursor position, the
// bright pixel at 1 and the tail decaying linearly behind it
func (s ScannerState) Levels() []float64 {
	if s.N <= 0 {
		return nil
	}
	levels := make([]float64, s.N)
	dir := s.Dir
	if dir == 0 {
		dir = 1
	}
	for k := s.Tail; k >= 1; k-- {
		idx := s.Pos - dir*k
		if idx < 0 || idx >= s.N {
			continue
		}
		levels[idx] = float64(s.Tail-k+1) / float64(s.Tail+1)
	}
	if s.Pos >= 0 && s.Pos < s.N {
		levels[s.Pos] = 1
	}
	return levels
}
