package animation

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrTrackEmpty is returned for a track without any keyframes
	ErrTrackEmpty = errors.New("keyframe track is empty")
	// ErrTrackOrder is returned when timestamps are not strictly increasing
	ErrTrackOrder = errors.New("keyframe timestamps must be strictly increasing")
	// ErrTrackTime is returned for a keyframe with a negative timestamp
	ErrTrackTime = errors.New("keyframe timestamps must not be negative")
)

// Keyframe is a color pinned at an offset from the start of an animation
type Keyframe struct {
	At    time.Duration
	Color Color
}

// Track is an ordered series of keyframes. Before the first keyframe the first
// color holds, from the last keyframe onward the last color holds, unless the
// track is Cyclic in which case time is taken modulo the timestamp of the last
// keyframe. Colors are interpolated linearly between keyframes, or held until
// the next keyframe when Step is set.
type Track struct {
	Frames []Keyframe
	Cyclic bool
	Step   bool
}

// NewTrack validates frames and builds a linearly interpolated track
func NewTrack(frames []Keyframe, cyclic bool) (Track, error) {
	track := Track{Frames: frames, Cyclic: cyclic}
	if err := track.Validate(); err != nil {
		return Track{}, err
	}
	return track, nil
}

// Validate checks the ordering invariants of the track
func (t Track) Validate() error {
	if len(t.Frames) == 0 {
		return ErrTrackEmpty
	}
	for i, kf := range t.Frames {
		if kf.At < 0 {
			return fmt.Errorf("keyframe %d at %v: %w", i, kf.At, ErrTrackTime)
		}
		if i > 0 && kf.At <= t.Frames[i-1].At {
			return fmt.Errorf("keyframe %d at %v follows %v: %w", i, kf.At, t.Frames[i-1].At, ErrTrackOrder)
		}
	}
	return nil
}

// Duration is the timestamp of the last keyframe, the period of a cyclic track
func (t Track) Duration() time.Duration {
	if len(t.Frames) == 0 {
		return 0
	}
	return t.Frames[len(t.Frames)-1].At
}

// Keyframes evaluates track at elapsed. An empty track is dark
func Keyframes(elapsed time.Duration, track Track) Color {
	frames := track.Frames
	if len(frames) == 0 {
		return Off
	}

	t := elapsed
	if track.Cyclic {
		period := track.Duration()
		if period <= 0 {
			period = 1
		}
		t = wrap(t, period)
	}

	if t <= frames[0].At {
		return frames[0].Color
	}
	last := frames[len(frames)-1]
	if t >= last.At {
		return last.Color
	}

	// First keyframe strictly after t, never 0 nor past the end given the
	// clamps above
	next := sort.Search(len(frames), func(i int) bool { return frames[i].At > t })
	prev := frames[next-1]
	if track.Step {
		return prev.Color
	}
	span := frames[next].At - prev.At
	if span <= 0 {
		return frames[next].Color
	}
	return prev.Color.Lerp(frames[next].Color, float64(t-prev.At)/float64(span))
}

// KeyframesDict evaluates a track per LED index. Indices without a track are
// absent from the result and should be left untouched by the caller
func KeyframesDict(elapsed time.Duration, tracks map[int]Track) map[int]Color {
	colors := make(map[int]Color, len(tracks))
	for idx, track := range tracks {
		colors[idx] = Keyframes(elapsed, track)
	}
	return colors
}

// frameSet is a snapshot of a whole group of LEDs at one instant, the authoring
// format of multi LED keyframe animations such as Emergency
type frameSet struct {
	at     time.Duration
	colors []Color
}

// tracksFromFrameSets slices group snapshots into one stepped, cyclic track
// per group position
func tracksFromFrameSets(sets []frameSet) map[int]Track {
	tracks := map[int]Track{}
	for _, set := range sets {
		for pos, c := range set.colors {
			track := tracks[pos]
			track.Frames = append(track.Frames, Keyframe{At: set.at, Color: c})
			track.Cyclic = true
			track.Step = true
			tracks[pos] = track
		}
	}
	return tracks
}

func repeat(c Color, n int) []Color {
	colors := make([]Color, n)
	for i := range colors {
		colors[i] = c
	}
	return colors
}

// Emergency is a 6 LED police style flasher, three red flashes on the first
// half of the group followed by three blue flashes on the second half,
// repeating every 1.1 seconds. Keys are positions within the group
func Emergency() map[int]Track {
	red := append(repeat(Red, 3), repeat(Off, 3)...)
	blue := append(repeat(Off, 3), repeat(Blue, 3)...)
	dark := repeat(Off, 6)
	ms := time.Millisecond
	return tracksFromFrameSets([]frameSet{
		{0, red},
		{150 * ms, dark},
		{200 * ms, red},
		{350 * ms, dark},
		{400 * ms, red},
		{450 * ms, dark},
		{500 * ms, blue},
		{650 * ms, dark},
		{700 * ms, blue},
		{850 * ms, dark},
		{900 * ms, blue},
		{1050 * ms, dark},
		{1100 * ms, dark},
	})
}
