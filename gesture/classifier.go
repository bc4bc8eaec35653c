package gesture

import (
	"math"

	"go.uber.org/zap"
)

// Command is the discrete action a finished gesture path maps to.
type Command int

const (
	Unrecognized Command = iota
	CapturePhoto
	StartRecording
	StopRecording
)

func (c Command) String() string {
	switch c {
	case CapturePhoto:
		return "capture_photo"
	case StartRecording:
		return "start_recording"
	case StopRecording:
		return "stop_recording"
	default:
		return "unrecognized"
	}
}

// Thresholds are exclusive bounds in screen points and degrees.
const (
	PhotoTouchCount   = 2
	PhotoMinPullDown  = 80.0
	PhotoMaxDrift     = 50.0
	MinStrokeDistance = 100.0

	StartAngleMin = 20.0
	StartAngleMax = 70.0
	StopAngleMin  = 110.0
	StopAngleMax  = 160.0
)

// Metrics describes the straight line from the first to the last point
// of a path. DY is positive when the stroke moves up the screen.
type Metrics struct {
	DX       float64
	DY       float64
	Angle    float64
	Distance float64
}

// Measure computes the stroke metrics of a sample. An empty path
// measures as zero.
func Measure(s Sample) Metrics {
	if len(s.Path) == 0 {
		return Metrics{}
	}
	start, end := s.Path[0], s.Path[len(s.Path)-1]
	dx := end.X - start.X
	dy := start.Y - end.Y
	return Metrics{
		DX:       dx,
		DY:       dy,
		Angle:    math.Atan2(dy, dx) * 180 / math.Pi,
		Distance: math.Hypot(dx, dy),
	}
}

// Classify maps a finished gesture to a Command. It is pure and safe to
// call from any goroutine.
func Classify(s Sample) Command {
	if len(s.Path) == 0 {
		return Unrecognized
	}
	return decide(Measure(s), s.TouchCountAtStart)
}

func decide(m Metrics, touches int) Command {
	switch {
	case touches == PhotoTouchCount && m.DY < -PhotoMinPullDown && math.Abs(m.DX) < PhotoMaxDrift:
		return CapturePhoto
	case m.Angle > StartAngleMin && m.Angle < StartAngleMax && m.Distance > MinStrokeDistance:
		return StartRecording
	case m.Angle > StopAngleMin && m.Angle < StopAngleMax && m.Distance > MinStrokeDistance:
		return StopRecording
	default:
		return Unrecognized
	}
}

// ClassifyLogged is Classify plus a debug line with the stroke metrics.
func ClassifyLogged(s Sample, logger *zap.Logger) Command {
	cmd := Classify(s)
	if logger != nil {
		m := Measure(s)
		logger.Debug("gesture classified",
			zap.Float64("angle", math.Round(m.Angle)),
			zap.Float64("distance", m.Distance),
			zap.Int("touches", s.TouchCountAtStart),
			zap.Int("points", len(s.Path)),
			zap.Stringer("command", cmd),
		)
	}
	return cmd
}
