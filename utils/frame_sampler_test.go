package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleFrames(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		want     []FrameRequest
	}{
		{"too short", 0.4, nil},
		{"exactly offset", 0.5, nil},
		{"zero", 0, nil},
		{"negative", -3, nil},
		{"nan", math.NaN(), nil},
		{"infinite", math.Inf(1), nil},
		{"one frame", 1.5, []FrameRequest{{0, 0.5}}},
		{"minimum step", 3.0, []FrameRequest{{0, 0.5}, {1, 2.0}}},
		{"six seconds", 6.0, []FrameRequest{{0, 0.5}, {1, 2.5}, {2, 4.5}}},
		{"long clip", 300, []FrameRequest{{0, 0.5}, {1, 100.5}, {2, 200.5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SampleFrames(tt.duration)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].Index, got[i].Index)
				assert.InDelta(t, tt.want[i].TimestampSeconds, got[i].TimestampSeconds, 1e-9)
			}
		})
	}
}

func TestSampleFramesInvariants(t *testing.T) {
	for d := 0.0; d < 120; d += 0.37 {
		frames := SampleFrames(d)
		assert.LessOrEqual(t, len(frames), MaxFramesPerClip)
		for i, f := range frames {
			assert.Equal(t, i, f.Index)
			assert.Less(t, f.TimestampSeconds, d)
			if i > 0 {
				assert.Greater(t, f.TimestampSeconds, frames[i-1].TimestampSeconds)
			}
		}
	}
}
