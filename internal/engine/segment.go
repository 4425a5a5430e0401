package engine

import "voxscribed/pkg/types"

// segment converts whisper.cpp millisecond offsets into a wire Segment.
func segment(fromMS, toMS int64, text string) types.Segment {
	return types.Segment{
		Start: float64(fromMS) / 1000,
		End:   float64(toMS) / 1000,
		Text:  text,
	}
}
