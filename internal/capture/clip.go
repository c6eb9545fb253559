package capture

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gocv.io/x/gocv"
)

// Clip is a decoded recording held in memory.
type Clip struct {
	Frames []*gocv.Mat
	FPS    float64
	// Duplicates counts frames identical to their predecessor, as produced by
	// variable-rate encoders and frozen cameras.
	Duplicates int
}

// Len returns the number of frames.
func (c *Clip) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Frames)
}

// Close releases every frame.
func (c *Clip) Close() {
	if c == nil {
		return
	}
	for _, f := range c.Frames {
		if f != nil {
			f.Close()
		}
	}
	c.Frames = nil
}

// ReadClip opens src and reads up to maxFrames frames. meter may be nil; when
// set it is used to count duplicated frames.
func ReadClip(ctx context.Context, src Source, maxFrames int, meter *ChangeMeter) (*Clip, error) {
	if err := src.Open(); err != nil {
		return nil, err
	}
	defer src.Close()

	if meter != nil {
		meter.Reset()
	}
	clip := &Clip{FPS: src.FPS()}
	for maxFrames <= 0 || len(clip.Frames) < maxFrames {
		if err := ctx.Err(); err != nil {
			clip.Close()
			return nil, err
		}
		frame, err := src.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			clip.Close()
			return nil, fmt.Errorf("read frame %d: %w", len(clip.Frames), err)
		}
		if meter != nil {
			if changed, _ := meter.Measure(frame); !changed && len(clip.Frames) > 0 {
				clip.Duplicates++
			}
		}
		clip.Frames = append(clip.Frames, frame)
	}

	if len(clip.Frames) == 0 {
		return nil, fmt.Errorf("recording has no decodable frames")
	}
	return clip, nil
}
