// Package audio decodes PCM WAV recordings into normalized float samples.
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned when the input is not a readable PCM WAV file.
var ErrInvalidWAV = errors.New("invalid wav file")

// Clip is a decoded recording. Each channel holds samples in [-1, 1].
type Clip struct {
	Channels   [][]float64
	SampleRate int
}

// NewMono wraps a single channel.
func NewMono(samples []float64, sampleRate int) *Clip {
	return &Clip{Channels: [][]float64{samples}, SampleRate: sampleRate}
}

// Len returns the number of samples per channel.
func (c *Clip) Len() int {
	if c == nil || len(c.Channels) == 0 {
		return 0
	}
	return len(c.Channels[0])
}

// Seconds returns the clip duration.
func (c *Clip) Seconds() float64 {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return float64(c.Len()) / float64(c.SampleRate)
}

// Mono averages the channels. A mono clip returns its only channel.
func (c *Clip) Mono() []float64 {
	n := c.Len()
	if n == 0 {
		return nil
	}
	if len(c.Channels) == 1 {
		return c.Channels[0]
	}
	out := make([]float64, n)
	for _, ch := range c.Channels {
		for i := 0; i < n && i < len(ch); i++ {
			out[i] += ch[i]
		}
	}
	k := float64(len(c.Channels))
	for i := range out {
		out[i] /= k
	}
	return out
}

// Decode reads a PCM WAV stream.
func Decode(r io.ReadSeeker) (*Clip, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read pcm: %w", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, ErrInvalidWAV
	}
	return fromIntBuffer(buf, int(d.BitDepth)), nil
}

// DecodeFile opens and decodes a WAV file.
func DecodeFile(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	clip, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return clip, nil
}

func fromIntBuffer(buf *goaudio.IntBuffer, bitDepth int) *Clip {
	if bitDepth <= 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))
	// 8-bit WAV is unsigned.
	offset := 0.0
	if bitDepth == 8 {
		offset = scale
	}

	chans := buf.Format.NumChannels
	n := len(buf.Data) / chans
	clip := &Clip{Channels: make([][]float64, chans), SampleRate: buf.Format.SampleRate}
	for c := range clip.Channels {
		clip.Channels[c] = make([]float64, n)
	}
	for i := 0; i < n*chans; i++ {
		clip.Channels[i%chans][i/chans] = (float64(buf.Data[i]) - offset) / scale
	}
	return clip
}

// Encode writes the clip as 16-bit PCM WAV.
func Encode(w io.WriteSeeker, c *Clip) error {
	chans := len(c.Channels)
	if chans == 0 || c.SampleRate <= 0 {
		return fmt.Errorf("encode: empty clip")
	}
	const bitDepth = 16
	const scale = 1 << (bitDepth - 1)

	n := c.Len()
	data := make([]int, 0, n*chans)
	for i := 0; i < n; i++ {
		for ch := 0; ch < chans; ch++ {
			v := c.Channels[ch][i]
			v = max(-1, min(v, float64(scale-1)/scale))
			data = append(data, int(v*scale))
		}
	}

	e := wav.NewEncoder(w, c.SampleRate, bitDepth, chans, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: chans, SampleRate: c.SampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := e.Write(buf); err != nil {
		return fmt.Errorf("write pcm: %w", err)
	}
	if err := e.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

// EncodeFile writes the clip to path.
func EncodeFile(path string, c *Clip) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create audio: %w", err)
	}
	if err := Encode(f, c); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
