//go:build toxcore

package tox

import (
	"fmt"
	"time"

	"github.com/opd-ai/toxcore"
	"github.com/opd-ai/toxcore/av"

	"github.com/edgard/mrprickles/internal/engine"
	"github.com/edgard/mrprickles/internal/media"
)

// CallEngine adapts *toxcore.ToxAV to engine.CallEngine.
type CallEngine struct {
	av *toxcore.ToxAV
}

// NewCallEngine creates the call engine on top of m. m must outlive it.
//
//nolint:ireturn // callers only see the engine interface
func NewCallEngine(m engine.MessageEngine) (engine.CallEngine, error) {
	te, ok := m.(*MessageEngine)
	if !ok {
		return nil, ErrNoMessageEngine
	}
	toxav, err := toxcore.NewToxAV(te.tox)
	if err != nil {
		return nil, fmt.Errorf("failed to create toxav instance: %w", err)
	}
	return &CallEngine{av: toxav}, nil
}

func (c *CallEngine) Iterate() { c.av.Iterate() }

func (c *CallEngine) IterationInterval() time.Duration { return c.av.IterationInterval() }

func (c *CallEngine) RegisterCallbacks(ev engine.CallEvents) {
	if ev.IncomingCall != nil {
		c.av.CallbackCall(func(friend uint32, audio, video bool) {
			ev.IncomingCall(friend, audio, video)
		})
	}
	if ev.CallStateChanged != nil {
		c.av.CallbackCallState(func(friend uint32, state av.CallState) {
			ev.CallStateChanged(friend, engine.CallState(state))
		})
	}
	if ev.AudioFrame != nil {
		c.av.CallbackAudioReceiveFrame(func(friend uint32, pcm []int16, sampleCount int, channels uint8, rate uint32) {
			ev.AudioFrame(friend, media.AudioFrame{
				PCM:          pcm,
				SampleCount:  sampleCount,
				Channels:     channels,
				SamplingRate: rate,
			})
		})
	}
	if ev.VideoFrame != nil {
		c.av.CallbackVideoReceiveFrame(func(friend uint32, w, h uint16, y, u, v []byte, yStride, uStride, vStride int) {
			ev.VideoFrame(friend, media.RawFrame{
				Width:   w,
				Height:  h,
				Y:       y,
				U:       u,
				V:       v,
				YStride: int32(yStride),
				UStride: int32(uStride),
				VStride: int32(vStride),
			})
		})
	}
}

func (c *CallEngine) Answer(friend, audioBitrate, videoBitrate uint32) error {
	return c.av.Answer(friend, audioBitrate, videoBitrate)
}

func (c *CallEngine) RequestCall(friend, audioBitrate, videoBitrate uint32) error {
	return c.av.Call(friend, audioBitrate, videoBitrate)
}

func (c *CallEngine) SetAudioBitrate(friend, bitrate uint32) error {
	return c.av.AudioSetBitRate(friend, bitrate)
}

func (c *CallEngine) SetVideoBitrate(friend, bitrate uint32) error {
	return c.av.VideoSetBitRate(friend, bitrate)
}

func (c *CallEngine) SendAudioFrame(friend uint32, f media.AudioFrame) error {
	return c.av.AudioSendFrame(friend, f.PCM, f.SampleCount, f.Channels, f.SamplingRate)
}

func (c *CallEngine) SendVideoFrame(friend uint32, f media.PackedFrame) error {
	return c.av.VideoSendFrame(friend, f.Width, f.Height, f.Y, f.U, f.V)
}

func (c *CallEngine) Close() { c.av.Kill() }

var _ engine.CallEngine = (*CallEngine)(nil)
