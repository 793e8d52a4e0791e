package synth

import (
	"fmt"
	"io"
)

// DecodeWAV parses a PCM16 WAV stream into mono float samples in [-1,1] and
// the stream's sample rate. Stereo input is averaged down to mono. Only
// 16-bit PCM is supported; everything the engine emits is.
func DecodeWAV(r io.Reader) ([]float32, int, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}
	if len(b) < 44 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a WAV stream")
	}

	var (
		channels   uint16
		sampleRate uint32
		dataOff    int
		dataLen    int
		haveFmt    bool
	)

	off := 12
	for off+8 <= len(b) {
		cid := string(b[off : off+4])
		csz := int(uint32(b[off+4]) | uint32(b[off+5])<<8 | uint32(b[off+6])<<16 | uint32(b[off+7])<<24)
		off += 8
		switch cid {
		case "fmt ":
			if off+16 > len(b) || csz < 16 {
				return nil, 0, fmt.Errorf("bad fmt chunk")
			}
			fmtTag := uint16(b[off]) | uint16(b[off+1])<<8
			channels = uint16(b[off+2]) | uint16(b[off+3])<<8
			sampleRate = uint32(b[off+4]) | uint32(b[off+5])<<8 | uint32(b[off+6])<<16 | uint32(b[off+7])<<24
			bits := uint16(b[off+14]) | uint16(b[off+15])<<8
			if fmtTag != 1 || bits != 16 {
				return nil, 0, fmt.Errorf("unsupported WAV format: tag=%d bits=%d", fmtTag, bits)
			}
			if channels != 1 && channels != 2 {
				return nil, 0, fmt.Errorf("unsupported channel count %d", channels)
			}
			haveFmt = true
			off += csz
		case "data":
			dataOff = off
			dataLen = csz
			off = len(b) // done
		default:
			off += csz
		}
	}

	if !haveFmt {
		return nil, 0, fmt.Errorf("no fmt chunk")
	}
	if dataOff <= 0 || dataOff+dataLen > len(b) {
		return nil, 0, fmt.Errorf("no data chunk")
	}
	if sampleRate == 0 {
		return nil, 0, fmt.Errorf("zero sample rate")
	}

	raw := b[dataOff : dataOff+dataLen]
	frame := 2 * int(channels)
	n := len(raw) / frame
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		base := i * frame
		s := int32(int16(uint16(raw[base]) | uint16(raw[base+1])<<8))
		if channels == 2 {
			r := int32(int16(uint16(raw[base+2]) | uint16(raw[base+3])<<8))
			s = (s + r) / 2
		}
		samples[i] = float32(s) / 32768.0
	}
	return samples, int(sampleRate), nil
}
