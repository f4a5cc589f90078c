// Package wav provides utilities for WAV audio file handling.
package wav

import (
	"encoding/binary"
	"errors"
)

// WAV format constants.
const (
	// HeaderSize is the size of a standard WAV file header in bytes.
	HeaderSize = 44

	// FormatPCM is the audio format code for uncompressed PCM.
	FormatPCM = 1
)

// Audio configuration of the realtime synthesis session. The session format
// is fixed for its whole lifetime: raw PCM, mono, 16-bit, 24 kHz.
const (
	// SampleRate is the sample rate of synthesized audio (24000 Hz).
	SampleRate = 24000

	// Channels is the number of channels of synthesized audio (mono).
	Channels = 1

	// BitsPerSample is the bit depth of synthesized audio (16-bit).
	BitsPerSample = 16
)

// ErrInvalidHeader is returned when WAV data cannot be parsed.
var ErrInvalidHeader = errors.New("invalid WAV header")

// WrapRawPCM adds a WAV header to raw PCM data.
// Parameters:
//   - pcm: raw PCM audio data bytes
//   - sampleRate: samples per second (e.g., 24000, 44100, 48000)
//   - channels: number of audio channels (1=mono, 2=stereo)
//   - bitsPerSample: bit depth per sample (typically 16)
//
// Returns a complete WAV file as a byte slice.
func WrapRawPCM(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	dataSize := len(pcm)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	// WAV header is 44 bytes
	header := make([]byte, HeaderSize)

	// RIFF header
	copy(header[0:4], "RIFF")
	PutLE32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")

	// fmt subchunk
	copy(header[12:16], "fmt ")
	PutLE32(header[16:20], 16) // subchunk size
	PutLE16(header[20:22], FormatPCM)
	PutLE16(header[22:24], uint16(channels))
	PutLE32(header[24:28], uint32(sampleRate))
	PutLE32(header[28:32], uint32(byteRate))
	PutLE16(header[32:34], uint16(blockAlign))
	PutLE16(header[34:36], uint16(bitsPerSample))

	// data subchunk
	copy(header[36:40], "data")
	PutLE32(header[40:44], uint32(dataSize))

	return append(header, pcm...)
}

// Wrap adds a WAV header to raw PCM data using the session audio format.
func Wrap(pcm []byte) []byte {
	return WrapRawPCM(pcm, SampleRate, Channels, BitsPerSample)
}

// ReadPCM extracts the raw PCM payload from a WAV file produced by
// WrapRawPCM. It validates the RIFF structure and the declared data size.
func ReadPCM(data []byte) ([]byte, error) {
	if len(data) < HeaderSize {
		return nil, ErrInvalidHeader
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, ErrInvalidHeader
	}
	if string(data[36:40]) != "data" {
		return nil, ErrInvalidHeader
	}

	dataSize := binary.LittleEndian.Uint32(data[40:44])
	payload := data[HeaderSize:]
	if uint32(len(payload)) != dataSize {
		return nil, ErrInvalidHeader
	}

	return payload, nil
}

// PutLE16 writes a uint16 value in little-endian format to a byte slice.
func PutLE16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

// PutLE32 writes a uint32 value in little-endian format to a byte slice.
func PutLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
