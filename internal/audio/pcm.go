package audio

import (
	"encoding/base64"
	"fmt"
)

// DefaultSampleRate is the rate the speech synthesis collaborator emits:
// mono 24 kHz signed 16-bit little-endian linear PCM.
const DefaultSampleRate = 24000

// DecodePayload decodes a base64-encoded voice payload into normalized
// float samples in [-1.0, 1.0].
func DecodePayload(payload string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 payload: %w", err)
	}
	return BytesToFloats(raw)
}

// BytesToFloats interprets raw bytes as s16le mono PCM and normalizes each
// sample by division by 32768.
func BytesToFloats(raw []byte) ([]float32, error) {
	samples, err := BytesToSamples(raw)
	if err != nil {
		return nil, err
	}
	floats := make([]float32, len(samples))
	for i, s := range samples {
		floats[i] = float32(s) / 32768.0
	}
	return floats, nil
}

// BytesToSamples converts raw little-endian bytes to 16-bit PCM samples.
func BytesToSamples(raw []byte) ([]int16, error) {
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("PCM data length must be even, got %d bytes", len(raw))
	}
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(raw[2*i]) | int16(raw[2*i+1])<<8
	}
	return samples, nil
}

// SamplesToBytes converts 16-bit PCM samples to raw little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	raw := make([]byte, len(samples)*2)
	for i, s := range samples {
		raw[2*i] = byte(s)
		raw[2*i+1] = byte(uint16(s) >> 8)
	}
	return raw
}

// EncodePayload encodes 16-bit PCM samples as a base64 voice payload,
// the inverse of DecodePayload.
func EncodePayload(samples []int16) string {
	return base64.StdEncoding.EncodeToString(SamplesToBytes(samples))
}
