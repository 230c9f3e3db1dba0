// Package audio converts between base64-encoded PCM voice payloads and
// playable sample buffers, and owns the single-active-source playback
// controller and the microphone capture recorder.
package audio
