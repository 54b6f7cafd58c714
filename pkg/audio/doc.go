// Package audio is an umbrella for the audio processing sub-packages:
//
//   - pcm: PCM16 format math, sample conversion and volume measurement
//   - fbank: log mel filterbank feature extraction for the acoustic model
//   - resample: sample-rate conversion to the model's 16 kHz input rate
package audio
