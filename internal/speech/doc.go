// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package speech provides audio output and speech input for vachat.
//
// Synthesis goes through the Azure Speech REST endpoint; audio is played and
// captured by external commands so no audio stack is linked into the binary.
//
// # Key Types
//
//   - Synthesizer / AzureSynthesizer: text to audio bytes
//   - Player / CommandPlayer: audio bytes to speakers
//   - Playback: single-stream play/stop controller keyed by message id
//   - AutoPlayer: debounced playback of the newest bot message
//   - Recognizer / CommandRecognizer: utterance stream from a microphone
//   - Dictation: capture session feeding cleaned text into the input box
//
// # Usage
//
//	pb := speech.NewPlayback(speech.NewAzureSynthesizer(key, region, voices),
//		speech.NewCommandPlayer(cfg.Speech.PlayerCommand), log)
//	pb.Toggle(msg.ID, msg.Text, "en-US")
package speech
