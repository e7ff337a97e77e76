// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

// FeatureFlags is the resolved set of deployment feature switches.
// Values are fixed after load.
type FeatureFlags struct {
	EnableFiles               bool
	EnableImages              bool
	EnableExpiredNotification bool
	EnableExpiredPopup        bool
	EnableEndedNotification   bool
	EnableEndedPopup          bool
	DisplayAgents             bool
	EnableFeedback            bool
	EnableAudio               bool
	EnableCopy                bool
	EnableAnalysis            bool
	EnableNewChat             bool
	EnableDarkMode            bool
	EnableLanguages           bool
	PluginsTitleOption        bool
	PreferenceLanguage        bool
	BrowserLanguage           bool
	EnableSpeechInput         bool
	EnableAutoPlay            bool
	TypingEffect              bool
}

// DefaultFeatureFlags returns the flags used when the client document omits
// a value or cannot be loaded at all.
func DefaultFeatureFlags() FeatureFlags {
	return FeatureFlags{
		EnableFiles:               true,
		EnableImages:              true,
		EnableExpiredNotification: false,
		EnableExpiredPopup:        true,
		EnableEndedNotification:   true,
		EnableEndedPopup:          false,
		DisplayAgents:             true,
		EnableFeedback:            true,
		EnableAudio:               true,
		EnableCopy:                true,
		EnableAnalysis:            false,
		EnableNewChat:             true,
		EnableDarkMode:            true,
		EnableLanguages:           true,
		PluginsTitleOption:        true,
		PreferenceLanguage:        false,
		BrowserLanguage:           false,
		EnableSpeechInput:         true,
		EnableAutoPlay:            false,
		TypingEffect:              false,
	}
}

// rawFeatureFlags mirrors the "enableFeatures" object. Pointers distinguish
// an absent key from an explicit false.
type rawFeatureFlags struct {
	EnableFiles               *bool `json:"enableFiles"`
	EnableImages              *bool `json:"enableImages"`
	EnableExpiredNotification *bool `json:"enableExpiredNotification"`
	EnableExpiredPopup        *bool `json:"enableExpiredPopup"`
	EnableEndedNotification   *bool `json:"enableEndedNotification"`
	EnableEndedPopup          *bool `json:"enableEndedPopup"`
	DisplayAgents             *bool `json:"displayAgents"`
	EnableFeedback            *bool `json:"enableFeedback"`
	EnableAudio               *bool `json:"enableAudio"`
	EnableCopy                *bool `json:"enableCopy"`
	EnableAnalysis            *bool `json:"enableAnalysis"`
	EnableNewChat             *bool `json:"enableNewChat"`
	EnableDarkMode            *bool `json:"enableDarkMode"`
	EnableLanguages           *bool `json:"enableLanguages"`
	PluginsTitleOption        *bool `json:"pluginsTitleOption"`
	PreferenceLanguage        *bool `json:"preferenceLanguage"`
	BrowserLanguage           *bool `json:"browserLanguage"`
	EnableSpeechInput         *bool `json:"enableSpeechInput"`
	EnableAutoPlay            *bool `json:"enableAutoPlay"`
	TypingEffect              *bool `json:"typingEffect"`
}

func (r *rawFeatureFlags) resolve() FeatureFlags {
	f := DefaultFeatureFlags()
	if r == nil {
		return f
	}
	pick := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	pick(&f.EnableFiles, r.EnableFiles)
	pick(&f.EnableImages, r.EnableImages)
	pick(&f.EnableExpiredNotification, r.EnableExpiredNotification)
	pick(&f.EnableExpiredPopup, r.EnableExpiredPopup)
	pick(&f.EnableEndedNotification, r.EnableEndedNotification)
	pick(&f.EnableEndedPopup, r.EnableEndedPopup)
	pick(&f.DisplayAgents, r.DisplayAgents)
	pick(&f.EnableFeedback, r.EnableFeedback)
	pick(&f.EnableAudio, r.EnableAudio)
	pick(&f.EnableCopy, r.EnableCopy)
	pick(&f.EnableAnalysis, r.EnableAnalysis)
	pick(&f.EnableNewChat, r.EnableNewChat)
	pick(&f.EnableDarkMode, r.EnableDarkMode)
	pick(&f.EnableLanguages, r.EnableLanguages)
	pick(&f.PluginsTitleOption, r.PluginsTitleOption)
	pick(&f.PreferenceLanguage, r.PreferenceLanguage)
	pick(&f.BrowserLanguage, r.BrowserLanguage)
	pick(&f.EnableSpeechInput, r.EnableSpeechInput)
	pick(&f.EnableAutoPlay, r.EnableAutoPlay)
	pick(&f.TypingEffect, r.TypingEffect)
	return f
}
