// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/vachat/internal/attachments"
	"github.com/jeranaias/vachat/internal/config"
	"github.com/jeranaias/vachat/internal/controller"
	"github.com/jeranaias/vachat/internal/feedback"
	"github.com/jeranaias/vachat/internal/locale"
	"github.com/jeranaias/vachat/internal/logging"
	"github.com/jeranaias/vachat/internal/orchestrator"
	"github.com/jeranaias/vachat/internal/plugin"
	"github.com/jeranaias/vachat/internal/speech"
)

// ErrPluginRequired is returned when a headless command cannot pick a plugin
// on its own.
var ErrPluginRequired = errors.New("several plugins available, choose one with --plugin")

// transport overrides the HTTP transport for every client when set.
var transport http.RoundTripper

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath   string
	clientConfig string
	stringsPath  string
	pluginRef    string
	language     string
	theme        string
	debug        bool
	incremental  bool
}

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// app holds everything loaded at startup.
type app struct {
	cfg     *config.Config
	doc     *config.ClientDocument
	strings *locale.Strings
	log     *logrus.Logger
	closer  io.Closer
	http    *http.Client

	catalog *plugin.Catalog
}

// newApp loads configuration, documents and the logger. With logToFile the
// log goes to the configured file so it does not fight the TUI for the
// terminal.
func newApp(ctx context.Context, flags *globalFlags, logToFile bool, stderr io.Writer) (*app, error) {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(stderr, "%s %v\n", warningStyle.Render("[!] .env:"), err)
	}

	var (
		cfg     *config.Config
		loadErr error
	)
	if flags.configPath != "" {
		c, err := config.LoadFromPath(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	} else {
		cfg, loadErr = config.Load()
		if cfg == nil {
			return nil, loadErr
		}
	}
	applyFlags(cfg, flags)

	logOpts := logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: stderr}
	if logToFile {
		path, err := cfg.LogPath()
		if err != nil {
			return nil, err
		}
		logOpts.File = path
	}
	log, closer, err := logging.New(logOpts)
	if err != nil {
		return nil, err
	}
	if loadErr != nil {
		log.WithError(loadErr).Warn("config file ignored, using defaults")
	}

	a := &app{
		cfg:    cfg,
		log:    log,
		closer: closer,
		http:   &http.Client{Transport: transport, Timeout: 30 * time.Second},
	}

	a.doc, err = config.LoadClientDocument(ctx, cfg.Client.ConfigSource)
	if err != nil {
		log.WithError(err).WithField("source", cfg.Client.ConfigSource).Warn("client document unavailable, using defaults")
	}
	a.strings, err = locale.Load(ctx, cfg.Client.StringsSource)
	if err != nil {
		log.WithError(err).WithField("source", cfg.Client.StringsSource).Warn("language strings unavailable, using built-ins")
	}
	return a, nil
}

func applyFlags(cfg *config.Config, flags *globalFlags) {
	if flags.clientConfig != "" {
		cfg.Client.ConfigSource = flags.clientConfig
	}
	if flags.stringsPath != "" {
		cfg.Client.StringsSource = flags.stringsPath
	}
	if flags.theme != "" {
		cfg.UI.Theme = flags.theme
	}
	if flags.debug {
		cfg.Orchestrator.Debug = true
	}
	if flags.incremental {
		cfg.UI.DisplayMode = config.DisplayIncremental
	}
}

// Close releases the log file.
func (a *app) Close() error {
	return a.closer.Close()
}

// loadCatalog fetches the plugin list once.
func (a *app) loadCatalog(ctx context.Context) (*plugin.Catalog, error) {
	if a.catalog != nil {
		return a.catalog, nil
	}
	cat, err := plugin.Fetch(ctx, a.http, a.doc.SetupAPI)
	if err != nil {
		return nil, err
	}
	a.log.WithField("plugins", len(cat.Plugins)).Debug("plugin catalog loaded")
	a.catalog = cat
	return cat, nil
}

// pickPlugin resolves --plugin, else the only plugin in the catalog.
func (a *app) pickPlugin(ctx context.Context, ref string) (plugin.Plugin, error) {
	cat, err := a.loadCatalog(ctx)
	if err != nil {
		return plugin.Plugin{}, err
	}
	if ref != "" {
		if p, ok := cat.Find(ref); ok {
			return p, nil
		}
		return plugin.Plugin{}, fmt.Errorf("plugin %q not found", ref)
	}
	if p, ok := cat.AutoSelect(); ok {
		return p, nil
	}
	if len(cat.Plugins) == 0 {
		return plugin.Plugin{}, plugin.ErrEmptyCatalog
	}
	return plugin.Plugin{}, ErrPluginRequired
}

// language resolves the display language. An explicit --lang wins.
func (a *app) language(flag string) locale.Choice {
	if flag != "" {
		return locale.Choice{Language: flag}
	}
	return locale.Select(a.doc, a.cfg.Language, locale.EnvironmentLanguage())
}

// saveLanguage persists the picked language to config.toml.
func (a *app) saveLanguage(code string) error {
	a.cfg.Language = code
	return config.Save(a.cfg)
}

// =============================================================================
// COMPONENT CONSTRUCTION
// =============================================================================

func (a *app) newController(lang string) *controller.Controller {
	flags := a.doc.Features
	return controller.New(controller.Options{
		Language:    lang,
		FreeText:    a.doc.InputEnable,
		Debug:       a.cfg.Orchestrator.Debug,
		Incremental: a.cfg.Incremental() || flags.TypingEffect,
		Attachments: attachments.Policy{
			AllowFiles:  flags.EnableFiles,
			AllowImages: flags.EnableImages,
		},
		Logger: a.log,
	})
}

func (a *app) newExchanger(p plugin.Plugin) controller.Exchanger {
	client := orchestrator.NewClient(p.MessageHost())
	if transport != nil {
		client = client.WithHTTPClient(&http.Client{Transport: transport})
	}
	return client.
		WithTimeout(timeoutOf(a.cfg.Orchestrator.TimeoutSecs)).
		WithMaxResponseSize(int64(a.cfg.Orchestrator.MaxResponseMB) << 20).
		WithLogger(a.log)
}

// newFeedback returns nil when the deployment has no feedback endpoint.
func (a *app) newFeedback() *feedback.Tracker {
	if !a.doc.Features.EnableFeedback || a.doc.FeedbackAPI == "" {
		return nil
	}
	client := orchestrator.NewFeedbackClient(a.doc.FeedbackAPI, a.cfg.Orchestrator.FeedbackPerSecond).
		WithHTTPClient(a.http)
	return feedback.NewTracker(client, a.log)
}

// audio bundles the optional speech components.
type audio struct {
	playback   *speech.Playback
	autoPlayer *speech.AutoPlayer
	dictation  *speech.Dictation
}

// newAudio builds playback when credentials and a player are configured, and
// dictation when a recognizer command is.
func (a *app) newAudio(lang func() string) audio {
	var out audio
	key, region := a.cfg.Speech.Key, a.cfg.Speech.Region
	if key == "" {
		key = a.doc.SpeechKey
	}
	if region == "" {
		region = a.doc.SpeechRegion
	}

	if a.doc.Features.EnableAudio && key != "" && region != "" && a.cfg.Speech.PlayerCommand != "" {
		synth := speech.NewAzureSynthesizer(key, region, a.doc.Voices).WithHTTPClient(a.http)
		out.playback = speech.NewPlayback(synth, speech.NewCommandPlayer(a.cfg.Speech.PlayerCommand), a.log)

		delay := time.Duration(a.cfg.Speech.AutoPlayDelayMs) * time.Millisecond
		playback := out.playback
		out.autoPlayer = speech.NewAutoPlayer(delay, func(id, text string) {
			playback.Play(id, text, lang())
		})
		out.autoPlayer.SetEnabled(a.doc.Features.EnableAutoPlay)
	} else if a.doc.Features.EnableAudio {
		a.log.Debug("audio playback not configured")
	}

	if a.doc.Features.EnableSpeechInput && a.cfg.Speech.RecognizerCommand != "" {
		out.dictation = speech.NewDictation(speech.NewCommandRecognizer(a.cfg.Speech.RecognizerCommand), out.playback, a.log)
	}
	return out
}
