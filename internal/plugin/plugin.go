// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package plugin loads the catalog of orchestrator plugins a deployment
// offers and tracks which one is active.
package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/vachat/internal/model"
	"github.com/jeranaias/vachat/internal/orchestrator"
)

// Plugin types. Any other type is treated as a chatbot.
const (
	TypeChatbot = "chatbot"
	TypeFiles   = "files"
)

var (
	// ErrNoSetupAPI is returned when the client document has no setupApi.
	ErrNoSetupAPI = errors.New("setup API not configured")
	// ErrEmptyCatalog is returned when the catalog lists no plugins.
	ErrEmptyCatalog = errors.New("no plugins available")
)

// maxCatalogSize caps the catalog response body.
const maxCatalogSize = 2 * 1024 * 1024

// Keys are the orchestrator configuration credentials for a plugin.
type Keys struct {
	ConfigID  string `json:"orch_config_id"`
	ConfigKey string `json:"orch_config_key"`
}

// Plugin describes one orchestrator entry point.
type Plugin struct {
	Title       string `json:"PluginTitle"`
	Description string `json:"PluginDescription"`
	Host        string `json:"PluginHost"`
	Type        string `json:"PluginType"`
	Keys        Keys   `json:"PluginKeys"`
}

// Binding returns the plugin's keys as a message binding.
func (p Plugin) Binding() model.Binding {
	return model.Binding{ConfigID: p.Keys.ConfigID, ConfigKey: p.Keys.ConfigKey}
}

// ProcessesFiles reports whether the plugin takes uploads instead of chat.
func (p Plugin) ProcessesFiles() bool {
	return p.Type == TypeFiles
}

// MessageHost returns the https-normalized orchestrator host.
func (p Plugin) MessageHost() string {
	return orchestrator.NormalizeHost(p.Host)
}

// Catalog is the setup API's plugin list.
type Catalog struct {
	NumberOfPlugins int      `json:"NumberOfPlugins"`
	Plugins         []Plugin `json:"PluginList"`
}

// AutoSelect returns the only plugin when the catalog has exactly one,
// forced to the chatbot type.
func (c *Catalog) AutoSelect() (Plugin, bool) {
	if c == nil || len(c.Plugins) != 1 {
		return Plugin{}, false
	}
	p := c.Plugins[0]
	p.Type = TypeChatbot
	return p, true
}

// Find returns the plugin whose title matches (case-insensitive), or the
// plugin at a 1-based index given as text.
func (c *Catalog) Find(ref string) (Plugin, bool) {
	ref = strings.TrimSpace(ref)
	for _, p := range c.Plugins {
		if strings.EqualFold(p.Title, ref) {
			return p, true
		}
	}
	var idx int
	if _, err := fmt.Sscanf(ref, "%d", &idx); err == nil && idx >= 1 && idx <= len(c.Plugins) {
		return c.Plugins[idx-1], true
	}
	return Plugin{}, false
}

// Fetch loads the catalog from setupAPI.
func Fetch(ctx context.Context, hc *http.Client, setupAPI string) (*Catalog, error) {
	if strings.TrimSpace(setupAPI) == "" {
		return nil, ErrNoSetupAPI
	}
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, setupAPI, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch plugins: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogSize))
	if err != nil {
		return nil, fmt.Errorf("read plugins: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &orchestrator.HTTPError{Status: resp.StatusCode, Body: string(body)}
	}

	var cat Catalog
	if err := json.Unmarshal(body, &cat); err != nil {
		return nil, fmt.Errorf("decode plugins: %w", err)
	}
	if len(cat.Plugins) == 0 {
		return &cat, ErrEmptyCatalog
	}
	return &cat, nil
}
