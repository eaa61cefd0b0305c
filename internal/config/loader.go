package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CAMCTL_"

// DefaultFiles are tried in order when no file is named explicitly.
var DefaultFiles = []string{
	"./camera-control.yml",
	"~/camera-control.yml",
	"/etc/camera-control.yml",
}

// Load builds a Config by layering defaults, a YAML file and env vars, then validates it.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file: path, else CAMCTL_CONFIG, else the first existing of DefaultFiles
//  3. env (prefix CAMCTL_, "__" separates nesting: CAMCTL_OPENCAST__SERVER)
func Load(ctx context.Context, path string) (*Config, error) {
	cfg, err := Read(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation.
func Read(_ context.Context, path string) (*Config, error) {
	base := New()
	k := koanf.New(".")

	source, err := resolve(path)
	if err != nil {
		return nil, err
	}
	if source != "" {
		if err := k.Load(file.Provider(source), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, source, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	applyCameraDefaults(k, &cfg)
	cfg.Source = source
	return &cfg, nil
}

// applyCameraDefaults fills in presets that a camera entry leaves out.
// Zero is a valid preset, so presence is read from the raw entries.
func applyCameraDefaults(k *koanf.Koanf, cfg *Config) {
	for agent, cams := range cfg.Cameras {
		raw, _ := k.Get("camera." + agent).([]interface{})
		for i := range cams {
			var entry map[string]interface{}
			if i < len(raw) {
				entry, _ = raw[i].(map[string]interface{})
			}
			if _, ok := entry["preset_active"]; !ok {
				cams[i].PresetActive = DefaultPresetActive
			}
			if _, ok := entry["preset_inactive"]; !ok {
				cams[i].PresetInactive = DefaultPresetInactive
			}
		}
	}
}

// resolve picks the config file. An explicitly named file must exist; a
// missing default file is skipped.
func resolve(path string) (string, error) {
	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		p := expandHome(path)
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
		return p, nil
	}
	for _, candidate := range DefaultFiles {
		p := expandHome(candidate)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	return "", nil
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
