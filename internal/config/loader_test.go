package config_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/okian/camctl/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

const sampleYAML = `
log_level: debug
reset_time: "04:15"
timezone: Europe/Berlin
camera_update_frequency: 60
settle_delay: 3s
opencast:
  server: https://develop.opencast.org
  username: admin
  password: opencast
calendar:
  update_frequency: 30
  cutoff: 86400
  format: ics
camera:
  room-1:
    - url: http://camera-panasonic.example.com
      type: panasonic
    - url: https://camera-sony.example.com
      type: sony
      user: admin
      password: secret
      preset_active: 0
      preset_inactive: 5
basic_auth:
  username: operator
  password: pw
`

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading a YAML file", func() {
			clearConfigEnvVars()
			tmpFile := createTempConfigFile(sampleYAML)
			defer func() { _ = os.Remove(tmpFile) }()

			cfg, err := config.Load(ctx, tmpFile)

			convey.Convey("Then file values override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Source, convey.ShouldEqual, tmpFile)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.ResetTime, convey.ShouldEqual, "04:15")
				convey.So(cfg.ResendInterval(), convey.ShouldEqual, time.Minute)
				convey.So(cfg.SettleDelay, convey.ShouldEqual, 3*time.Second)
				convey.So(cfg.RequestTimeout, convey.ShouldEqual, 5*time.Second) // default
				convey.So(cfg.CalendarCutoff(), convey.ShouldEqual, 24*time.Hour)
				convey.So(cfg.Calendar.Format, convey.ShouldEqual, config.FormatICS)
				convey.So(cfg.Opencast.Username, convey.ShouldEqual, "admin")
				convey.So(cfg.BasicAuth.Username, convey.ShouldEqual, "operator")
			})

			convey.Convey("Then cameras get default presets only where none are given", func() {
				cams := cfg.Cameras["room-1"]
				convey.So(len(cams), convey.ShouldEqual, 2)
				convey.So(cams[0].PresetActive, convey.ShouldEqual, 1)
				convey.So(cams[0].PresetInactive, convey.ShouldEqual, 10)
				convey.So(cams[1].PresetActive, convey.ShouldEqual, 0)
				convey.So(cams[1].PresetInactive, convey.ShouldEqual, 5)
				convey.So(cams[1].User, convey.ShouldEqual, "admin")
			})
		})

		convey.Convey("When the file is named by CAMCTL_CONFIG and env vars override it", func() {
			tmpFile := createTempConfigFile(sampleYAML)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("CAMCTL_CONFIG", tmpFile)
			_ = os.Setenv("CAMCTL_LOG_LEVEL", "warn")
			_ = os.Setenv("CAMCTL_OPENCAST__SERVER", "https://stable.opencast.org")
			_ = os.Setenv("CAMCTL_CALENDAR__UPDATE_FREQUENCY", "15")
			_ = os.Setenv("CAMCTL_METRICS__ENABLED", "true")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then environment variables win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "warn")
				convey.So(cfg.Opencast.Server, convey.ShouldEqual, "https://stable.opencast.org")
				convey.So(cfg.Opencast.Username, convey.ShouldEqual, "admin") // from file
				convey.So(cfg.CalendarUpdateFrequency(), convey.ShouldEqual, 15*time.Second)
				convey.So(cfg.Metrics.Enabled, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading an invalid YAML file", func() {
			clearConfigEnvVars()
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			cfg, err := config.Load(ctx, tmpFile)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the named file does not exist", func() {
			clearConfigEnvVars()
			cfg, err := config.Load(ctx, "/non/existent/file.yaml")

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the file passes parsing but not validation", func() {
			clearConfigEnvVars()
			tmpFile := createTempConfigFile(strings.Replace(sampleYAML, "type: sony", "type: canon", 1))
			defer func() { _ = os.Remove(tmpFile) }()

			convey.Convey("Then Read succeeds and Load fails", func() {
				_, err := config.Read(ctx, tmpFile)
				convey.So(err, convey.ShouldBeNil)
				_, err = config.Load(ctx, tmpFile)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When an env var has the wrong type", func() {
			tmpFile := createTempConfigFile(sampleYAML)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("CAMCTL_CAMERA_UPDATE_FREQUENCY", "often")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx, tmpFile)

			convey.Convey("Then loading fails", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		if key, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(key, config.EnvPrefix) {
			_ = os.Unsetenv(key)
		}
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "camctl-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = tmpFile.Close() }()

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
