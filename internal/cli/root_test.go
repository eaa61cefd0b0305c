package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/camctl/internal/simulator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "camctl", cmd.Use)
	assert.NotNil(t, cmd.RunE, "bare camctl runs the service")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"run", "calendar", "config", "version"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	cfgFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, cfgFlag)
	assert.Equal(t, "c", cfgFlag.Shorthand)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "version", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "--format", "json")
	require.NoError(t, err)

	var info versionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, Version, info.Version)
	assert.True(t, strings.HasPrefix(info.Go, "go"))
}

func TestConfigCommand(t *testing.T) {
	site, srv := newSite(t)
	path := writeConfig(t, site, srv.URL)

	t.Run("yaml", func(t *testing.T) {
		out, err := execute(t, "config", "-c", path)
		require.NoError(t, err)
		assert.Contains(t, out, "# source: "+path)
		assert.NotContains(t, out, "opencast-secret")
		assert.Contains(t, out, "********")

		var doc map[string]any
		require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
		assert.Contains(t, doc, "camera")
		assert.Equal(t, "10s", doc["settle_delay"])
	})

	t.Run("validate", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.yml")
		require.NoError(t, os.WriteFile(bad, []byte("reset_time: \"25:99\"\n"), 0o600))

		_, err := execute(t, "config", "-c", bad)
		require.NoError(t, err, "plain dump does not validate")
		_, err = execute(t, "config", "-c", bad, "--validate")
		require.Error(t, err)
	})
}

func TestCalendarCommand(t *testing.T) {
	site, srv := newSite(t)
	path := writeConfig(t, site, srv.URL)

	t.Run("text", func(t *testing.T) {
		out, err := execute(t, "calendar", "room-1", "-c", path)
		require.NoError(t, err)
		assert.Contains(t, out, "TITLE")
		assert.Contains(t, out, "Lecture 1")
		assert.Contains(t, out, "Lecture 3")
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "calendar", "room-1", "-c", path, "--format", "json")
		require.NoError(t, err)
		var events []map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &events))
		assert.Len(t, events, 3)
		assert.Equal(t, true, events[0]["active"])
	})

	t.Run("no recordings", func(t *testing.T) {
		site.Opencast.Clear("room-1")
		out, err := execute(t, "calendar", "room-1", "-c", path)
		require.NoError(t, err)
		assert.Contains(t, out, "no upcoming recordings")
	})

	t.Run("unknown agent", func(t *testing.T) {
		_, err := execute(t, "calendar", "room-9", "-c", path)
		require.Error(t, err)
	})

	t.Run("missing argument", func(t *testing.T) {
		_, err := execute(t, "calendar", "-c", path)
		require.Error(t, err)
	})
}

func TestServe(t *testing.T) {
	site, srv := newSite(t)
	cfg := site.CamctlConfig(srv.URL)
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.SettleDelay = 0

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	require.NoError(t, Serve(ctx, cfg))
}

func TestSimulatorCommand(t *testing.T) {
	cmd := NewSimulatorCommand()
	for _, name := range []string{"addr", "agents", "lead", "length", "gap", "events"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, simulator.DefaultAddr, cmd.Flags().Lookup("addr").DefValue)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func newSite(t *testing.T) (*simulator.Site, *httptest.Server) {
	t.Helper()
	site := simulator.NewSite(simulator.Config{Agents: 1, Lead: -time.Minute, Length: time.Hour, Gap: time.Hour, Events: 3}, time.Now())
	srv := httptest.NewServer(site)
	t.Cleanup(srv.Close)
	return site, srv
}

func writeConfig(t *testing.T, site *simulator.Site, baseURL string) string {
	t.Helper()
	cfg := site.CamctlConfig(baseURL)
	cfg.Opencast.Password = "opencast-secret"
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "camera-control.yml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}
