package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wemix/lagwatch/internal/alerting"
	"github.com/wemix/lagwatch/internal/monitor"
)

// statusServer answers /status with a fixed height
func statusServer(t *testing.T, height string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"result":{"sync_info":{"latest_block_height":"%s"}}}`, height)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// telegramServer records sendMessage texts
type telegramServer struct {
	*httptest.Server
	mu    sync.Mutex
	texts []string
}

func newTelegramServer(t *testing.T) *telegramServer {
	t.Helper()
	ts := &telegramServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload struct {
			Text string `json:"text"`
		}
		_ = json.Unmarshal(body, &payload)
		ts.mu.Lock()
		ts.texts = append(ts.texts, payload.Text)
		ts.mu.Unlock()
		w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *telegramServer) Texts() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]string(nil), ts.texts...)
}

type testEnv struct {
	dir       string
	config    string
	telegram  string
	stateFile string
	tg        *telegramServer
}

// newTestEnv writes config.yml and telegram.yml pointing at local servers
func newTestEnv(t *testing.T, refHeight, nodeHeight string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:       dir,
		config:    filepath.Join(dir, "config.yml"),
		telegram:  filepath.Join(dir, "telegram.yml"),
		stateFile: filepath.Join(dir, "previous_state.yml"),
		tg:        newTelegramServer(t),
	}

	ref := statusServer(t, refHeight)
	node := statusServer(t, nodeHeight)

	configBody := fmt.Sprintf(`
rpcs:
  - url: %s
node:
  url: %s
alerts:
  - level_1: 10
  - level_2: 50
  - level_3: 100
  - level_4: 500
  - level_5: 1000
state:
  path: %s
log:
  disable: true
`, ref.URL, node.URL, env.stateFile)
	require.NoError(t, os.WriteFile(env.config, []byte(configBody), 0o644))

	telegramBody := fmt.Sprintf("bot_token: \"123:abc\"\nchat_id: 42\napi_url: %s\n", env.tg.URL)
	require.NoError(t, os.WriteFile(env.telegram, []byte(telegramBody), 0o644))

	return env
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append([]string{
		"--config", e.config,
		"--telegram-config", e.telegram,
		"--env-file", filepath.Join(e.dir, ".env"),
	}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "lagwatch version: "+Version)
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()

	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"run", "check", "state", "config", "version"}, names)

	for _, flag := range []string{"config", "telegram-config", "env-file", "state-file", "log-level"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestConfigValidate(t *testing.T) {
	// Arrange
	env := newTestEnv(t, "100", "100")

	// Act
	out, err := env.run(t, "config", "validate")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")
	assert.Contains(t, out, "level_3: 100")
	assert.Contains(t, out, "Notifier: telegram (telegram)")
}

func TestConfigValidate_Invalid(t *testing.T) {
	env := newTestEnv(t, "100", "100")
	require.NoError(t, os.WriteFile(env.config, []byte("rpcs: []\n"), 0o644))

	_, err := env.run(t, "config", "validate")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestCheckCommand_JSON(t *testing.T) {
	// Arrange
	env := newTestEnv(t, "1015", "1000")

	// Act
	out, err := env.run(t, "check", "--json")

	// Assert
	require.NoError(t, err)
	var result monitor.CycleResult
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	assert.Equal(t, monitor.OutcomeOK, result.Outcome)
	assert.Equal(t, alerting.Level(1), result.Level)
	assert.Equal(t, []string{"Alert Level 1: Block height difference is 15 blocks!"}, env.tg.Texts())

	state, err := os.ReadFile(env.stateFile)
	require.NoError(t, err)
	assert.Contains(t, string(state), "previous_height_diff: 15")
	assert.Contains(t, string(state), "last_alert_level: 1")
}

func TestCheckCommand_Text(t *testing.T) {
	env := newTestEnv(t, "1000", "1000")

	out, err := env.run(t, "check")

	require.NoError(t, err)
	assert.Contains(t, out, "Outcome: ok")
	assert.Contains(t, out, "Height diff: 0")
	assert.Empty(t, env.tg.Texts())
}

func TestCheckCommand_StateFileOverride(t *testing.T) {
	env := newTestEnv(t, "1200", "1000")
	override := filepath.Join(env.dir, "other", "state.json")

	_, err := env.run(t, "--state-file", override, "check")

	require.NoError(t, err)
	_, err = os.Stat(override)
	assert.NoError(t, err)
	_, err = os.Stat(env.stateFile)
	assert.True(t, os.IsNotExist(err))
}

func TestStateShowAndReset(t *testing.T) {
	// Arrange
	env := newTestEnv(t, "1000", "1000")
	require.NoError(t, os.WriteFile(env.stateFile, []byte("previous_height_diff: 15\nlast_alert_level: 1\n"), 0o644))

	// Act & Assert
	out, err := env.run(t, "state", "show")
	require.NoError(t, err)
	assert.Equal(t, "level=1 previous_diff=15", strings.TrimSpace(out))

	out, err = env.run(t, "state", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "alert state reset")

	out, err = env.run(t, "state", "show", "--json")
	require.NoError(t, err)
	var state alerting.State
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.True(t, state.Equal(alerting.DefaultState()))
}

func TestTelegramConfig_ExplicitMissingFile(t *testing.T) {
	env := newTestEnv(t, "1000", "1000")
	env.telegram = filepath.Join(env.dir, "missing.yml")

	_, err := env.run(t, "config", "validate")

	assert.Error(t, err)
}
