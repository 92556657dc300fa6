package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"arbitrum-trade-bot-go/internal/database"
	"arbitrum-trade-bot-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var feedPrices = map[string]string{
	"tether":   "1",
	"arbitrum": "0.8",
	"magic":    "0.45",
	"gmx":      "25",
}

func fakeCoinGecko(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("ids")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{%q:{"usd":%s}}`, id, feedPrices[id])
	}))
	t.Cleanup(server.Close)
	return server
}

// setupWorkspace writes a config.yml for a fast dry-run session and clears
// the legacy environment variables that would override it.
func setupWorkspace(t *testing.T, feedURL string) string {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`
trading:
  max_trades: 2
  settle_delay: 1ms
oracle:
  base_url: %q
  rate_limit: 0
  retry_delay: 1ms
storage:
  capital_file: %q
database:
  dsn: %q
logger:
  level: error
`, feedURL, filepath.Join(dir, "capital.json"), filepath.Join(dir, "trades.db"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(body), 0o600))

	for _, name := range []string{"STARTING_CAPITAL", "RESET_CAPITAL", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "GITHUB_OUTPUT"} {
		t.Setenv(name, "")
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunCommand_DryRunSession(t *testing.T) {
	dir := setupWorkspace(t, fakeCoinGecko(t).URL)
	stepOutput := filepath.Join(dir, "step_output")
	t.Setenv("GITHUB_OUTPUT", stepOutput)

	out, err := execute(t, "run", "--config", dir, "--dry-run", "--capital", "100")
	require.NoError(t, err)

	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &summary))
	assert.Equal(t, "trade_cap_reached", summary["stop_reason"])
	assert.Equal(t, float64(2), summary["trades_executed"])
	assert.Equal(t, "100", summary["start_capital"])
	assert.Equal(t, true, summary["dry_run"])

	finalCapital := summary["final_capital"].(string)
	raw, err := os.ReadFile(filepath.Join(dir, "capital.json"))
	require.NoError(t, err)
	assert.JSONEq(t, fmt.Sprintf(`{"capital":%q}`, finalCapital), string(raw))

	step, err := os.ReadFile(stepOutput)
	require.NoError(t, err)
	assert.Contains(t, string(step), "final_capital="+finalCapital+"\n")
	assert.Contains(t, string(step), "trades_executed=2\n")

	db, err := database.NewDatabase(filepath.Join(dir, "trades.db"))
	require.NoError(t, err)
	var trades []models.Trade
	require.NoError(t, db.Find(&trades).Error)
	require.Len(t, trades, 2)
	for _, tr := range trades {
		assert.True(t, tr.IsSimulation)
		assert.Equal(t, "live", tr.PriceSource)
	}
	var session models.Session
	require.NoError(t, db.First(&session).Error)
	assert.Equal(t, "trade_cap_reached", session.StopReason)
	assert.True(t, session.DryRun)

	// the next session continues from the persisted capital
	out, err = execute(t, "capital", "--config", dir)
	require.NoError(t, err)
	assert.Equal(t, finalCapital, strings.TrimSpace(out))
}

func TestRunCommand_InvalidConfigFailsBeforeTrading(t *testing.T) {
	dir := setupWorkspace(t, fakeCoinGecko(t).URL)

	// live mode without chain settings
	_, err := execute(t, "run", "--config", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chain.rpc_url")

	_, err = execute(t, "run", "--config", dir, "--dry-run", "--capital", "-5")
	require.Error(t, err)

	_, err = os.Stat(filepath.Join(dir, "capital.json"))
	assert.True(t, os.IsNotExist(err), "nothing is persisted when startup fails")
}

func TestCapitalAndResetCommands(t *testing.T) {
	dir := setupWorkspace(t, "http://127.0.0.1:0")

	out, err := execute(t, "capital", "--config", dir)
	require.NoError(t, err)
	assert.Equal(t, "50", strings.TrimSpace(out), "start capital applies before the first session")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "capital.json"), []byte(`{"capital":"61.25"}`), 0o644))
	out, err = execute(t, "capital", "--config", dir)
	require.NoError(t, err)
	assert.Equal(t, "61.25", strings.TrimSpace(out))

	out, err = execute(t, "reset", "--config", dir)
	require.NoError(t, err)
	assert.Equal(t, "50", strings.TrimSpace(out))

	raw, err := os.ReadFile(filepath.Join(dir, "capital.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"capital":"50"}`, string(raw))
}
