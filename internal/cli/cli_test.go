package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cryptick/internal/config"
	"cryptick/internal/paths"
	"cryptick/internal/settings"
)

const (
	wbtc = "0x2260fac5e5542a773aa44fbcfedf7c193bc2c599"
	weth = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
)

type harness struct {
	t     *testing.T
	dir   string
	api   string
	run   RunFunc
	fatal func(error)
}

func newHarness(t *testing.T, h http.HandlerFunc) *harness {
	t.Helper()
	if h == nil {
		h = func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) }
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &harness{t: t, dir: t.TempDir(), api: srv.URL}
}

func (h *harness) exec(args ...string) (stdout, stderr string, code int) {
	h.t.Helper()
	var out, errb bytes.Buffer
	c := &CLI{Stdout: &out, Stderr: &errb, Run: h.run, Fatal: h.fatal}
	global := []string{"--data-dir", h.dir, "--api-base-url", h.api, "--api-retries", "0"}
	code = c.Main(context.Background(), append(global, args...))
	return out.String(), errb.String(), code
}

func (h *harness) mustExec(args ...string) string {
	h.t.Helper()
	out, errOut, code := h.exec(args...)
	require.Equal(h.t, 0, code, "stderr: %s", errOut)
	return out
}

func (h *harness) state() *config.AppState {
	h.t.Helper()
	st, err := config.NewStore(filepath.Join(h.dir, paths.StateFileName), zap.NewNop().Sugar()).Load()
	require.NoError(h.t, err)
	return st
}

func TestProfileCommands(t *testing.T) {
	h := newHarness(t, nil)

	out := h.mustExec("profile", "add", "Main")
	assert.Contains(t, out, `Created profile "Main"`)

	h.mustExec("profile", "use", "main")
	st := h.state()
	require.Len(t, st.Profiles, 4)
	assert.Equal(t, "Main", st.Active().Name)

	h.mustExec("profile", "rename", "4", "Core")
	h.mustExec("profile", "monitor", "Core", "1")
	st = h.state()
	assert.Equal(t, "Core", st.Active().Name)
	require.NotNil(t, st.Active().Monitor)
	assert.Equal(t, 1, *st.Active().Monitor)

	h.mustExec("profile", "monitor", "Core", "hide")
	assert.Nil(t, h.state().Active().Monitor)

	list := h.mustExec("profile", "list")
	assert.Contains(t, list, "High Risk Assets")
	assert.Contains(t, list, "Core")
	assert.Contains(t, list, "hidden")

	h.mustExec("profile", "rm", "Core")
	st = h.state()
	require.Len(t, st.Profiles, 3)
	assert.Equal(t, "High Risk Assets", st.Active().Name)
}

func TestProfileErrors(t *testing.T) {
	h := newHarness(t, nil)

	_, errOut, code := h.exec("profile", "add", "high risk assets")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "already in use")

	_, errOut, code = h.exec("profile", "use", "Nope")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "profile not found")

	_, _, code = h.exec("profile", "monitor", "1", "left")
	assert.Equal(t, 1, code)

	_, errOut, code = h.exec("profile", "rename", "1")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "usage:")
}

func TestTokenCommands(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/networks/eth/tokens/"+wbtc+"/info" {
			_, _ = w.Write([]byte(`{"data":{"attributes":{"name":"Wrapped BTC","symbol":"WBTC","image_url":"https://img/wbtc.png"}}}`))
			return
		}
		http.NotFound(w, r)
	})

	out := h.mustExec("token", "add", "ETH", strings.ToUpper(wbtc[:2])+wbtc[2:], "--name", "BTC")
	assert.Contains(t, out, "Found Wrapped BTC (WBTC)")

	out = h.mustExec("token", "add", "eth", weth, "--bold", "--no-separator")
	assert.Contains(t, out, "warning: could not look up")

	st := h.state()
	tokens := st.Active().Tokens
	require.Len(t, tokens, 2)
	assert.Equal(t, "eth", tokens[0].NetworkID)
	assert.Equal(t, wbtc, tokens[0].Address)
	assert.Equal(t, "BTC", tokens[0].CustomName)
	assert.True(t, tokens[1].Bold)
	assert.True(t, tokens[1].HideSeparator)
	assert.Equal(t, "Wrapped BTC", st.TokenNames["eth:"+wbtc])
	assert.Equal(t, "https://img/wbtc.png", st.TokenLogos["eth:"+wbtc])

	h.mustExec("token", "move", "2", "up")
	h.mustExec("token", "rename", "eth:"+wbtc, "Bitcoin")
	h.mustExec("token", "set", "1", "--separator=true", "--bold=false")

	tokens = h.state().Active().Tokens
	require.Len(t, tokens, 2)
	assert.Equal(t, weth, tokens[0].Address)
	assert.False(t, tokens[0].Bold)
	assert.False(t, tokens[0].HideSeparator)
	assert.Equal(t, "Bitcoin", tokens[1].CustomName)

	list := h.mustExec("token", "list")
	assert.Contains(t, list, "Wrapped BTC")
	assert.Contains(t, list, "Bitcoin")

	h.mustExec("token", "rm", "bitcoin")
	tokens = h.state().Active().Tokens
	require.Len(t, tokens, 1)
	assert.Equal(t, weth, tokens[0].Address)
}

func TestTokenAddRejectsBadInput(t *testing.T) {
	h := newHarness(t, nil)

	_, errOut, code := h.exec("token", "add", "eth", "0x1234", "--lookup=false")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid hex address")

	h.mustExec("token", "add", "eth", weth, "--lookup=false")
	_, errOut, code = h.exec("token", "add", "eth", "0X"+strings.ToUpper(weth[2:]), "--lookup=false")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "already in profile")

	_, errOut, code = h.exec("token", "rm", "7")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "token not found")
}

func TestTokenCommandsTargetOtherProfile(t *testing.T) {
	h := newHarness(t, nil)

	h.mustExec("token", "add", "solana", "So11111111111111111111111111111111111111112", "--profile", "3", "--lookup=false")

	st := h.state()
	assert.Empty(t, st.Active().Tokens)
	require.Len(t, st.Profiles[2].Tokens, 1)
	assert.Equal(t, "So11111111111111111111111111111111111111112", st.Profiles[2].Tokens[0].Address)

	out := h.mustExec("token", "--profile", "Low Risk Assets")
	assert.Contains(t, out, "solana:So11111111111111111111111111111111111111112")
}

func TestSetStyleAndHotkeys(t *testing.T) {
	h := newHarness(t, nil)

	h.mustExec("set", "opacity=0.9", "font_color=#FFCC00", "bold_price=on")
	h.mustExec("set", "--all", "refresh_sec=5")
	h.mustExec("set", "hotkey.cycle=F9", "hotkey.unlock=Ctrl + Alt + U")

	st := h.state()
	act := st.Active().Style
	assert.Equal(t, 0.9, act.Opacity)
	assert.Equal(t, "#FFCC00", act.FontColor)
	assert.True(t, act.BoldPrice)
	for _, p := range st.Profiles {
		assert.Equal(t, config.MinRefreshSec, p.Style.RefreshSec, p.Name)
	}
	assert.False(t, st.Profiles[1].Style.BoldPrice)
	assert.Equal(t, "f9", st.Hotkeys.Cycle)
	assert.Equal(t, "ctrl+alt+u", st.Hotkeys.Unlock)
	assert.Empty(t, st.Hotkeys.Pause)
}

func TestSetOptionalHotkeys(t *testing.T) {
	h := newHarness(t, nil)

	out := h.mustExec("set", "hotkey.pause=Ctrl+Alt+P", "hotkey.refresh=ctrl+alt+r")
	assert.Contains(t, out, "pause=ctrl+alt+p refresh=ctrl+alt+r")
	st := h.state()
	assert.Equal(t, "ctrl+alt+p", st.Hotkeys.Pause)
	assert.Equal(t, "ctrl+alt+r", st.Hotkeys.Refresh)
	assert.Equal(t, config.DefaultCycleHotkey, st.Hotkeys.Cycle)
	assert.Contains(t, h.mustExec("status"), "pause=ctrl+alt+p")

	h.mustExec("set", "hotkey.pause=none")
	st = h.state()
	assert.Empty(t, st.Hotkeys.Pause)
	assert.Equal(t, "ctrl+alt+r", st.Hotkeys.Refresh)

	_, errOut, code := h.exec("set", "hotkey.refresh=F8")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "already bound to cycle")

	_, errOut, code = h.exec("set", "hotkey.cycle=none")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "hotkey.cycle")
}

func TestSetRejectsInvalidValues(t *testing.T) {
	h := newHarness(t, nil)

	_, errOut, code := h.exec("set", "hotkey.cycle=mouse3")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "mouse buttons")

	_, errOut, code = h.exec("set", "font_color=blue")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "#RRGGBB")

	_, errOut, code = h.exec("set", "opacity")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "key=value")

	assert.Equal(t, config.DefaultCycleHotkey, h.state().Hotkeys.Cycle)
}

func TestPricesShowsErrorsNextToPrices(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/networks/eth/tokens/multi/") {
			_, _ = w.Write([]byte(`{"data":[{"attributes":{"address":"` + wbtc + `","name":"Wrapped BTC","symbol":"WBTC","price_usd":"60000"}}]}`))
			return
		}
		http.NotFound(w, r)
	})
	h.mustExec("token", "add", "eth", wbtc, "--name", "BTC", "--lookup=false")
	h.mustExec("token", "add", "eth", weth, "--name", "ETH", "--lookup=false")
	h.mustExec("set", "use_custom_names=true")

	out := h.mustExec("prices")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "BTC")
	assert.Contains(t, lines[1], "$60,000.00")
	assert.Contains(t, lines[1], "ok")
	assert.Contains(t, lines[2], "ETH")
	assert.Contains(t, lines[2], "error: token not reported")

	assert.Equal(t, "Wrapped BTC", h.state().TokenNames["eth:"+wbtc])
}

func TestPricesOnEmptyProfile(t *testing.T) {
	h := newHarness(t, nil)
	out := h.mustExec("prices")
	assert.Contains(t, out, "No tokens in this profile")
}

func TestNetworks(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		_, _ = w.Write([]byte(`{"data":[{"id":"eth","attributes":{"name":"Ethereum"}},{"id":"bsc","attributes":{"name":"BNB Chain"}}]}`))
	})
	out := h.mustExec("networks", "--page", "2")
	assert.Contains(t, out, "eth")
	assert.Contains(t, out, "BNB Chain")
}

func TestStatus(t *testing.T) {
	h := newHarness(t, nil)
	out := h.mustExec("status")

	assert.Contains(t, out, h.dir)
	assert.Contains(t, out, "not running")
	assert.Contains(t, out, "High Risk Assets")
	assert.Contains(t, out, "cycle=f8 unlock=ctrl+shift+f8")
}

func TestRunIsDefault(t *testing.T) {
	h := newHarness(t, nil)
	var got *settings.Settings
	h.run = func(_ context.Context, s *settings.Settings) error {
		got = s
		return nil
	}

	h.mustExec()
	require.NotNil(t, got)
	assert.Equal(t, h.dir, got.DataDir)
	assert.Equal(t, h.api, got.APIBaseURL)
}

func TestRunFailureIsReported(t *testing.T) {
	h := newHarness(t, nil)
	h.run = func(context.Context, *settings.Settings) error {
		return errors.New("no display")
	}

	_, errOut, code := h.exec()
	assert.Equal(t, 1, code)
	assert.Equal(t, "cryptick: no display\n", errOut)

	var reported error
	h.fatal = func(err error) { reported = err }
	_, errOut, code = h.exec("run")
	assert.Equal(t, 1, code)
	assert.EqualError(t, reported, "no display")
	assert.Empty(t, errOut)
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t, nil)
	_, errOut, code := h.exec("frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, `unknown command "frobnicate"`)
	assert.Contains(t, errOut, "Commands:")
}

func TestCorruptStateIsNotOverwritten(t *testing.T) {
	h := newHarness(t, nil)
	path := filepath.Join(h.dir, paths.StateFileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, errOut, code := h.exec("profile", "add", "Main")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "fix or remove the file")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(b))
}

func TestProfileExportImport(t *testing.T) {
	h := newHarness(t, nil)
	h.mustExec("token", "add", "eth", wbtc, "--name", "BTC", "--bold", "--lookup=false")
	h.mustExec("token", "add", "solana", "So11111111111111111111111111111111111111112", "--lookup=false")
	h.mustExec("set", "font_color=#00FF00", "refresh_sec=45")

	doc := h.mustExec("profile", "export", "1")
	assert.Contains(t, doc, "name: High Risk Assets")
	assert.Contains(t, doc, "#00FF00")
	assert.Contains(t, doc, "network: eth")

	file := filepath.Join(t.TempDir(), "risk.yaml")
	h.mustExec("profile", "export", "1", file)

	out := h.mustExec("profile", "import", file, "--name", "Copy")
	assert.Contains(t, out, `Imported "Copy" with 2 of 2 tokens`)

	st := h.state()
	require.Len(t, st.Profiles, 4)
	orig, cp := st.Profiles[0], st.Profiles[3]
	assert.Equal(t, "Copy", cp.Name)
	assert.NotEqual(t, orig.ID, cp.ID)
	assert.Equal(t, orig.Style, cp.Style)
	assert.Equal(t, orig.Tokens, cp.Tokens)
	assert.Equal(t, orig.Monitor, cp.Monitor)
}

func TestProfileImportFillsDefaultsAndSkipsBadTokens(t *testing.T) {
	h := newHarness(t, nil)
	var out, errb bytes.Buffer
	c := &CLI{
		Stdin: strings.NewReader("name: Imported\nstyle:\n  opacity: 0.7\ntokens:\n  - network: eth\n    address: " + weth +
			"\n  - network: eth\n    address: 0xnothex\n"),
		Stdout: &out,
		Stderr: &errb,
	}
	code := c.Main(context.Background(), []string{"--data-dir", h.dir, "profile", "import", "-"})
	require.Equal(t, 0, code, errb.String())
	assert.Contains(t, out.String(), "warning: skipped eth:0xnothex")
	assert.Contains(t, out.String(), "with 1 of 2 tokens")

	p := h.state().ProfileByName("Imported")
	require.NotNil(t, p)
	assert.Equal(t, 0.7, p.Style.Opacity)
	assert.Equal(t, config.DefaultStyle().FontPx, p.Style.FontPx)
	assert.Nil(t, p.Monitor)
	require.Len(t, p.Tokens, 1)
	assert.Equal(t, weth, p.Tokens[0].Address)
}
