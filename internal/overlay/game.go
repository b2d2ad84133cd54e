package overlay

import (
	"context"
	"image"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/temidaradev/esset/v2"
	"go.uber.org/zap"

	"cryptick/internal/app"
	"cryptick/internal/config"
	"cryptick/internal/hotkey"
	"cryptick/internal/ticker"
)

const (
	gripWidth   = 16
	glyphFontPx = 11
)

// LogoSource returns cached logos. *logo.Cache satisfies it.
type LogoSource interface {
	Get(key string) (image.Image, bool)
}

// Game is the bar window. All state belongs to the Ebiten goroutine.
type Game struct {
	ctx   context.Context
	ctl   *app.Controller
	logos LogoSource
	log   *zap.SugaredLogger
	fonts *fontCache

	logoImages map[string]*ebiten.Image

	layout        ticker.Layout
	layoutVersion uint64
	layoutStyle   config.Style
	marquee       ticker.Marquee
	lastTick      time.Time

	scale       float64
	barWidth    int
	monitor     int
	visible     bool
	passthrough bool
	focused     bool
	wasUnlocked bool

	dragging      bool
	dragX, dragY  int
	dragMoved     bool
	fontErrLogged bool
}

func newGame(ctx context.Context, ctl *app.Controller, logos LogoSource, log *zap.SugaredLogger) *Game {
	return &Game{
		ctx:           ctx,
		ctl:           ctl,
		logos:         logos,
		log:           log,
		fonts:         newFontCache(),
		logoImages:    map[string]*ebiten.Image{},
		layoutVersion: ^uint64(0),
		scale:         1,
		monitor:       -1,
		passthrough:   true,
		lastTick:      time.Now(),
	}
}

func (g *Game) Update() error {
	if g.ctx.Err() != nil || g.ctl.QuitRequested() {
		return ebiten.Termination
	}

	g.handleLocalKeys()
	g.ctl.Poll()

	bar := g.ctl.Bar()
	g.place(bar)
	g.applyInputMode(bar)
	g.handleDrag()

	if g.ctl.Version() != g.layoutVersion || g.layoutStyle != bar.Style {
		g.relayout(bar)
	}

	now := time.Now()
	dt := now.Sub(g.lastTick)
	g.lastTick = now
	if g.layout.Scrolls(float64(g.barWidth)) {
		g.marquee.Step(dt, g.layout.Width)
	} else {
		g.marquee.Reset()
	}
	return nil
}

// handleLocalKeys serves the keyboard while the bar is unlocked and has
// focus: R refreshes, P pauses, Esc locks the bar again.
func (g *Game) handleLocalKeys() {
	if !g.ctl.Unlocked() || !ebiten.IsFocused() {
		return
	}
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		g.ctl.HandleAction(hotkey.ActionRefresh)
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		g.ctl.HandleAction(hotkey.ActionPause)
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		g.ctl.HandleAction(hotkey.ActionUnlock)
	case inpututil.IsKeyJustPressed(ebiten.KeyQ) && ebiten.IsKeyPressed(ebiten.KeyControl):
		g.ctl.HandleAction(hotkey.ActionQuit)
	}
}

// place moves the window to the top of the active profile's monitor.
func (g *Game) place(bar ticker.Bar) {
	g.visible = bar.Visible()
	if !g.visible {
		return
	}

	monitors := ebiten.AppendMonitors(nil)
	if len(monitors) == 0 {
		return
	}
	idx := min(max(*bar.Monitor, 0), len(monitors)-1)
	m := monitors[idx]
	w, _ := m.Size()
	if idx == g.monitor && w == g.barWidth {
		return
	}

	ebiten.SetMonitor(m)
	ebiten.SetWindowSize(w, ticker.BarHeight)
	x, y := 0, 0
	if pos, ok := g.ctl.WindowPos(idx); ok {
		x, y = pos.X, pos.Y
	}
	ebiten.SetWindowPosition(x, y)

	g.monitor = idx
	g.barWidth = w
	g.scale = m.DeviceScaleFactor()
	g.layoutVersion = ^uint64(0)
	g.log.Infow("Bar placed", "monitor", idx, "name", m.Name(), "width", w, "scale", g.scale)
}

func (g *Game) applyInputMode(bar ticker.Bar) {
	unlocked := g.ctl.Unlocked()
	want := !unlocked && (bar.Style.ClickThrough || !g.visible)
	if want != g.passthrough {
		ebiten.SetWindowMousePassthrough(want)
		g.passthrough = want
	}

	if g.wasUnlocked && !unlocked && g.monitor >= 0 {
		x, y := ebiten.WindowPosition()
		g.ctl.SaveWindowPos(g.monitor, x, y)
	}
	g.wasUnlocked = unlocked

	// Other windows taking focus can push the bar down the z-order.
	if f := ebiten.IsFocused(); f != g.focused {
		g.focused = f
		ebiten.SetWindowFloating(true)
	}
}

func (g *Game) handleDrag() {
	if !g.ctl.Unlocked() {
		g.dragging = false
		return
	}
	cx, cy := ebiten.CursorPosition()

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) && float64(cx) < gripWidth*g.scale {
		g.dragging = true
		g.dragX, g.dragY = cx, cy
		g.dragMoved = false
		return
	}
	if !g.dragging {
		return
	}
	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		g.dragging = false
		if g.dragMoved && g.monitor >= 0 {
			x, y := ebiten.WindowPosition()
			g.ctl.SaveWindowPos(g.monitor, x, y)
		}
		return
	}

	// Cursor coordinates are window relative, so moving the window by the
	// delta brings the cursor back to the grab point.
	dx := int(float64(cx-g.dragX) / g.scale)
	dy := int(float64(cy-g.dragY) / g.scale)
	if dx == 0 && dy == 0 {
		return
	}
	x, y := ebiten.WindowPosition()
	ebiten.SetWindowPosition(x+dx, y+dy)
	g.dragMoved = true
}

func (g *Game) relayout(bar ticker.Bar) {
	g.layoutVersion = g.ctl.Version()
	g.layoutStyle = bar.Style
	g.layout = ticker.Arrange(bar.Items, measurer{g: g, style: bar.Style}, bar.Style.ShowLogo)
}

type measurer struct {
	g     *Game
	style config.Style
}

func (m measurer) Width(s string, bold bool) float64 {
	f := m.g.face(m.style, bold)
	if f == nil {
		return 0
	}
	w, _ := text.Measure(s, f, 0)
	return w / m.g.scale
}

func (g *Game) face(style config.Style, bold bool) text.Face {
	f, err := g.fonts.face(style.FontFamily, float64(style.FontPx)*g.scale, bold)
	if err != nil {
		if !g.fontErrLogged {
			g.log.Errorw("Font unavailable", "error", err)
			g.fontErrLogged = true
		}
		return nil
	}
	return f
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Clear()
	if !g.visible {
		return
	}

	bar := g.ctl.Bar()
	style := bar.Style
	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	vector.DrawFilledRect(screen, 0, 0, float32(sw), float32(sh), ticker.Background(style.Opacity), false)

	base := ticker.ParseColor(style.FontColor)
	if len(g.layout.Items) == 0 {
		g.drawCentered(screen, bar.Placeholder, style, ticker.Dim(base, 0.7))
	}

	for _, origin := range g.layout.Origins(float64(g.barWidth), &g.marquee) {
		for _, p := range g.layout.Items {
			x := origin + p.X
			if x > float64(g.barWidth) || x+p.Width+ticker.ItemSpacing < 0 {
				continue
			}
			g.drawItem(screen, p, x, style, base)
		}
	}

	if g.ctl.Paused() {
		g.drawRightLabel(screen, "paused", style, ticker.StaleColor)
	}
	if g.ctl.Unlocked() {
		g.drawGrip(screen)
	}
}

func (g *Game) drawItem(screen *ebiten.Image, p ticker.Placed, x float64, style config.Style, base color.RGBA) {
	s := g.scale
	if p.HasLogo {
		ly := (ticker.BarHeight - ticker.LogoSize) / 2.0
		g.drawLogo(screen, p.Item, x*s, ly*s)
	}

	txtColor := ticker.TextColor(base, p.Item)
	for _, seg := range p.Segments {
		f := g.face(style, seg.Bold)
		if f == nil {
			return
		}
		_, h := text.Measure(seg.Text, f, 0)
		y := (ticker.BarHeight*s - h) / 2

		clr := txtColor
		switch seg.Part {
		case ticker.PartDot, ticker.PartSeparator:
			clr = ticker.Dim(base, 0.6)
		case ticker.PartMarker:
			clr = ticker.MarkerColor(seg.Text)
		}
		esset.DrawText(screen, seg.Text, 0, (x+seg.X)*s, y, f, clr)
	}
}

func (g *Game) drawLogo(screen *ebiten.Image, it ticker.Item, x, y float64) {
	size := ticker.LogoSize * g.scale
	img, ok := g.logoImages[it.Key]
	if !ok && g.logos != nil {
		if src, found := g.logos.Get(it.Key); found {
			img = ebiten.NewImageFromImage(src)
			g.logoImages[it.Key] = img
		}
	}
	if img != nil {
		op := &ebiten.DrawImageOptions{}
		op.Filter = ebiten.FilterLinear
		b := img.Bounds()
		op.GeoM.Scale(size/float64(b.Dx()), size/float64(b.Dy()))
		op.GeoM.Translate(x, y)
		screen.DrawImage(img, op)
		return
	}

	// Fallback glyph: a disc with the token's initial.
	r := float32(size / 2)
	vector.DrawFilledCircle(screen, float32(x)+r, float32(y)+r, r, color.RGBA{70, 90, 140, 255}, true)

	f, err := g.fonts.face("", glyphFontPx*g.scale, true)
	if err != nil {
		return
	}
	initial := it.Initial()
	w, h := text.Measure(initial, f, 0)
	esset.DrawText(screen, initial, 0, x+(size-w)/2, y+(size-h)/2, f, ticker.White)
}

func (g *Game) drawCentered(screen *ebiten.Image, msg string, style config.Style, clr color.RGBA) {
	f := g.face(style, false)
	if f == nil || msg == "" {
		return
	}
	w, h := text.Measure(msg, f, 0)
	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	esset.DrawText(screen, msg, 0, (float64(sw)-w)/2, (float64(sh)-h)/2, f, clr)
}

func (g *Game) drawRightLabel(screen *ebiten.Image, msg string, style config.Style, clr color.RGBA) {
	f := g.face(style, false)
	if f == nil {
		return
	}
	w, h := text.Measure(msg, f, 0)
	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	pad := ticker.EdgePadding * g.scale

	vector.DrawFilledRect(screen, float32(float64(sw)-w-2*pad), 0, float32(w+2*pad), float32(sh), color.RGBA{0, 0, 0, 200}, false)
	esset.DrawText(screen, msg, 0, float64(sw)-w-pad, (float64(sh)-h)/2, f, clr)
}

func (g *Game) drawGrip(screen *ebiten.Image) {
	s := float32(g.scale)
	h := float32(screen.Bounds().Dy())
	vector.DrawFilledRect(screen, 0, 0, gripWidth*s, h, color.RGBA{60, 60, 60, 230}, false)
	for i := 0; i < 3; i++ {
		cy := h/2 + float32(i-1)*6*s
		vector.DrawFilledCircle(screen, gripWidth*s/2, cy, 1.8*s, color.RGBA{220, 220, 220, 255}, true)
	}
	vector.StrokeRect(screen, 0.5, 0.5, float32(screen.Bounds().Dx())-1, h-1, 1, ticker.StaleColor, false)
}

// Layout renders at device resolution so text stays sharp on HiDPI screens.
func (g *Game) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	return int(float64(outsideWidth) * g.scale), int(float64(outsideHeight) * g.scale)
}
