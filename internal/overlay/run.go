// Package overlay draws the ticker bar with Ebiten.
package overlay

import (
	"context"
	"errors"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"cryptick/internal/app"
	"cryptick/internal/paths"
	"cryptick/internal/ticker"
)

// Run opens the bar window and blocks until ctx is done or the user quits.
func Run(ctx context.Context, ctl *app.Controller, logos LogoSource, log *zap.SugaredLogger) error {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	ebiten.SetWindowTitle(paths.AppName)
	ebiten.SetWindowDecorated(false)
	ebiten.SetWindowFloating(true)
	ebiten.SetWindowMousePassthrough(true)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeDisabled)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetWindowSize(800, ticker.BarHeight)
	ebiten.SetWindowPosition(0, 0)

	g := newGame(ctx, ctl, logos, log)
	err := ebiten.RunGameWithOptions(g, &ebiten.RunGameOptions{
		ScreenTransparent: true,
		SkipTaskbar:       true,
		InitUnfocused:     true,
	})
	if err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	log.Infow("Overlay closed")
	return nil
}
