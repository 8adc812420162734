package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"inkwell/internal/config"
	"inkwell/internal/dialog"
	"inkwell/internal/gui"
	"inkwell/internal/log"

	"github.com/spf13/afero"
)

// runDesktop shows the window and serves the gateway until the window
// closes. Failing to build the window is fatal.
func runDesktop(ctx context.Context, cfg *config.Config) error {
	shell, err := gui.NewShell(cfg)
	if err != nil {
		return fmt.Errorf("error while running application: %w", err)
	}

	b, err := newBackend(cfg, shell.Dialogs(), afero.NewOsFs())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh, err := b.start(ctx)
	if err != nil {
		return fmt.Errorf("error while running application: %w", err)
	}
	defer b.stop()

	shell.Attach(b.svc, b.announceOpened)

	go func() {
		select {
		case err := <-errCh:
			if err != nil {
				log.LogWithError(err).Error("Gateway stopped")
			}
			shell.Quit()
		case <-ctx.Done():
		}
	}()

	log.LogWithFields(log.F("gateway", b.gateway.BoundAddr())).Info("Inkwell running")
	shell.Run()
	return nil
}

// runHeadless serves the gateway with terminal dialogs until interrupted.
func runHeadless(ctx context.Context, cfg *config.Config, dialogs dialog.Dialogs) error {
	b, err := newBackend(cfg, dialogs, afero.NewOsFs())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh, err := b.start(ctx)
	if err != nil {
		return err
	}
	defer b.stop()

	log.LogWithFields(log.F("gateway", b.gateway.BoundAddr())).Info("Inkwell serving")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("Shutting down")
		return nil
	}
}
