package cmd

import (
	"context"
	"fmt"

	"inkwell/internal/config"
	"inkwell/internal/dialog"
	"inkwell/internal/editor"
	"inkwell/internal/gateway"
	"inkwell/internal/log"
	"inkwell/internal/watch"
	"inkwell/internal/worker"

	"github.com/spf13/afero"
)

// backend is the editor service plus the collaborators that serve it: the
// disk watcher and the UI gateway.
type backend struct {
	svc     *editor.Service
	daemon  *watch.Daemon
	gateway *gateway.Server
	unsub   func()
}

func newBackend(cfg *config.Config, dialogs dialog.Dialogs, fs afero.Fs) (*backend, error) {
	mode, err := cfg.FileMode()
	if err != nil {
		return nil, err
	}

	svc := editor.NewService(editor.NewState(), dialogs, fs, worker.NewPool(cfg.Editor.Workers), editor.Options{
		OpenFilters: dialog.FiltersFromConfig(cfg.Dialogs.OpenFilters),
		SaveFilters: dialog.FiltersFromConfig(cfg.Dialogs.SaveFilters),
		StartDir:    cfg.StartDir(),
		FileMode:    mode,
	})

	b := &backend{svc: svc}

	if cfg.Editor.WatchExternalChanges {
		daemon, err := watch.NewDaemon(svc)
		if err != nil {
			return nil, fmt.Errorf("failed to create file watcher: %w", err)
		}
		b.daemon = daemon
	}

	b.gateway = gateway.NewServer(gateway.Options{
		Addr:    cfg.Gateway.Addr,
		Token:   cfg.Gateway.Token,
		Origins: cfg.Gateway.Origins,
	})
	b.unsub = gateway.RegisterEditorHandlers(b.gateway, svc)

	return b, nil
}

// start launches the watcher and the gateway. The returned channel yields
// the gateway's exit error once it stops.
func (b *backend) start(ctx context.Context) (<-chan error, error) {
	if b.daemon != nil {
		if err := b.daemon.Start(); err != nil {
			log.LogWithError(err).Warn("External change detection disabled")
			b.daemon = nil
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- b.gateway.Start(ctx) }()

	select {
	case <-b.gateway.Ready():
		return errCh, nil
	case err := <-errCh:
		b.stopDaemon()
		return nil, err
	}
}

// announceOpened tells UI clients about a file opened from the desktop menu.
func (b *backend) announceOpened(opened *editor.OpenedFile) {
	b.gateway.Broadcast(gateway.EventFileOpened, opened)
}

func (b *backend) stop() {
	if err := b.gateway.Stop(context.Background()); err != nil {
		log.LogWithError(err).Warn("Gateway shutdown failed")
	}
	b.unsub()
	b.stopDaemon()
}

func (b *backend) stopDaemon() {
	if b.daemon != nil {
		b.daemon.Stop()
	}
}
