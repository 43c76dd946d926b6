package main

import (
	"context"
	"sync"
	"time"

	"github.com/lokalapp/notiflow/internal/analytics"
	"github.com/lokalapp/notiflow/internal/config"
	"github.com/lokalapp/notiflow/internal/domain"
	"github.com/lokalapp/notiflow/internal/hooks"
	"github.com/lokalapp/notiflow/internal/imagefetch"
	"github.com/lokalapp/notiflow/internal/lifecycle"
	"github.com/lokalapp/notiflow/internal/logging"
	"github.com/lokalapp/notiflow/internal/ports"
	"github.com/lokalapp/notiflow/internal/refresher"
	"github.com/lokalapp/notiflow/internal/simtray"
	"github.com/lokalapp/notiflow/internal/storage"
	"github.com/lokalapp/notiflow/internal/version"
)

// app wires the controller from the loaded configuration on first use, after the root
// command has run config.Load.
type app struct {
	once    sync.Once
	err     error
	backend storage.Backend
	ctrl    *lifecycle.Controller
}

var appClient = &app{}

// deviceFromConfig describes the simulated device.
func deviceFromConfig() ports.StaticDevice {
	return ports.StaticDevice{
		LowFidelity: config.GetBool("low_fidelity_device", false),
		Package:     config.Get("package_name", "io.lokal.app"),
		Version:     config.GetInt("platform_version", 33),
	}
}

func (a *app) controller() (*lifecycle.Controller, error) {
	a.once.Do(func() {
		backend, err := storage.NewFromConfig()
		if err != nil {
			a.err = err
			return
		}
		a.backend = backend
		a.ctrl = newController(backend, deviceFromConfig())
	})
	return a.ctrl, a.err
}

func newController(kv ports.KeyValueStore, device ports.StaticDevice) *lifecycle.Controller {
	log := logging.GetGlobal()
	tray := simtray.New(kv, device,
		simtray.WithLogger(log),
		simtray.WithBulkEnumeration(config.GetBool("bulk_enumeration", true)))
	retention := time.Duration(config.GetInt("record_retention_days", 7)) * 24 * time.Hour
	return lifecycle.New(lifecycle.Deps{
		Platform:  tray,
		Images:    imagefetch.New(imagefetch.WithLogger(log)),
		Config:    config.NewProvider(),
		Device:    device,
		Analytics: hooks.NewSink(analytics.NewLogSink(log), hooks.New(
			config.Get("hooks_dir", ""),
			hooks.WithLogger(log),
			hooks.WithTimeout(config.GetDuration("hooks_timeout", hooks.DefaultTimeout)))),
		Store:     kv,
	},
		lifecycle.WithLogger(log),
		lifecycle.WithSchedule(config.Get("refresh_schedule", "@every 15m")),
		lifecycle.WithRetention(retention),
		lifecycle.WithRefresherOptions(
			refresher.WithPacer(refresher.RatePacer(config.GetDuration("refresh_pacing", refresher.DefaultPacing))),
			refresher.WithSilentReset(config.GetDuration("silent_reset", refresher.DefaultSilentReset)),
		),
	)
}

// Close releases the storage backend.
func (a *app) Close() error {
	if a.backend == nil {
		return nil
	}
	return a.backend.Close()
}

func (a *app) CreateNotification(ctx context.Context, req domain.Request) (bool, error) {
	c, err := a.controller()
	if err != nil {
		return false, err
	}
	return c.CreateNotification(ctx, req)
}

func (a *app) CancelNotification(ctx context.Context, id int) error {
	c, err := a.controller()
	if err != nil {
		return err
	}
	return c.CancelNotification(ctx, id)
}

func (a *app) MarkRead(ctx context.Context, readKey string) error {
	c, err := a.controller()
	if err != nil {
		return err
	}
	return c.MarkRead(ctx, readKey)
}

func (a *app) RefreshNotifications(ctx context.Context) error {
	c, err := a.controller()
	if err != nil {
		return err
	}
	return c.RefreshNotifications(ctx)
}

func (a *app) LimitNotifications(ctx context.Context) (int, error) {
	c, err := a.controller()
	if err != nil {
		return 0, err
	}
	return c.LimitNotifications(ctx)
}

func (a *app) VisibleNotifications(ctx context.Context) ([]domain.ActiveNotification, error) {
	c, err := a.controller()
	if err != nil {
		return nil, err
	}
	return c.VisibleNotifications(ctx)
}

func (a *app) Records(ctx context.Context) ([]domain.Record, error) {
	c, err := a.controller()
	if err != nil {
		return nil, err
	}
	return c.Records(ctx)
}

func (a *app) BadgeCount(ctx context.Context) (int, error) {
	c, err := a.controller()
	if err != nil {
		return 0, err
	}
	return c.BadgeCount(ctx)
}

func (a *app) CleanupOldRecords(ctx context.Context) (int, error) {
	c, err := a.controller()
	if err != nil {
		return 0, err
	}
	return c.CleanupOldRecords(ctx)
}

func (a *app) Start(ctx context.Context) error {
	c, err := a.controller()
	if err != nil {
		return err
	}
	return c.Start(ctx)
}

func (a *app) Stop() {
	if a.ctrl != nil {
		a.ctrl.Stop()
	}
}

func (a *app) RemoteSettings() map[string]string {
	return config.RemoteSnapshot()
}

func (a *app) RemoteOverridden(key string) bool {
	return config.IsRemoteSet(key)
}

func (a *app) Version() string {
	return version.String()
}
