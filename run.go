package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sketchbox/sketchbox/session"
)

// Run wires the control plane, the game session, and the local viewer
// together, then serves until ctx is canceled.
func Run(ctx context.Context, cfg *Config) error {
	logf(cfg, "START: sketchbox v%s", releaseVersion)

	var control *session.ControlClient
	if cfg.api != "" {
		var err error
		control, err = session.NewControlClient(cfg.api, func(format string, args ...any) {
			logf(cfg, format, args...)
		})
		if err != nil {
			return err
		}
	}

	if control != nil && cfg.password != "" {
		if err := control.Login(ctx, cfg.username, cfg.password); err != nil {
			return err
		}
		defer control.Logout(context.Background())
	}

	room := cfg.room
	if cfg.createAdmins > 0 {
		created, err := control.CreateRoom(ctx, cfg.createAdmins)
		if err != nil {
			return err
		}
		room = created
	}

	registry := prometheus.NewRegistry()

	sess := session.New(session.Options{
		Server:          cfg.server,
		RoomID:          room,
		Role:            cfg.role,
		Username:        cfg.username,
		RenderInterval:  cfg.renderEvery,
		SnapshotQuality: cfg.quality,
		Control:         control,
		Metrics:         session.NewMetrics(registry),
		Logf: func(format string, args ...any) {
			logf(cfg, format, args...)
		},
	})

	sessErrs := make(chan error, 1)
	go func() {
		sessErrs <- sess.Run(ctx)
	}()

	return ServeViewer(ctx, cfg, sess, registry, sessErrs)
}
