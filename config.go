package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	api          string
	bind         string
	createAdmins int
	password     string
	port         int
	prefix       string
	profile      bool
	quality      int
	renderEvery  time.Duration
	role         string
	room         string
	server       string
	username     string
	verbose      bool
	version      bool
}

func (c *Config) validate() error {
	if c.server == "" {
		return errors.New("a game server endpoint is required (--server)")
	}
	if c.room == "" && c.createAdmins < 1 {
		return errors.New("either --room or --create-admins must be provided")
	}
	if c.createAdmins > 0 && c.api == "" {
		return errors.New("--create-admins requires an api endpoint (--api)")
	}
	if c.role != "admin" && c.role != "user" {
		return fmt.Errorf("invalid role (must be admin or user): %s", c.role)
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.quality < 1 || c.quality > 100 {
		return fmt.Errorf("invalid snapshot quality (must be between 1-100 inclusive): %d", c.quality)
	}
	if c.renderEvery < time.Millisecond {
		return fmt.Errorf("invalid render interval (must be at least 1ms): %s", c.renderEvery)
	}
	return nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SKETCHBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "sketchbox",
		Short:         "A drawing-and-guessing game client with a local web viewer.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return Run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&cfg.api, "api", "", "http api endpoint, for room creation and auth (env: SKETCHBOX_API)")
	fs.StringVarP(&cfg.bind, "bind", "b", "127.0.0.1", "address to bind the viewer to (env: SKETCHBOX_BIND)")
	fs.IntVar(&cfg.createAdmins, "create-admins", 0, "create a new room with this admin capacity instead of joining one (env: SKETCHBOX_CREATE_ADMINS)")
	fs.StringVar(&cfg.password, "password", "", "password for the users api (env: SKETCHBOX_PASSWORD)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port for the viewer to listen on (env: SKETCHBOX_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all viewer URLs, for use behind reverse proxy (env: SKETCHBOX_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: SKETCHBOX_PROFILE)")
	fs.IntVar(&cfg.quality, "quality", 80, "jpeg quality for snapshot replies (env: SKETCHBOX_QUALITY)")
	fs.DurationVar(&cfg.renderEvery, "render-interval", 50*time.Millisecond, "how often queued actions are replayed (env: SKETCHBOX_RENDER_INTERVAL)")
	fs.StringVar(&cfg.role, "role", "user", "role to join as, admin or user (env: SKETCHBOX_ROLE)")
	fs.StringVar(&cfg.room, "room", "", "id of the room to join (env: SKETCHBOX_ROOM)")
	fs.StringVarP(&cfg.server, "server", "s", "", "websocket game endpoint, e.g. ws://host:8000/game/ (env: SKETCHBOX_SERVER)")
	fs.StringVarP(&cfg.username, "username", "u", "guest", "name shown on chat messages (env: SKETCHBOX_USERNAME)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: SKETCHBOX_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: SKETCHBOX_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("sketchbox v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
