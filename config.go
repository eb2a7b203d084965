/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

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
	bind           string
	corsOrigins    []string
	defaultName    string
	maxMessageSize int64
	maxNameLength  int
	metrics        bool
	pingInterval   time.Duration
	pingTimeout    time.Duration
	port           int
	prefix         string
	profile        bool
	sendBuffer     int
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if strings.TrimSpace(c.defaultName) == "" {
		return errors.New("--default-name must not be empty")
	}
	if c.maxNameLength < 1 {
		return fmt.Errorf("invalid max name length (must be at least 1): %d", c.maxNameLength)
	}
	if c.sendBuffer < 1 {
		return fmt.Errorf("invalid send buffer (must be at least 1): %d", c.sendBuffer)
	}
	if c.maxMessageSize < 1 {
		return fmt.Errorf("invalid max message size (must be at least 1): %d", c.maxMessageSize)
	}
	if c.pingInterval <= 0 {
		return fmt.Errorf("invalid ping interval (must be positive): %s", c.pingInterval)
	}
	if c.pingTimeout <= c.pingInterval {
		return fmt.Errorf("ping timeout (%s) must exceed ping interval (%s)", c.pingTimeout, c.pingInterval)
	}

	c.prefix = strings.TrimSuffix(c.prefix, "/")

	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("GAMEBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "gamebox",
		Short:         "Game gallery backend with a realtime multiplayer room relay.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: GAMEBOX_BIND)")
	fs.StringSliceVar(&cfg.corsOrigins, "cors-origin", []string{"*"}, "origin allowed to reach the socket endpoint, repeatable (env: GAMEBOX_CORS_ORIGIN)")
	fs.StringVar(&cfg.defaultName, "default-name", "Jogador", "display name for players who have not set one (env: GAMEBOX_DEFAULT_NAME)")
	fs.Int64Var(&cfg.maxMessageSize, "max-message-size", 64*1024, "largest inbound frame accepted, in bytes (env: GAMEBOX_MAX_MESSAGE_SIZE)")
	fs.IntVar(&cfg.maxNameLength, "max-name-length", 20, "longest display name kept, in characters (env: GAMEBOX_MAX_NAME_LENGTH)")
	fs.BoolVar(&cfg.metrics, "metrics", false, "expose prometheus metrics (env: GAMEBOX_METRICS)")
	fs.DurationVar(&cfg.pingInterval, "ping-interval", 25*time.Second, "time between websocket pings (env: GAMEBOX_PING_INTERVAL)")
	fs.DurationVar(&cfg.pingTimeout, "ping-timeout", 60*time.Second, "time to wait for a pong before dropping a player (env: GAMEBOX_PING_TIMEOUT)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: GAMEBOX_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: GAMEBOX_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: GAMEBOX_PROFILE)")
	fs.IntVar(&cfg.sendBuffer, "send-buffer", 64, "outbound messages queued per player before dropping (env: GAMEBOX_SEND_BUFFER)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: GAMEBOX_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: GAMEBOX_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: GAMEBOX_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: GAMEBOX_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, envValue(v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("gamebox v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

// envValue renders a viper value the way pflag expects to parse it. Slice
// flags report their defaults as []string, which %v would bracket.
func envValue(val any) string {
	if s, ok := val.([]string); ok {
		return strings.Join(s, ",")
	}

	return fmt.Sprintf("%v", val)
}
