package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Seednode/readyroom/room"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind          string
	cookieSecret  string
	gameTimeout   time.Duration
	maxNameLength int
	minPlayers    int
	playerTimeout time.Duration
	port          int
	prefix        string
	profile       bool
	tlsCert       string
	tlsKey        string
	tokenBytes    int
	verbose       bool
	version       bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.minPlayers < 1 {
		return fmt.Errorf("invalid minimum player count (must be at least 1): %d", c.minPlayers)
	}
	if c.maxNameLength < 2 {
		return fmt.Errorf("invalid maximum name length (must be at least 2): %d", c.maxNameLength)
	}
	if c.tokenBytes < 16 {
		return fmt.Errorf("invalid token size (must be at least 16 bytes): %d", c.tokenBytes)
	}
	if c.cookieSecret != "" && len(c.cookieSecret) < 32 {
		return errors.New("--cookie-secret must be at least 32 characters")
	}
	if c.playerTimeout < 0 || c.gameTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func (c *Config) limits() room.Limits {
	return room.Limits{
		MinPlayers:    c.minPlayers,
		MaxNameLength: c.maxNameLength,
		TokenBytes:    c.tokenBytes,
	}
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("READYROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "readyroom",
		Short:         "Shared lobby rooms that hand a ready quorum off to a game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			if cfg.verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			return ServePage(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: READYROOM_BIND)")
	fs.StringVar(&cfg.cookieSecret, "cookie-secret", "", "key used to sign player cookies; random per process if unset (env: READYROOM_COOKIE_SECRET)")
	fs.DurationVar(&cfg.gameTimeout, "game-timeout", 60*time.Minute, "time before started games are forgotten, 0 to keep forever (env: READYROOM_GAME_TIMEOUT)")
	fs.IntVar(&cfg.maxNameLength, "max-name-length", room.DefaultMaxNameLength, "names must be shorter than this many characters (env: READYROOM_MAX_NAME_LENGTH)")
	fs.IntVar(&cfg.minPlayers, "min-players", room.DefaultMinPlayers, "ready players needed before a game can start (env: READYROOM_MIN_PLAYERS)")
	fs.DurationVar(&cfg.playerTimeout, "player-timeout", 10*time.Minute, "time before idle connections are dropped, 0 to never drop (env: READYROOM_PLAYER_TIMEOUT)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: READYROOM_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: READYROOM_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: READYROOM_PROFILE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: READYROOM_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: READYROOM_TLS_KEY)")
	fs.IntVar(&cfg.tokenBytes, "token-bytes", room.DefaultTokenBytes, "random bytes per player token (env: READYROOM_TOKEN_BYTES)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: READYROOM_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: READYROOM_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("readyroom v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
