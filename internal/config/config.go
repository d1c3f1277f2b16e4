// Copyright 2026 The backersbot authors
// Licensed under the EUPL-1.2

package config

import (
	"fmt"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

// DefaultPrefix is used for guild-channel commands when no prefix is
// configured. Direct messages never require a prefix.
const DefaultPrefix = "!kickstarter "

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Database       DatabaseConfig
	Mail           MailConfig
	Discord        DiscordConfig
	Log            LogConfig
	Health         HealthConfig
	CommandTimeout time.Duration
}

type DatabaseConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Driver   string // postgres, sqlite
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	DSN      string // sqlite path, used when Driver is "sqlite"
}

type MailConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Backend    string // mailgun, smtp
	MailgunKey string
	Domain     string // Mailgun sending domain
	From       string
	Timeout    time.Duration
	SMTP       SMTPConfig
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string
	Port     int
	Username string
	Password string
	TLS      bool
}

type DiscordConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Token     string
	GuildID   int64
	InviteURL string
	Prefix    string
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type HealthConfig struct {
	Addr string // empty disables the ops listener
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Database: DatabaseConfig{
			Driver:   cmd.String("db-driver"),
			Host:     cmd.String("db-host"),
			Port:     int(cmd.Int("db-port")),
			User:     cmd.String("db-user"),
			Password: cmd.String("db-password"),
			Name:     cmd.String("db-name"),
			SSLMode:  cmd.String("db-sslmode"),
			DSN:      cmd.String("db-dsn"),
		},
		Mail: MailConfig{
			Backend:    cmd.String("mail-backend"),
			MailgunKey: cmd.String("mailgun-key"),
			Domain:     cmd.String("mailgun-host"),
			From:       cmd.String("mail-from"),
			Timeout:    cmd.Duration("mail-timeout"),
			SMTP: SMTPConfig{
				Host:     cmd.String("smtp-host"),
				Port:     int(cmd.Int("smtp-port")),
				Username: cmd.String("smtp-username"),
				Password: cmd.String("smtp-password"),
				TLS:      cmd.Bool("smtp-tls"),
			},
		},
		Discord: DiscordConfig{
			Token:     cmd.String("bot-token"),
			GuildID:   int64(cmd.Int("guild-id")),
			InviteURL: cmd.String("invite-url"),
			Prefix:    cmd.String("prefix"),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Health: HealthConfig{
			Addr: cmd.String("health-addr"),
		},
		CommandTimeout: cmd.Duration("command-timeout"),
	}

	if cfg.Discord.Prefix == "" {
		cfg.Discord.Prefix = DefaultPrefix
	}

	return cfg
}

// Validate fails fast on missing or malformed settings so the process never
// starts half-configured.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" || c.Database.Port == 0 || c.Database.User == "" ||
			c.Database.Password == "" || c.Database.Name == "" {
			return fmt.Errorf("incorrect database configuration: host, port, user, password and name are required")
		}
	case "sqlite":
		if c.Database.DSN == "" {
			return fmt.Errorf("incorrect database configuration: db-dsn is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	switch c.Mail.Backend {
	case "mailgun":
		if c.Mail.MailgunKey == "" || c.Mail.Domain == "" || c.Mail.From == "" {
			return fmt.Errorf("incorrect mailgun configuration: key, host and from address are required")
		}
	case "smtp":
		if c.Mail.SMTP.Host == "" || c.Mail.From == "" {
			return fmt.Errorf("incorrect smtp configuration: host and from address are required")
		}
	default:
		return fmt.Errorf("unknown mail backend %q", c.Mail.Backend)
	}

	if c.Discord.Token == "" {
		return fmt.Errorf("bot token is not set")
	}
	if c.Discord.GuildID == 0 {
		return fmt.Errorf("guild id is not set or not a number")
	}
	if c.Discord.InviteURL == "" {
		return fmt.Errorf("server invite url is not set")
	}

	return nil
}

func Flags() []cli.Flag {
	return []cli.Flag{
		// Database
		&cli.StringFlag{
			Name:    "db-driver",
			Value:   "postgres",
			Usage:   "Database driver (postgres, sqlite)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DB_DRIVER"), toml.TOML("database.driver", configFile)),
		},
		&cli.StringFlag{
			Name:    "db-host",
			Usage:   "Database host",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DB_HOST"), toml.TOML("database.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "db-port",
			Value:   5432,
			Usage:   "Database port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DB_PORT"), toml.TOML("database.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "db-user",
			Usage:   "Database user",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DB_USER"), toml.TOML("database.user", configFile)),
		},
		&cli.StringFlag{
			Name:    "db-password",
			Usage:   "Database password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DB_PASS"), toml.TOML("database.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "db-name",
			Usage:   "Database name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DB_NAME"), toml.TOML("database.name", configFile)),
		},
		&cli.StringFlag{
			Name:    "db-sslmode",
			Value:   "require",
			Usage:   "Postgres sslmode",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DB_SSLMODE"), toml.TOML("database.sslmode", configFile)),
		},
		&cli.StringFlag{
			Name:    "db-dsn",
			Usage:   "SQLite database path (sqlite driver only)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DB_DSN"), toml.TOML("database.dsn", configFile)),
		},

		// Mail
		&cli.StringFlag{
			Name:    "mail-backend",
			Value:   "mailgun",
			Usage:   "Mail backend (mailgun, smtp)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAIL_BACKEND"), toml.TOML("mail.backend", configFile)),
		},
		&cli.StringFlag{
			Name:    "mailgun-key",
			Usage:   "Mailgun API key",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAILGUN_KEY"), toml.TOML("mail.mailgun_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "mailgun-host",
			Usage:   "Mailgun sending domain",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAILGUN_HOST"), toml.TOML("mail.mailgun_host", configFile)),
		},
		&cli.StringFlag{
			Name:    "mail-from",
			Usage:   "From address for verification emails",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAILGUN_EMAIL"), toml.TOML("mail.from", configFile)),
		},
		&cli.DurationFlag{
			Name:    "mail-timeout",
			Value:   10 * time.Second,
			Usage:   "Timeout for outbound mail calls",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAIL_TIMEOUT"), toml.TOML("mail.timeout", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP host (smtp backend only)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("mail.smtp_host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("mail.smtp_port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("mail.smtp_username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("mail.smtp_password", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("mail.smtp_tls", configFile)),
		},

		// Discord
		&cli.StringFlag{
			Name:    "bot-token",
			Usage:   "Discord bot token",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BOT_TOKEN"), toml.TOML("discord.bot_token", configFile)),
		},
		&cli.IntFlag{
			Name:    "guild-id",
			Usage:   "Numeric id of the Discord server",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SERVER_ID"), toml.TOML("discord.guild_id", configFile)),
		},
		&cli.StringFlag{
			Name:    "invite-url",
			Usage:   "Invite link sent to users who are not yet members",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SERVER_INVITE_LINK"), toml.TOML("discord.invite_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "prefix",
			Value:   DefaultPrefix,
			Usage:   "Command prefix for guild channels",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BOT_PREFIX"), toml.TOML("discord.prefix", configFile)),
		},

		// Runtime
		&cli.DurationFlag{
			Name:    "command-timeout",
			Value:   15 * time.Second,
			Usage:   "Deadline for a single command invocation",
			Sources: cli.NewValueSourceChain(cli.EnvVar("COMMAND_TIMEOUT"), toml.TOML("runtime.command_timeout", configFile)),
		},
		&cli.StringFlag{
			Name:    "health-addr",
			Value:   ":8090",
			Usage:   "Listen address for /healthz and /readyz (empty disables)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HEALTH_ADDR"), toml.TOML("runtime.health_addr", configFile)),
		},

		// Logging
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
	}
}
