// Package config loads the relay settings from environment variables,
// applies defaults and validates the result. Settings are read once at
// startup and never modified afterwards.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	errs "github.com/edgard/gptrelay/internal/errors"
)

// dotEnvPath is loaded before the environment is read. Variables already
// present in the environment take precedence over the file.
const dotEnvPath = ".env"

// HeartbeatDisabled turns the heartbeat job off when used as BOT_HEARTBEAT_SCHEDULE.
const HeartbeatDisabled = "off"

// Settings holds every value the relay needs at runtime.
type Settings struct {
	// Messaging platform and completion endpoint
	BotToken string `mapstructure:"teloxide_token"    validate:"required"`
	APIKey   string `mapstructure:"openai_api_key"    validate:"required"`
	APIBase  string `mapstructure:"openai_api_base"   validate:"required,url"`
	Model    string `mapstructure:"openai_model_name" validate:"required"`
	Greeting string `mapstructure:"bot_greeting_message"`

	SystemPrompt string        `mapstructure:"openai_system_prompt"`
	Timeout      time.Duration `mapstructure:"openai_timeout" validate:"min=1s,max=10m"`

	// Logging
	LogLevel  string `mapstructure:"log_level"  validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=json text"`

	// Bot behaviour
	Username             string   `mapstructure:"bot_username"`
	MentionAliases       []string `mapstructure:"bot_mention_aliases"`
	ReplyInPrivate       bool     `mapstructure:"bot_reply_in_private"`
	ErrorMessage         string   `mapstructure:"bot_error_message"          validate:"required"`
	EmptyPromptMessage   string   `mapstructure:"bot_empty_prompt_message"   validate:"required"`
	MaxConcurrentUpdates int      `mapstructure:"bot_max_concurrent_updates" validate:"min=0"`
	DropPendingUpdates   bool     `mapstructure:"bot_drop_pending_updates"`
	HeartbeatSchedule    string   `mapstructure:"bot_heartbeat_schedule"`

	// Webhook and HTTP surface
	WebhookURL     string `mapstructure:"telegram_webhook_url"    validate:"omitempty,url"`
	WebhookSecret  string `mapstructure:"telegram_webhook_secret" validate:"max=256"`
	HTTPListenAddr string `mapstructure:"http_listen_addr"`
}

// UseWebhook reports whether updates arrive through a webhook instead of long polling.
func (s *Settings) UseWebhook() bool {
	return s.WebhookURL != ""
}

// HeartbeatEnabled reports whether the periodic heartbeat job should be scheduled.
func (s *Settings) HeartbeatEnabled() bool {
	return s.HeartbeatSchedule != "" && !strings.EqualFold(s.HeartbeatSchedule, HeartbeatDisabled)
}

// Load reads .env (if present) and the process environment, applies
// defaults and validates the result. Any failure is a ConfigurationError.
func Load() (*Settings, error) {
	if err := godotenv.Load(dotEnvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errs.NewConfigurationError("failed to read "+dotEnvPath, err)
	}

	v := viper.New()
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, errs.NewConfigurationError("failed to bind "+env, err)
		}
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, errs.NewConfigurationError("failed to parse environment", err)
	}

	normalize(s)

	if err := validate(s); err != nil {
		return nil, err
	}

	slog.Debug("configuration loaded",
		"api_base", s.APIBase,
		"model", s.Model,
		"timeout", s.Timeout,
		"webhook", s.UseWebhook(),
		"mention_aliases", len(s.MentionAliases))

	return s, nil
}

func normalize(s *Settings) {
	s.BotToken = strings.TrimSpace(s.BotToken)
	s.APIKey = strings.TrimSpace(s.APIKey)
	s.APIBase = strings.TrimRight(strings.TrimSpace(s.APIBase), "/")
	s.Model = strings.TrimSpace(s.Model)
	s.Username = strings.TrimPrefix(strings.TrimSpace(s.Username), "@")
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))
	s.LogFormat = strings.ToLower(strings.TrimSpace(s.LogFormat))
	s.HeartbeatSchedule = strings.TrimSpace(s.HeartbeatSchedule)

	aliases := make([]string, 0, len(s.MentionAliases))
	for _, a := range s.MentionAliases {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			aliases = append(aliases, a)
		}
	}
	s.MentionAliases = aliases

	if strings.TrimSpace(s.Greeting) == "" {
		s.Greeting = DefaultGreeting(s.Model)
	}
	if s.UseWebhook() && s.HTTPListenAddr == "" {
		s.HTTPListenAddr = DefaultWebhookListenAddr
	}
}

// validate runs struct validation and reports failures by environment
// variable name, so operators know exactly what to fix.
func validate(s *Settings) error {
	vd := validator.New()
	vd.RegisterTagNameFunc(func(f reflect.StructField) string {
		key := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if env, ok := envKeys[key]; ok {
			return env
		}
		return f.Name
	})

	err := vd.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.NewConfigurationError("invalid configuration", err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			problems = append(problems, fe.Field()+" is required")
		default:
			problems = append(problems, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
		}
	}
	sort.Strings(problems)

	return errs.NewConfigurationError(strings.Join(problems, "; "), nil)
}
