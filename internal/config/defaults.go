package config

import (
	"fmt"
	"time"
)

// Default values for configuration
const (
	// OpenAI defaults
	DefaultAPIBase = "https://api.openai.com/v1"
	DefaultModel   = "gpt-3.5-turbo"
	DefaultTimeout = time.Minute

	// Log defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Bot defaults
	DefaultMaxConcurrentUpdates = 64
	DefaultHeartbeatSchedule    = "0 */15 * * * *" // seconds field enabled
	DefaultWebhookListenAddr    = ":8080"

	DefaultErrorMessage       = "Sorry, I encountered an error while processing your request."
	DefaultEmptyPromptMessage = "Please include a message when you mention me."

	// BotnamePlaceholder is replaced by the bot's @username in greetings.
	BotnamePlaceholder = "@botname"
)

// DefaultGreeting builds the /start and /help text used when
// BOT_GREETING_MESSAGE is not set. It always names the active model.
func DefaultGreeting(model string) string {
	return fmt.Sprintf("Hello! I'm an AI assistant bot using %s. Mention me (%s) in a message to talk to me.",
		model, BotnamePlaceholder)
}

// envKeys maps viper keys to the environment variables they are read from.
var envKeys = map[string]string{
	"teloxide_token":       "TELOXIDE_TOKEN",
	"openai_api_key":       "OPENAI_API_KEY",
	"openai_api_base":      "OPENAI_API_BASE",
	"openai_model_name":    "OPENAI_MODEL_NAME",
	"bot_greeting_message": "BOT_GREETING_MESSAGE",

	"openai_timeout":       "OPENAI_TIMEOUT",
	"openai_system_prompt": "OPENAI_SYSTEM_PROMPT",

	"log_level":  "LOG_LEVEL",
	"log_format": "LOG_FORMAT",

	"bot_username":               "BOT_USERNAME",
	"bot_mention_aliases":        "BOT_MENTION_ALIASES",
	"bot_reply_in_private":       "BOT_REPLY_IN_PRIVATE",
	"bot_error_message":          "BOT_ERROR_MESSAGE",
	"bot_empty_prompt_message":   "BOT_EMPTY_PROMPT_MESSAGE",
	"bot_max_concurrent_updates": "BOT_MAX_CONCURRENT_UPDATES",
	"bot_drop_pending_updates":   "BOT_DROP_PENDING_UPDATES",
	"bot_heartbeat_schedule":     "BOT_HEARTBEAT_SCHEDULE",

	"telegram_webhook_url":    "TELEGRAM_WEBHOOK_URL",
	"telegram_webhook_secret": "TELEGRAM_WEBHOOK_SECRET",
	"http_listen_addr":        "HTTP_LISTEN_ADDR",
}

var defaults = map[string]any{
	"openai_api_base":   DefaultAPIBase,
	"openai_model_name": DefaultModel,
	"openai_timeout":    DefaultTimeout,

	"log_level":  DefaultLogLevel,
	"log_format": DefaultLogFormat,

	"bot_error_message":          DefaultErrorMessage,
	"bot_empty_prompt_message":   DefaultEmptyPromptMessage,
	"bot_max_concurrent_updates": DefaultMaxConcurrentUpdates,
	"bot_heartbeat_schedule":     DefaultHeartbeatSchedule,
}
