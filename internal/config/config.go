package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	ImageModeOCR     = "ocr"
	ImageModeNative  = "native"
	AnswerModeSingle = "single"
	AnswerModeDual   = "dual"
)

type Config struct {
	LogLevel   string
	PrettyLogs bool

	Server struct {
		Address         string
		WebhookPath     string
		ShutdownTimeout time.Duration
	}

	OpenRouter struct {
		APIKey           string
		Model            string
		ArbitrationModel string
		Temperature      float32
		MaxTokens        int
	}

	Twilio struct {
		Enabled        bool
		AccountSID     string
		AuthToken      string
		WhatsAppNumber string
	}

	Telegram struct {
		BotToken string
	}

	Gemini struct {
		APIKey string
		Model  string
	}

	Pipeline struct {
		ImageMode  string
		AnswerMode string
	}

	Media struct {
		Timeout          time.Duration
		NotFoundSentinel bool
		NotFoundReply    string
	}

	Auth struct {
		AllowedSenders []string
		Contact        string
	}

	PromptsDir        string
	ReferenceDocument string
	OCRDenylist       []string
	HandlerTimeout    time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.log_level", "info")
	v.SetDefault("bot.pretty_logs", false)

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.webhook_path", "/webhook")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("openrouter.api_key", "")
	v.SetDefault("openrouter.model", "openai/gpt-4o")
	v.SetDefault("openrouter.arbitration_model", "")
	v.SetDefault("openrouter.temperature", 0.2)
	v.SetDefault("openrouter.max_tokens", 500)

	v.SetDefault("twilio.enabled", true)
	v.SetDefault("twilio.account_sid", "")
	v.SetDefault("twilio.auth_token", "")
	v.SetDefault("twilio.whatsapp_number", "")

	v.SetDefault("telegram.bot_token", "")

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.0-flash")

	v.SetDefault("pipeline.image_mode", ImageModeNative)
	v.SetDefault("pipeline.answer_mode", AnswerModeSingle)

	v.SetDefault("media.timeout", "30s")
	v.SetDefault("media.not_found_sentinel", true)
	v.SetDefault("media.not_found_reply", "N/A")

	v.SetDefault("auth.allowed_senders", []string{})
	v.SetDefault("auth.contact", "")

	v.SetDefault("prompts.dir", "")
	v.SetDefault("reference.document", "")
	v.SetDefault("ocr.denylist", []string{})
	v.SetDefault("handler.timeout", "2m")
}

// Load reads .env, the optional config.toml in dir and the environment. Keys map to env vars as
// SECTION_KEY, e.g. openrouter.api_key is OPENROUTER_API_KEY.
func Load(dir string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("openrouter.api_key", "OPENROUTER_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}

	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
		log.Debug().Msg("no config file found, using defaults and environment")
	} else {
		log.Info().Str("file", v.ConfigFileUsed()).Msg("read config file")
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	c := &Config{}
	var errs []error

	c.LogLevel = v.GetString("bot.log_level")
	c.PrettyLogs = v.GetBool("bot.pretty_logs")

	c.Server.Address = v.GetString("server.address")
	c.Server.WebhookPath = v.GetString("server.webhook_path")
	c.Server.ShutdownTimeout = duration(v, "server.shutdown_timeout", &errs)

	c.OpenRouter.APIKey = v.GetString("openrouter.api_key")
	c.OpenRouter.Model = v.GetString("openrouter.model")
	c.OpenRouter.ArbitrationModel = v.GetString("openrouter.arbitration_model")
	c.OpenRouter.Temperature = float32(v.GetFloat64("openrouter.temperature"))
	c.OpenRouter.MaxTokens = v.GetInt("openrouter.max_tokens")

	c.Twilio.Enabled = v.GetBool("twilio.enabled")
	c.Twilio.AccountSID = v.GetString("twilio.account_sid")
	c.Twilio.AuthToken = v.GetString("twilio.auth_token")
	c.Twilio.WhatsAppNumber = v.GetString("twilio.whatsapp_number")

	c.Telegram.BotToken = v.GetString("telegram.bot_token")

	c.Gemini.APIKey = v.GetString("gemini.api_key")
	c.Gemini.Model = v.GetString("gemini.model")

	c.Pipeline.ImageMode = v.GetString("pipeline.image_mode")
	c.Pipeline.AnswerMode = v.GetString("pipeline.answer_mode")

	c.Media.Timeout = duration(v, "media.timeout", &errs)
	c.Media.NotFoundSentinel = v.GetBool("media.not_found_sentinel")
	c.Media.NotFoundReply = v.GetString("media.not_found_reply")

	c.Auth.AllowedSenders = v.GetStringSlice("auth.allowed_senders")
	c.Auth.Contact = v.GetString("auth.contact")

	c.PromptsDir = v.GetString("prompts.dir")
	c.ReferenceDocument = v.GetString("reference.document")
	c.OCRDenylist = v.GetStringSlice("ocr.denylist")
	c.HandlerTimeout = duration(v, "handler.timeout", &errs)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return c, nil
}

func duration(v *viper.Viper, key string, errs *[]error) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid duration for %s: %w", key, err))
	}

	return d
}

// Validate reports every missing required key at once.
func (c *Config) Validate() error {
	var missing []string

	if c.OpenRouter.APIKey == "" {
		missing = append(missing, "openrouter.api_key")
	}

	if c.Twilio.Enabled {
		if c.Twilio.AccountSID == "" {
			missing = append(missing, "twilio.account_sid")
		}
		if c.Twilio.AuthToken == "" {
			missing = append(missing, "twilio.auth_token")
		}
		if c.Twilio.WhatsAppNumber == "" {
			missing = append(missing, "twilio.whatsapp_number")
		}
	}

	if c.Pipeline.ImageMode == ImageModeOCR && c.Gemini.APIKey == "" {
		missing = append(missing, "gemini.api_key")
	}

	if c.Pipeline.AnswerMode == AnswerModeDual && c.ReferenceDocument == "" {
		missing = append(missing, "reference.document")
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required config keys: %s", strings.Join(missing, ", ")))
	}

	// the request omits a zero temperature, which leaves the provider default in effect
	if c.OpenRouter.Temperature <= 0 || c.OpenRouter.Temperature > 2 {
		errs = append(errs, fmt.Errorf("openrouter.temperature must be in (0, 2], got %g",
			c.OpenRouter.Temperature))
	}

	switch c.Pipeline.ImageMode {
	case "", ImageModeNative, ImageModeOCR:
	default:
		errs = append(errs, fmt.Errorf("unknown pipeline.image_mode %q", c.Pipeline.ImageMode))
	}

	switch c.Pipeline.AnswerMode {
	case "", AnswerModeSingle, AnswerModeDual:
	default:
		errs = append(errs, fmt.Errorf("unknown pipeline.answer_mode %q", c.Pipeline.AnswerMode))
	}

	return errors.Join(errs...)
}

// NotFoundReply returns the sentinel reply, or "" when disabled.
func (c *Config) NotFoundReply() string {
	if !c.Media.NotFoundSentinel {
		return ""
	}

	return c.Media.NotFoundReply
}

// SetupLogging configures the global zerolog logger.
func (c *Config) SetupLogging() {
	var logLevel zerolog.Level

	switch c.LogLevel {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "info":
		logLevel = zerolog.InfoLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	if c.PrettyLogs {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
