package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	ReplyModeMessage = "message"
	ReplyModeChat    = "chat"
)

type Config struct {
	Env             string        `mapstructure:"ENV"`
	Port            string        `mapstructure:"PORT"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	OutboundTimeout time.Duration `mapstructure:"OUTBOUND_TIMEOUT"`
	CORSAllowed     string        `mapstructure:"CORS_ALLOWED_ORIGINS"`

	LarkAppID             string        `mapstructure:"LARK_APP_ID" validate:"required"`
	LarkAppSecret         string        `mapstructure:"LARK_APP_SECRET" validate:"required"`
	LarkVerificationToken string        `mapstructure:"LARK_VERIFICATION_TOKEN" validate:"required"`
	LarkVerifyHeader      string        `mapstructure:"LARK_VERIFY_HEADER"`
	LarkBaseURL           string        `mapstructure:"LARK_BASE_URL" validate:"url"`
	LarkReplyMode         string        `mapstructure:"LARK_REPLY_MODE" validate:"oneof=message chat"`
	LarkTokenCacheTTL     time.Duration `mapstructure:"LARK_TOKEN_CACHE_TTL"`
	LarkChatID            string        `mapstructure:"LARK_CHAT_ID"`

	OpenAIAPIKey       string `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL      string `mapstructure:"OPENAI_BASE_URL"`
	OpenAIModel        string `mapstructure:"OPENAI_MODEL"`
	OpenAISystemPrompt string `mapstructure:"OPENAI_SYSTEM_PROMPT"`
	OpenAIMaxTokens    int    `mapstructure:"OPENAI_MAX_TOKENS"`

	BitableAppToken      string `mapstructure:"BITABLE_APP_TOKEN" validate:"required"`
	BitableTableID       string `mapstructure:"BITABLE_TABLE_ID" validate:"required"`
	BitableFieldEmployee string `mapstructure:"BITABLE_FIELD_EMPLOYEE"`
	BitableFieldAmount   string `mapstructure:"BITABLE_FIELD_AMOUNT"`
	BitableFieldStatus   string `mapstructure:"BITABLE_FIELD_STATUS"`
	BitablePageSize      int    `mapstructure:"BITABLE_PAGE_SIZE" validate:"min=1,max=500"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("OUTBOUND_TIMEOUT", "30s")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("LARK_APP_ID", "")
	v.SetDefault("LARK_APP_SECRET", "")
	v.SetDefault("LARK_VERIFICATION_TOKEN", "")
	v.SetDefault("LARK_VERIFY_HEADER", "X-Lark-Verification-Token")
	v.SetDefault("LARK_BASE_URL", "https://open.larksuite.com")
	v.SetDefault("LARK_REPLY_MODE", ReplyModeMessage)
	v.SetDefault("LARK_TOKEN_CACHE_TTL", "0s")
	v.SetDefault("LARK_CHAT_ID", "")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_BASE_URL", "")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("OPENAI_SYSTEM_PROMPT", "")
	v.SetDefault("OPENAI_MAX_TOKENS", 0)
	v.SetDefault("BITABLE_APP_TOKEN", "")
	v.SetDefault("BITABLE_TABLE_ID", "")
	v.SetDefault("BITABLE_FIELD_EMPLOYEE", "Tên nhân viên")
	v.SetDefault("BITABLE_FIELD_AMOUNT", "Số tiền")
	v.SetDefault("BITABLE_FIELD_STATUS", "Trạng thái")
	v.SetDefault("BITABLE_PAGE_SIZE", 100)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// CompletionEnabled reports whether a real completion endpoint is configured.
func (c Config) CompletionEnabled() bool {
	return c.OpenAIAPIKey != "" || c.OpenAIBaseURL != ""
}

// ValidateServer checks the settings the webhook server cannot run without.
// An empty verification token would make every inbound request pass.
func (c Config) ValidateServer() error {
	return c.validate("server")
}

// ValidateSummary checks the settings the bitable summary command needs.
func (c Config) ValidateSummary() error {
	return c.validate("summary")
}

// validate runs the struct tags, skipping fields owned by the other binary.
func (c Config) validate(scope string) error {
	var except []string
	switch scope {
	case "server":
		except = []string{"BitableAppToken", "BitableTableID"}
	case "summary":
		except = []string{"LarkVerificationToken"}
	}
	if err := validator.New().StructExcept(c, except...); err != nil {
		return fmt.Errorf("invalid %s config: %w", scope, err)
	}
	return nil
}
