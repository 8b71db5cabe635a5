package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/KNICEX/momentum-monitor/internal/service/exchange"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ConfigurationError 配置非法, 启动阶段直接退出
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

var validate = validator.New()

// Load 依次叠加: 默认值 < 配置文件(先展开 ${VAR}) < 环境变量(ALERTS_COOLDOWN 形式).
// path 为空或文件不存在时只使用默认值和环境变量
func Load(v *viper.Viper, path string) (Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return Config{}, err
	}

	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Warn("config file not found, using defaults and env", "path", path)
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			v.SetConfigType(strings.TrimPrefix(filepath.Ext(path), "."))
			if err = v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(content)))); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv 只对已知 key 生效, 没写进文件的 key 需要显式绑定
	bindEnvs(v, reflect.TypeOf(cfg), "")

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func bindEnvs(v *viper.Viper, t reflect.Type, prefix string) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := field.Tag.Get("mapstructure")
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		if field.Type.Kind() == reflect.Struct {
			bindEnvs(v, field.Type, key)
			continue
		}
		_ = v.BindEnv(key)
	}
}

func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) && len(ves) > 0 {
			fe := ves[0]
			reason := fe.Tag()
			if fe.Param() != "" {
				reason += "=" + fe.Param()
			}
			return &ConfigurationError{Field: fe.Namespace(), Reason: fmt.Sprintf("failed %s (got %v)", reason, fe.Value())}
		}
		return err
	}

	if _, err := exchange.ParseInterval(cfg.Signals.Timeframe); err != nil {
		return &ConfigurationError{Field: "Config.Signals.Timeframe", Reason: err.Error()}
	}
	if cfg.Alerts.Sink == SinkDiscord && cfg.Alerts.DiscordWebhookURL == "" {
		return &ConfigurationError{Field: "Config.Alerts.DiscordWebhookURL", Reason: "required when sink is discord"}
	}
	if cfg.Alerts.Commentary && len(cfg.LLM.Gemini.ApiKey) == 0 {
		return &ConfigurationError{Field: "Config.LLM.Gemini.ApiKey", Reason: "required when alerts.commentary is enabled"}
	}
	return nil
}
