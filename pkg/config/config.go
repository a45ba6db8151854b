package config

import (
	"fmt"
	"time"

	"curationvault/pkg/characterize"
	"curationvault/pkg/lock"
	"curationvault/pkg/meta"
	"curationvault/pkg/storage/s3"
	"curationvault/pkg/types"

	"github.com/spf13/viper"
)

// Config 是 cv-server 的完整配置
type Config struct {
	Server       ServerConfig        `mapstructure:"server"`
	Database     meta.Config         `mapstructure:"database"`
	Storage      StorageConfig       `mapstructure:"storage"`
	S3           s3.Config           `mapstructure:"s3"`
	Cache        CacheConfig         `mapstructure:"cache"`
	Lock         lock.Config         `mapstructure:"lock"`
	Characterize characterize.Config `mapstructure:"characterize"`
	Log          LogConfig           `mapstructure:"log"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

type StorageConfig struct {
	Type string `mapstructure:"type" validate:"oneof=disk s3"`
	Path string `mapstructure:"path"`
}

type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	RedisURL string        `mapstructure:"redis_url" validate:"required_if=Enabled true"`
	TTL      time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// Get 把全局 Viper 的配置解码成 Config 并校验
func Get() (*Config, error) {
	return decode(viper.GetViper())
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate 先跑 struct tag 校验，再跑跨 section 的规则
func Validate(cfg *Config) error {
	if err := types.Validate(cfg); err != nil {
		return err
	}

	switch cfg.Storage.Type {
	case "disk":
		if cfg.Storage.Path == "" {
			return fmt.Errorf("%w: storage.path is required for disk storage", types.ErrValidation)
		}
	case "s3":
		if cfg.S3.Bucket == "" {
			return fmt.Errorf("%w: s3.bucket is required for s3 storage", types.ErrValidation)
		}
	}

	if cfg.Database.Driver == "sqlite" && cfg.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required for sqlite", types.ErrValidation)
	}
	return nil
}
