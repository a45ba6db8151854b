package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load 初始化全局 Viper 配置
// cfgFile: 可选，用户显式指定的配置文件路径
func Load(cfgFile string) error {
	return load(viper.GetViper(), cfgFile)
}

func load(v *viper.Viper, cfgFile string) error {
	// 1. 设置默认值 (Defaults)
	setDefaults(v)

	// 2. 配置搜索路径
	if cfgFile != "" {
		// 如果用户指定了文件，直接使用
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		// 搜索顺序：当前目录 -> ./.cv -> ~/.cv
		v.AddConfigPath(".")
		v.AddConfigPath(".cv")
		v.AddConfigPath(filepath.Join(home, ".cv"))

		v.SetConfigType("yaml")
		v.SetConfigName("config") // 找 config.yaml
	}

	// 3. 读取环境变量 (CV_DATABASE_HOST 等)
	v.SetEnvPrefix("CV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// 没找到配置文件不算错，可能全部来自环境变量
		// 但如果是配置文件格式错，那就是错
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("fatal error config file: %w", err)
		}
	}

	return nil
}

// ConfigFileUsed 返回实际读取的配置文件，没有时为空
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "localhost:8080")
	v.SetDefault("user.key", "")

	// 数据库默认值
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "curationvault")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "")
	v.SetDefault("database.log_sql", false)

	// 存储默认值
	wd, _ := os.Getwd()
	v.SetDefault("storage.type", "disk")
	v.SetDefault("storage.path", filepath.Join(wd, ".cv", "objects"))

	// 不设默认值的 key 无法被 AutomaticEnv + Unmarshal 读到，这里全部列出
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache.ttl", "24h")

	v.SetDefault("lock.backend", "local")
	v.SetDefault("lock.timeout", "5s")
	v.SetDefault("lock.ttl", "30s")
	v.SetDefault("lock.retry_interval", "50ms")
	v.SetDefault("lock.redis_url", "")

	v.SetDefault("characterize.backend", "local")
	v.SetDefault("characterize.workers", 2)
	v.SetDefault("characterize.buffer", 256)
	v.SetDefault("characterize.redis_url", "")
	v.SetDefault("characterize.queue", "cv:characterize")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
