package characterize

import (
	"context"
	"time"

	"curationvault/pkg/core"
	"curationvault/pkg/types"
)

// Job 请求对某个文件的某个版本做技术元数据提取
type Job struct {
	FileID     types.ID
	VersionID  uint
	Sequence   int
	Content    core.Link
	EnqueuedAt time.Time
}

// Trigger 是 fire-and-forget 的派发边界
// Dispatch 不阻塞、不返回错误；投递失败只记日志，由任务系统自己负责
type Trigger interface {
	Dispatch(job Job)
}

// Handler 处理一个任务，返回的错误只用于记录日志
type Handler func(ctx context.Context, job Job) error

// Config characterization 配置
type Config struct {
	Backend  string `mapstructure:"backend" validate:"oneof=local redis none"`
	Workers  int    `mapstructure:"workers" validate:"gte=0"`
	Buffer   int    `mapstructure:"buffer" validate:"gte=0"`
	RedisURL string `mapstructure:"redis_url" validate:"required_if=Backend redis"`
	Queue    string `mapstructure:"queue"`
}

// Noop 丢弃所有任务 (characterize.backend = none)
type Noop struct{}

func (Noop) Dispatch(Job) {}
