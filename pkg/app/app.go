// pkg/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"curationvault/pkg/actor"
	"curationvault/pkg/characterize"
	"curationvault/pkg/config"
	"curationvault/pkg/graph"
	"curationvault/pkg/lock"
	"curationvault/pkg/meta"
	"curationvault/pkg/storage"
	"curationvault/pkg/storage/cache"
	"curationvault/pkg/storage/disk"
	"curationvault/pkg/storage/s3"
	"curationvault/pkg/types"
	"curationvault/pkg/versioning"

	"github.com/redis/go-redis/v9"
)

// App 是整个应用程序的依赖容器 (Dependency Container)
// 它持有所有“单例”服务
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	DB       *meta.DB
	Repo     *meta.Repository
	Store    storage.Store
	Versions *versioning.Store
	Graph    *graph.Graph
	Locker   lock.Locker
	Trigger  characterize.Trigger

	// 同一个 URL 的 Redis 客户端在缓存、锁、队列之间共用
	redisClients map[string]*redis.Client
}

// NewApp 是工厂函数，负责组装这一台机器
// 它只依赖 config.Config，不知道具体的 CLI 命令
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		Config:       cfg,
		Logger:       NewLogger(cfg.Log, nil),
		redisClients: make(map[string]*redis.Client),
	}

	// 任何一步失败都要把已经打开的连接关掉
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	// 1. 元数据库
	db, err := meta.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}
	app.DB = db
	app.Repo = meta.NewRepository(db)

	// 2. 内容存储
	store, err := initStore(ctx, cfg, app.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}
	if cfg.Cache.Enabled {
		client, err := app.redis(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to init cache: %w", err)
		}
		store = cache.NewCachedStore(store, client, cfg.Cache.TTL, app.Logger)
	}
	app.Store = store

	// 3. 锁
	if app.Locker, err = app.initLocker(ctx); err != nil {
		return nil, fmt.Errorf("failed to init locker: %w", err)
	}

	// 4. Characterization 队列
	if app.Trigger, err = app.initTrigger(ctx); err != nil {
		return nil, fmt.Errorf("failed to init characterization: %w", err)
	}

	app.Versions = versioning.NewStore(app.Store, app.Repo, app.Locker)
	app.Graph = graph.New(app.Repo)

	ok = true
	return app, nil
}

// initStore 根据配置选择存储后端
func initStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Storage.Type {
	case "s3":
		return s3.NewAdapter(ctx, cfg.S3, logger)
	case "disk", "":
		if cfg.Storage.Path == "" {
			return nil, fmt.Errorf("storage path not set")
		}
		return disk.NewAdapter(cfg.Storage.Path)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}

func (a *App) initLocker(ctx context.Context) (lock.Locker, error) {
	switch a.Config.Lock.Backend {
	case "redis":
		client, err := a.redis(ctx, a.Config.Lock.RedisURL)
		if err != nil {
			return nil, err
		}
		return lock.NewRedis(client, a.Config.Lock, a.Logger), nil
	case "local", "":
		return lock.NewLocal(a.Config.Lock.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported lock backend: %s", a.Config.Lock.Backend)
	}
}

func (a *App) initTrigger(ctx context.Context) (characterize.Trigger, error) {
	c := a.Config.Characterize
	switch c.Backend {
	case "redis":
		client, err := a.redis(ctx, c.RedisURL)
		if err != nil {
			return nil, err
		}
		return characterize.NewRedisQueue(client, c.Queue, a.Logger), nil
	case "local", "":
		return characterize.NewLocalQueue(c.Buffer, a.Logger), nil
	case "none":
		return characterize.Noop{}, nil
	default:
		return nil, fmt.Errorf("unsupported characterization backend: %s", c.Backend)
	}
}

// redis 按 URL 复用客户端，第一次创建时做 Fail-fast 连接检查
func (a *App) redis(ctx context.Context, url string) (*redis.Client, error) {
	if client, ok := a.redisClients[url]; ok {
		return client, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	a.redisClients[url] = client
	return client, nil
}

// Actor 为某个身份创建操作 file 的 FileActor
func (a *App) Actor(file *meta.FileObject, user types.UserKey) *actor.FileActor {
	return actor.New(actor.Deps{
		Repo:     a.Repo,
		Versions: a.Versions,
		Graph:    a.Graph,
		Locker:   a.Locker,
		Trigger:  a.Trigger,
		Logger:   a.Logger,
	}, file, user)
}

// Worker 返回 characterization worker，和 actor 共用同一把锁
func (a *App) Worker() *characterize.Worker {
	return characterize.NewWorker(a.Repo, a.Versions, a.Locker, a.Logger)
}

// runner 是可以消费任务的队列
type runner interface {
	Run(ctx context.Context, workers int, h characterize.Handler) error
}

// RunWorkers 消费 characterization 任务直到 ctx 结束。
// backend = none 时直接等待 ctx。
func (a *App) RunWorkers(ctx context.Context) error {
	q, ok := a.Trigger.(runner)
	if !ok || a.Config.Characterize.Workers == 0 {
		<-ctx.Done()
		return nil
	}
	a.Logger.Info("characterization workers started",
		"backend", a.Config.Characterize.Backend, "workers", a.Config.Characterize.Workers)
	return q.Run(ctx, a.Config.Characterize.Workers, a.Worker().Handle)
}

// Close 释放所有连接。可以重复调用。
func (a *App) Close() error {
	var errs []error
	if q, ok := a.Trigger.(*characterize.RedisQueue); ok {
		q.Flush()
	}
	for url, client := range a.redisClients {
		if err := client.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(a.redisClients, url)
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, err)
		}
		a.DB = nil
	}
	return errors.Join(errs...)
}
