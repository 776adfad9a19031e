package repository

import (
	"context"
	"fmt"

	"artfolio/internal/model"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const changeChannelPrefix = "gallery:changes:"

// LoadFunc 读取用户的完整项目集合
type LoadFunc func(ctx context.Context, uid string) ([]model.Project, error)

// ChangeFeed 通过 Redis pub/sub 在实例之间广播项目变更
type ChangeFeed struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewChangeFeed(rdb *redis.Client, logger *zap.Logger) *ChangeFeed {
	return &ChangeFeed{rdb: rdb, logger: logger}
}

func changeChannel(uid string) string {
	return changeChannelPrefix + uid
}

// Notify 发布一次变更通知，消息体为项目 id
func (f *ChangeFeed) Notify(ctx context.Context, uid, projectID string) error {
	return f.rdb.Publish(ctx, changeChannel(uid), projectID).Err()
}

// Subscribe 先推送一次当前集合，之后每次通知都重新加载并推送。
// ctx 结束时关闭返回的通道。
func (f *ChangeFeed) Subscribe(ctx context.Context, uid string, load LoadFunc) (<-chan []model.Project, error) {
	sub := f.rdb.Subscribe(ctx, changeChannel(uid))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", uid, err)
	}

	out := make(chan []model.Project, 1)
	go func() {
		defer close(out)
		defer sub.Close()

		push := func() bool {
			projects, err := load(ctx, uid)
			if err != nil {
				f.logger.Warn("Change feed reload failed", zap.String("uid", uid), zap.Error(err))
				return ctx.Err() == nil
			}
			select {
			case out <- projects:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !push() {
			return
		}

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				if !push() {
					return
				}
			}
		}
	}()

	return out, nil
}
