package database

import (
	"context"
	"ecogood/logging"
	"ecogood/model"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var Redis *redis.Client

// ConnectRedis là tùy chọn: addr rỗng thì không bật realtime
func ConnectRedis(addr string) {
	if addr == "" {
		logging.Warn("REDIS_ADDR not set, order realtime updates disabled")
		return
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logging.Warn("redis unavailable, order realtime updates disabled", zap.Error(err))
		_ = client.Close()
		return
	}
	Redis = client
	logging.Info("Connection Opened to Redis", zap.String("addr", addr))
}

func OrderChannel(orderCode string) string {
	return fmt.Sprintf("order:%s", orderCode)
}

// Publisher phát sự kiện đổi trạng thái đơn hàng qua Redis pub/sub
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) PublishStatus(ctx context.Context, change model.StatusChange) {
	if p == nil || p.client == nil {
		return
	}
	payload, err := json.Marshal(change)
	if err != nil {
		logging.Error("marshal status change failed", zap.Error(err))
		return
	}
	if err := p.client.Publish(ctx, OrderChannel(change.OrderCode), payload).Err(); err != nil {
		logging.Warn("publish status change failed", zap.String("order", change.OrderCode), zap.Error(err))
	}
}

func (p *Publisher) Subscribe(ctx context.Context, orderCode string) *redis.PubSub {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Subscribe(ctx, OrderChannel(orderCode))
}
