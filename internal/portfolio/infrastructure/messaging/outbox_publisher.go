// Package messaging 实现基于发件箱模式的事件发布与中继
package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wyfcoding/papertrading/pkg/contextx"
	"github.com/wyfcoding/papertrading/pkg/logger"
	"github.com/wyfcoding/papertrading/pkg/mq"
)

// OutboxMessage 发件箱记录
// 与业务变更写入同一事务，由后台中继投递到 Kafka。
type OutboxMessage struct {
	ID        string    `gorm:"type:varchar(36);primary_key"`
	EventType string    `gorm:"type:varchar(100);index"`
	Payload   string    `gorm:"type:text"`
	Status    string    `gorm:"type:varchar(20);index;default:'pending'"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// TableName 指定表名
func (OutboxMessage) TableName() string {
	return "portfolio_outbox_messages"
}

// OutboxEventPublisher 实现 domain.EventPublisher，使用 Outbox 模式
// Publish 在调用方事务的 context 内执行，发件箱记录与业务变更一同提交或回滚。
type OutboxEventPublisher struct {
	db *gorm.DB
}

// NewOutboxEventPublisher 创建发件箱事件发布器
func NewOutboxEventPublisher(db *gorm.DB) *OutboxEventPublisher {
	return &OutboxEventPublisher{db: db}
}

// Publish 将事件写入发件箱表
func (p *OutboxEventPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	message := OutboxMessage{
		ID:        uuid.NewString(),
		EventType: eventType,
		Payload:   string(data),
		Status:    "pending",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	return p.getDB(ctx).Create(&message).Error
}

func (p *OutboxEventPublisher) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return p.db
}

// OutboxRelay 后台中继，将待投递的发件箱记录发送到 Kafka
type OutboxRelay struct {
	db        *gorm.DB
	producer  *mq.KafkaProducer
	topic     string
	batchSize int
	interval  time.Duration
	retention time.Duration
}

// NewOutboxRelay 创建发件箱中继
func NewOutboxRelay(db *gorm.DB, producer *mq.KafkaProducer, topic string) *OutboxRelay {
	return &OutboxRelay{
		db:        db,
		producer:  producer,
		topic:     topic,
		batchSize: 100,
		interval:  time.Second,
		retention: 24 * time.Hour,
	}
}

// Run 周期性投递待处理消息并清理已投递记录，直到 ctx 取消
func (r *OutboxRelay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	cleanup := time.NewTicker(time.Hour)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.relayPending(ctx); err != nil {
				logger.Error(ctx, "outbox relay cycle failed", "error", err)
			}
		case <-cleanup.C:
			if err := r.cleanupSent(ctx); err != nil {
				logger.Error(ctx, "outbox cleanup failed", "error", err)
			}
		}
	}
}

// relayPending 按创建顺序投递一批待处理消息
func (r *OutboxRelay) relayPending(ctx context.Context) error {
	var messages []OutboxMessage
	err := r.db.WithContext(ctx).
		Where("status = ?", "pending").
		Order("created_at asc").
		Limit(r.batchSize).
		Find(&messages).Error
	if err != nil {
		return err
	}

	for _, message := range messages {
		if err := r.producer.SendRaw(ctx, r.topic, message.EventType, []byte(message.Payload)); err != nil {
			logger.Error(ctx, "failed to relay outbox message", "message_id", message.ID, "error", err)
			return err
		}
		err := r.db.WithContext(ctx).Model(&OutboxMessage{}).
			Where("id = ?", message.ID).
			Updates(map[string]any{"status": "sent", "updated_at": time.Now()}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// cleanupSent 清理超过保留期的已投递记录
func (r *OutboxRelay) cleanupSent(ctx context.Context) error {
	before := time.Now().Add(-r.retention)
	return r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", "sent", before).
		Delete(&OutboxMessage{}).Error
}
