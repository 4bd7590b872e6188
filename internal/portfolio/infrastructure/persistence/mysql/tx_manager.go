package mysql

import (
	"context"

	"github.com/wyfcoding/papertrading/pkg/contextx"
	"gorm.io/gorm"
)

// TxManager 基于 GORM 的事务管理器
// 开启事务后通过 context 传递事务对象，仓储在同一事务内执行。
type TxManager struct {
	db *gorm.DB
}

// NewTxManager 创建事务管理器
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTx 在单个数据库事务内执行函数，出错时回滚
func (t *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(contextx.WithTx(ctx, tx))
	})
}
