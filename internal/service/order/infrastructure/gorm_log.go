package infrastructure

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"stockflow/internal/service/order/domain"
)

// OrderRecordModel 是订单日志在数据库中的表结构
type OrderRecordModel struct {
	ID            int64  `gorm:"primaryKey;autoIncrement:false"`
	ProductID     int64  `gorm:"index;not null"`
	ProductName   string `gorm:"size:255;not null"`
	Quantity      int    `gorm:"not null"`
	Status        string `gorm:"size:16;not null"`
	FailureReason string `gorm:"size:1024"`
	CreatedAt     time.Time
}

func (OrderRecordModel) TableName() string {
	return "order_records"
}

// orderSequenceModel 是订单 ID 计数器，和订单记录在同一个事务里推进
type orderSequenceModel struct {
	Name   string `gorm:"primaryKey;size:32"`
	NextID int64  `gorm:"not null"`
}

func (orderSequenceModel) TableName() string {
	return "order_sequences"
}

const orderSequenceName = "orders"

// GormOrderLog 是 OrderLog 的 GORM 实现。
// ID 不用数据库自增：InnoDB 在插入失败或回滚后会跳号，计数器行随事务回滚则不会。
type GormOrderLog struct {
	db *gorm.DB
}

// NewGormOrderLog 会自动建表，并让计数器从已有的最大 ID 之后继续
func NewGormOrderLog(db *gorm.DB) (*GormOrderLog, error) {
	if err := db.AutoMigrate(&OrderRecordModel{}, &orderSequenceModel{}); err != nil {
		return nil, errors.Wrap(err, "migrate order tables")
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		var seq orderSequenceModel
		err := tx.Where("name = ?", orderSequenceName).First(&seq).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		var maxID int64
		if err := tx.Model(&OrderRecordModel{}).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error; err != nil {
			return err
		}
		return tx.Create(&orderSequenceModel{Name: orderSequenceName, NextID: maxID + 1}).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "init order sequence")
	}
	return &GormOrderLog{db: db}, nil
}

// Append 先推进计数器再插入记录。UPDATE 持有计数器行锁直到提交，所以并发写入按 ID 顺序串行。
func (r *GormOrderLog) Append(ctx context.Context, order domain.Order) (domain.Order, error) {
	model := toModel(order)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&orderSequenceModel{}).
			Where("name = ?", orderSequenceName).
			UpdateColumn("next_id", gorm.Expr("next_id + 1"))
		if res.Error != nil {
			return errors.Wrap(res.Error, "advance order sequence")
		}
		if res.RowsAffected != 1 {
			return errors.New("order sequence row is missing")
		}

		var seq orderSequenceModel
		if err := tx.Where("name = ?", orderSequenceName).First(&seq).Error; err != nil {
			return errors.Wrap(err, "read order sequence")
		}
		model.ID = seq.NextID - 1
		return errors.Wrap(tx.Create(&model).Error, "insert order record")
	})
	if err != nil {
		order.ID = 0
		return order, err
	}
	order.ID = model.ID
	return order, nil
}

func (r *GormOrderLog) List(ctx context.Context) ([]domain.Order, error) {
	var models []OrderRecordModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "list order records")
	}
	out := make([]domain.Order, 0, len(models))
	for i := range models {
		out = append(out, toDomainOrder(&models[i]))
	}
	return out, nil
}

func (r *GormOrderLog) Get(ctx context.Context, id int64) (domain.Order, error) {
	var model OrderRecordModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, errors.Wrapf(err, "get order record %d", id)
	}
	return toDomainOrder(&model), nil
}

func toModel(o domain.Order) OrderRecordModel {
	return OrderRecordModel{
		ID:            o.ID,
		ProductID:     o.ProductID,
		ProductName:   o.ProductName,
		Quantity:      o.Quantity,
		Status:        string(o.Status.Kind()),
		FailureReason: o.Status.Reason(),
	}
}

func toDomainOrder(m *OrderRecordModel) domain.Order {
	status := domain.Confirmed()
	if domain.StatusKind(m.Status) == domain.StatusFailed {
		status = domain.Failed(m.FailureReason)
	}
	return domain.Order{
		ID:          m.ID,
		ProductID:   m.ProductID,
		ProductName: m.ProductName,
		Quantity:    m.Quantity,
		Status:      status,
	}
}
