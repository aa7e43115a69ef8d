package repositories

import (
	"context"
	"errors"
	"time"

	"echezona/internal/models/db_models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IOrderRepository is the boundary to the host platform's order workflow.
// The reconciliation core only talks to this interface; the gorm
// implementation below stands in for the host's own storage.
type IOrderRepository interface {
	GetOrder(ctx context.Context, orderID uint) (*db_models.Order, error)
	MarkPaid(ctx context.Context, order *db_models.Order, reference string) error
	SetStatus(ctx context.Context, order *db_models.Order, status db_models.OrderStatus, note string) error
	AppendNote(ctx context.Context, orderID uint, note string) error
	GetMeta(ctx context.Context, orderID uint, key string) (string, error)
	SetMeta(ctx context.Context, orderID uint, key string, value string) error
	RecordWebhookEvent(ctx context.Context, event *db_models.WebhookEvent) error
}

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) IOrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) GetOrder(ctx context.Context, orderID uint) (*db_models.Order, error) {

	var order db_models.Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", orderID).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &order, nil
}

// MarkPaid records a successful charge. It is a no-op on an order that is
// already paid, so replayed success events cannot overwrite the reference
// recorded by the first one.
func (r *OrderRepository) MarkPaid(ctx context.Context, order *db_models.Order, reference string) error {
	if order.Paid() {
		return nil
	}

	now := time.Now().Unix()
	err := r.db.WithContext(ctx).Model(order).Updates(map[string]interface{}{
		"status":         db_models.OrderStatusProcessing,
		"paid_reference": reference,
		"paid_at":        now,
	}).Error
	if err != nil {
		return err
	}

	order.Status = db_models.OrderStatusProcessing
	order.PaidReference = reference
	order.PaidAt = &now
	return nil
}

func (r *OrderRepository) SetStatus(ctx context.Context, order *db_models.Order, status db_models.OrderStatus, note string) error {
	err := r.db.WithContext(ctx).Model(order).Update("status", status).Error
	if err != nil {
		return err
	}
	order.Status = status

	if note != "" {
		return r.AppendNote(ctx, order.ID, note)
	}
	return nil
}

func (r *OrderRepository) AppendNote(ctx context.Context, orderID uint, note string) error {
	return r.db.WithContext(ctx).Create(&db_models.OrderNote{
		OrderID: orderID,
		Note:    note,
	}).Error
}

func (r *OrderRepository) GetMeta(ctx context.Context, orderID uint, key string) (string, error) {

	var meta db_models.OrderMeta
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND meta_key = ?", orderID, key).
		First(&meta).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}

	return meta.MetaValue, nil
}

func (r *OrderRepository) SetMeta(ctx context.Context, orderID uint, key string, value string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}, {Name: "meta_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"meta_value", "updated_at"}),
	}).Create(&db_models.OrderMeta{
		OrderID:   orderID,
		MetaKey:   key,
		MetaValue: value,
	}).Error
}

func (r *OrderRepository) RecordWebhookEvent(ctx context.Context, event *db_models.WebhookEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}
