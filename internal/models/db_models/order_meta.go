package db_models

// OrderMeta is the order-scoped key/value store the transaction ledger is
// persisted in, one row per (order, key).
type OrderMeta struct {
	ID        uint  `gorm:"primaryKey"`
	CreatedAt int64 `gorm:"autoCreateTime"`
	UpdatedAt int64 `gorm:"autoUpdateTime"`

	OrderID   uint   `gorm:"uniqueIndex:idx_order_meta_key"`
	MetaKey   string `gorm:"size:64;uniqueIndex:idx_order_meta_key"`
	MetaValue string
}

// OrderNote is an append-only audit note attached to an order.
type OrderNote struct {
	ID        uint  `gorm:"primaryKey"`
	CreatedAt int64 `gorm:"autoCreateTime"`

	OrderID uint `gorm:"index"`
	Note    string
}
