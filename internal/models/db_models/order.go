package db_models

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusOnHold     OrderStatus = "on-hold"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusFailed     OrderStatus = "failed"
	OrderStatusRefunded   OrderStatus = "refunded"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Order mirrors the host platform's purchase record. The gateway only ever
// reads the billing snapshot and mutates Status/PaidReference through the
// repository; everything else belongs to the host.
type Order struct {
	ID        uint  `gorm:"primaryKey"`
	CreatedAt int64 `gorm:"autoCreateTime"`
	UpdatedAt int64 `gorm:"autoUpdateTime"`

	CustomerID uint `gorm:"index"`

	TotalMinor int64  // e.g., 1000000 = 10000.00 NGN
	Currency   string `gorm:"size:3"` // ISO 4217

	Status OrderStatus `gorm:"size:16;index"`

	BillingEmail     string
	BillingFirstName string
	BillingLastName  string
	BillingAddress1  string
	BillingAddress2  string
	BillingCity      string

	// Set once by MarkPaid, never overwritten afterwards.
	PaidReference string `gorm:"index"`
	PaidAt        *int64
}

// Paid reports whether a successful charge has already been recorded.
func (o *Order) Paid() bool {
	return o.PaidAt != nil
}

// Total returns the order total in major units, the unit the processor's
// wire format uses.
func (o *Order) Total() float64 {
	return float64(o.TotalMinor) / 100
}

func (o *Order) BillingName() string {
	return o.BillingFirstName + " " + o.BillingLastName
}

func (o *Order) BillingAddress() string {
	if o.BillingAddress2 == "" {
		return o.BillingAddress1
	}
	return o.BillingAddress1 + " " + o.BillingAddress2
}
