package models

import (
	"time"

	"github.com/pitabwire/frame"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	StateCreated  = int32(1)
	StateActive   = int32(2)
	StateInactive = int32(3)

	StatusPending   = int32(1)
	StatusInitiated = int32(2)
	StatusPaid      = int32(3)
	StatusFailed    = int32(4)
)

// Product is a vendor owned catalog entry.
type Product struct {
	frame.BaseModel

	VendorID    string `gorm:"type:varchar(50);index"`
	Name        string `gorm:"type:varchar(250)"`
	Description string `gorm:"type:text"`
	Category    string `gorm:"type:varchar(50);index"`
	ImageURL    string `gorm:"type:varchar(255)"`

	UnitPrice     decimal.NullDecimal `gorm:"type:numeric" json:"unitPrice"`
	Currency      string              `gorm:"type:varchar(10)"`
	StockQuantity int                 `gorm:"type:integer"`

	Extra datatypes.JSONMap `gorm:"index:,type:gin,option:jsonb_path_ops" json:"extra"`
}

// Order Table holds one checkout attempt and its gateway linkage
type Order struct {
	frame.BaseModel

	CustomerPhone string `gorm:"type:varchar(50)"`
	CartID        string `gorm:"type:varchar(50)"`

	// AccountReference doubles as the idempotency key threaded to the gateway.
	AccountReference string `gorm:"type:varchar(50);uniqueIndex"`

	Amount   decimal.NullDecimal `gorm:"type:numeric" json:"amount"`
	Currency string              `gorm:"type:varchar(10)"`

	MerchantRequestID string `gorm:"type:varchar(50)"`
	CheckoutRequestID string `gorm:"type:varchar(50);index"`

	PaidAt *time.Time

	Extra datatypes.JSONMap `gorm:"index:,type:gin,option:jsonb_path_ops" json:"extra"`
}

func (model *Order) IsPaid() bool {
	return model.PaidAt != nil && !model.PaidAt.IsZero()
}

type OrderItem struct {
	frame.BaseModel

	OrderID   string `gorm:"type:varchar(50);index"`
	ProductID string `gorm:"type:varchar(50)"`
	VendorID  string `gorm:"type:varchar(50);index"`

	Quantity  int                 `gorm:"type:integer"`
	UnitPrice decimal.NullDecimal `gorm:"type:numeric" json:"unitPrice"`
	Currency  string              `gorm:"type:varchar(10)"`
}

// OrderStatus rows are append only, a new row per transition.
type OrderStatus struct {
	frame.BaseModel

	OrderID string `gorm:"type:varchar(50);index"`
	State   int32  `gorm:"type:integer"`
	Status  int32  `gorm:"type:integer"`
	Extra   datatypes.JSONMap `gorm:"index:,type:gin,option:jsonb_path_ops" json:"extra"`
}

// PaymentRecord tracks a single STK push and the callback that settles it.
type PaymentRecord struct {
	frame.BaseModel

	OrderID           string `gorm:"type:varchar(50);index"`
	CheckoutRequestID string `gorm:"type:varchar(50);uniqueIndex"`
	MerchantRequestID string `gorm:"type:varchar(50)"`

	PhoneNumber string              `gorm:"type:varchar(50)"`
	Amount      decimal.NullDecimal `gorm:"type:numeric" json:"amount"`
	Currency    string              `gorm:"type:varchar(10)"`

	ResultCode   int    `gorm:"type:integer"`
	ResultDesc   string `gorm:"type:varchar(255)"`
	MpesaReceipt string `gorm:"type:varchar(50)"`

	Extra datatypes.JSONMap `gorm:"index:,type:gin,option:jsonb_path_ops" json:"extra"`
}
