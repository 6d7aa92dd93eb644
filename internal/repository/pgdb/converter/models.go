package converter

import "time"

// ProductModel представляет запись таблицы products в PostgreSQL.
type ProductModel struct {
	ID        string    `db:"id"`
	PublicID  string    `db:"public_id"`
	Title     string    `db:"title"`
	Price     int64     `db:"price"`
	Currency  string    `db:"currency"`
	Items     []byte    `db:"items"` // JSONB: []VariantModel
	Version   int64     `db:"version"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
}

type VariantModel struct {
	SKU        string              `json:"sku"`
	Attributes map[string][]string `json:"attributes,omitempty"`
}

// OrderModel представляет запись таблицы orders в PostgreSQL.
type OrderModel struct {
	ID                   string    `db:"id"`
	FirstName            string    `db:"first_name"`
	LastName             string    `db:"last_name"`
	PhoneNumber          string    `db:"phone_number"`
	ItemsData            []byte    `db:"items_data"` // JSONB: []OrderItemModel
	Delivery             []byte    `db:"delivery"`   // JSONB: DeliveryModel
	TotalPrice           int64     `db:"total_price"`
	Currency             string    `db:"currency"`
	Status               string    `db:"status"`
	CreateDate           time.Time `db:"create_date"`
	StatusHistory        []byte    `db:"status_history"` // JSONB: []StatusHistoryModel
	LastStatusUpdateDate time.Time `db:"last_status_update_date"`
	IsItemsReturned      bool      `db:"is_items_returned"`
	InvoiceID            *string   `db:"invoice_id"`
}

type OrderItemModel struct {
	ProductID  string              `json:"product_id"`
	Qty        int                 `json:"qty"`
	Attributes map[string][]string `json:"attributes,omitempty"`
	SKU        string              `json:"sku,omitempty"`
	Reserved   []VariantModel      `json:"reserved"`
}

type DeliveryModel struct {
	WhereToDeliver string            `json:"where_to_deliver"`
	Data           map[string]string `json:"data,omitempty"`
}

type StatusHistoryModel struct {
	Status         string         `json:"status"`
	Date           time.Time      `json:"date"`
	AdditionalData map[string]any `json:"additional_data,omitempty"`
}

// OutboxEventModel представляет запись таблицы outbox_events в PostgreSQL.
type OutboxEventModel struct {
	ID          int64      `db:"id"`
	EventID     string     `db:"event_id"`
	EventType   string     `db:"event_type"`
	AggregateID string     `db:"aggregate_id"`
	Payload     []byte     `db:"payload"`
	Status      string     `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	ProcessedAt *time.Time `db:"processed_at"`
}
