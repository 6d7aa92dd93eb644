package domain

import (
	"maps"
	"slices"
	"time"
)

// OrderItem: позиция заказа и варианты, зарезервированные под неё.
type OrderItem struct {
	ProductID  string
	Qty        int
	Attributes Attributes // Запрошенные характеристики, если подбор шёл по ним
	SKU        string     // Запрошенный SKU, если подбор шёл по нему
	Reserved   []ItemVariant
}

func (i OrderItem) Matcher() Matcher {
	return NewMatcher(i.SKU, i.Attributes)
}

type StatusHistoryEntry struct {
	Status         OrderStatus
	Date           time.Time
	AdditionalData map[string]any
}

// Delivery непрозрачна для ядра заказов.
type Delivery struct {
	WhereToDeliver string
	Data           map[string]string
}

type Order struct {
	ID                   string
	FirstName            string
	LastName             string
	PhoneNumber          string
	ItemsData            []OrderItem
	Delivery             Delivery
	TotalPrice           int64
	Currency             Currency
	Status               OrderStatus
	CreateDate           time.Time
	StatusHistory        []StatusHistoryEntry
	LastStatusUpdateDate time.Time
	IsItemsReturned      bool
	InvoiceID            *string
}

// NewOrder создаёт заказ в статусе CREATED с первой записью истории.
func NewOrder(id string, now time.Time) *Order {
	return &Order{
		ID:                   id,
		Status:               OrderStatusCreated,
		CreateDate:           now,
		LastStatusUpdateDate: now,
		StatusHistory: []StatusHistoryEntry{
			{Status: OrderStatusCreated, Date: now},
		},
	}
}

// ApplyStatus безусловно выставляет статус и дописывает историю.
func (o *Order) ApplyStatus(status OrderStatus, at time.Time, additionalData map[string]any) StatusHistoryEntry {
	entry := StatusHistoryEntry{Status: status, Date: at, AdditionalData: additionalData}
	o.StatusHistory = append(o.StatusHistory, entry)
	o.Status = status
	o.LastStatusUpdateDate = at

	return entry
}

// ProductIDs возвращает уникальные id товаров в порядке первого упоминания.
func (o *Order) ProductIDs() []string {
	ids := make([]string, 0, len(o.ItemsData))
	for _, item := range o.ItemsData {
		if !slices.Contains(ids, item.ProductID) {
			ids = append(ids, item.ProductID)
		}
	}

	return ids
}

func (o *Order) Clone() *Order {
	c := *o

	c.ItemsData = make([]OrderItem, len(o.ItemsData))
	for i, item := range o.ItemsData {
		item.Attributes = item.Attributes.Clone()
		reserved := make([]ItemVariant, len(item.Reserved))
		for j, v := range item.Reserved {
			reserved[j] = v.Clone()
		}
		item.Reserved = reserved
		c.ItemsData[i] = item
	}

	c.StatusHistory = make([]StatusHistoryEntry, len(o.StatusHistory))
	for i, h := range o.StatusHistory {
		h.AdditionalData = maps.Clone(h.AdditionalData)
		c.StatusHistory[i] = h
	}

	c.Delivery.Data = maps.Clone(o.Delivery.Data)
	if o.InvoiceID != nil {
		id := *o.InvoiceID
		c.InvoiceID = &id
	}

	return &c
}
