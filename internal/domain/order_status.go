package domain

import (
	"strings"

	"github.com/DRSN-tech/shop-backend/pkg/e"
)

type OrderStatus string

const (
	OrderStatusCreated  OrderStatus = "CREATED"
	OrderStatusPaid     OrderStatus = "PAID"
	OrderStatusFinished OrderStatus = "FINISHED"
	OrderStatusFailed   OrderStatus = "FAILED"
)

// ReasonCanceledByUser: причина отмены заказа покупателем.
const ReasonCanceledByUser = "CANCELED_BY_USER"

var validNext = map[OrderStatus][]OrderStatus{
	OrderStatusCreated:  {OrderStatusPaid, OrderStatusFailed},
	OrderStatusPaid:     {OrderStatusFinished, OrderStatusFailed},
	OrderStatusFinished: {},
	OrderStatusFailed:   {},
}

func ParseStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := validNext[st]; !ok {
		return "", e.ErrUnknownStatus
	}

	return st, nil
}

// CanTransition проверяет допустимость перехода по таблице жизненного цикла.
// UpdateOrderStatus её не применяет, это решение вызывающей стороны.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range validNext[from] {
		if next == to {
			return true
		}
	}

	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFinished || s == OrderStatusFailed
}

func (s OrderStatus) String() string {
	return string(s)
}
