package domain

import (
	"slices"
	"time"
)

// ItemVariant: конкретная единица товара, доступная для продажи.
type ItemVariant struct {
	SKU        string
	Attributes Attributes
}

func (v ItemVariant) Clone() ItemVariant {
	return ItemVariant{SKU: v.SKU, Attributes: v.Attributes.Clone()}
}

// Product описывает товар вместе со списком незарезервированных вариантов.
type Product struct {
	ID        string
	PublicID  string
	Title     string
	Price     int64 // Цена хранится в минимальных единицах валюты
	Currency  Currency
	Items     []ItemVariant
	Version   int64 // Версия для условного сохранения
	Active    bool
	CreatedAt time.Time
}

// TakeFirst удаляет из товара первый подходящий вариант и возвращает его.
// Срез Items не изменяется на месте: исходный порядок остаётся у прежних владельцев среза.
func (p *Product) TakeFirst(m Matcher) (ItemVariant, bool) {
	for i, v := range p.Items {
		if m.Match(v) {
			p.Items = append(p.Items[:i:i], p.Items[i+1:]...)
			return v, true
		}
	}

	return ItemVariant{}, false
}

// PutBack возвращает варианты в конец списка.
func (p *Product) PutBack(items ...ItemVariant) {
	p.Items = append(slices.Clip(p.Items), items...)
}

// Quantity: количество доступных вариантов.
func (p *Product) Quantity() int {
	return len(p.Items)
}

// Attrs собирает все доступные значения характеристик товара.
func (p *Product) Attrs() Attributes {
	out := make(Attributes)
	for _, v := range p.Items {
		for k, values := range v.Attributes {
			for _, value := range values {
				if !slices.Contains(out[k], value) {
					out[k] = append(out[k], value)
				}
			}
		}
	}

	return out
}

func (p *Product) Clone() *Product {
	c := *p
	c.Items = make([]ItemVariant, len(p.Items))
	for i, v := range p.Items {
		c.Items[i] = v.Clone()
	}

	return &c
}
