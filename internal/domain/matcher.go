package domain

// Matcher выбирает вариант товара для резервирования.
type Matcher interface {
	Match(v ItemVariant) bool
}

// ByAttributes подбирает вариант по подмножеству характеристик.
type ByAttributes struct {
	Criteria Attributes
}

func (m ByAttributes) Match(v ItemVariant) bool {
	return v.Attributes.Contains(m.Criteria)
}

// BySku подбирает вариант по точному совпадению SKU.
type BySku struct {
	Sku string
}

func (m BySku) Match(v ItemVariant) bool {
	return v.SKU == m.Sku
}

// NewMatcher выбирает режим подбора для позиции заказа: указанный sku важнее характеристик.
func NewMatcher(sku string, criteria Attributes) Matcher {
	if sku != "" {
		return BySku{Sku: sku}
	}

	return ByAttributes{Criteria: criteria}
}
