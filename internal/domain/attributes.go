package domain

import "slices"

// Attributes: значения характеристик варианта: ключ -> набор выбранных значений (color -> [red]).
type Attributes map[string][]string

// Contains сообщает, что каждое запрошенное значение каждого ключа criteria есть у варианта.
// Пустой criteria удовлетворяет любому варианту.
func (a Attributes) Contains(criteria Attributes) bool {
	for key, wanted := range criteria {
		have := a[key]
		for _, v := range wanted {
			if !slices.Contains(have, v) {
				return false
			}
		}
	}

	return true
}

// Clone возвращает глубокую копию.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}

	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = slices.Clone(v)
	}

	return out
}
