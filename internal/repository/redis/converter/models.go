package converter

import "time"

type ProductInfoRedisModel struct {
	ID       string              `json:"id"`
	PublicID string              `json:"public_id"`
	Title    string              `json:"title"`
	Price    int64               `json:"price"`
	Currency string              `json:"currency"`
	Quantity int                 `json:"quantity"`
	Attrs    map[string][]string `json:"attrs,omitempty"`
}

// RatesRedisModel: снимок курсов. Курсы хранятся строками, чтобы не терять точность.
type RatesRedisModel struct {
	Base      string            `json:"base"`
	Rates     map[string]string `json:"rates"`
	UpdatedAt time.Time         `json:"updated_at"`
}
