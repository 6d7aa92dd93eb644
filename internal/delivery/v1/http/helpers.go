package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/shopspring/decimal"
)

const maxBodySize = 1 << 20

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

// ToHTTPResponse переводит ошибку в HTTP-код и стабильный код ошибки.
// Внутренние ошибки наружу не раскрываются.
func ToHTTPResponse(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrItemAlreadySold),
		errors.Is(err, e.ErrOrderAlreadyFinished),
		errors.Is(err, e.ErrOrderAlreadyPaid),
		errors.Is(err, e.ErrOrderStatusNotFailed):
		return http.StatusConflict, e.Code(err)
	case errors.Is(err, e.ErrWriteConflict):
		return http.StatusConflict, "WRITE_CONFLICT"
	case e.IsNotFound(err):
		return http.StatusNotFound, e.Code(err)
	case e.IsDomain(err):
		return http.StatusBadRequest, e.Code(err)
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(NewErrorResponse(code, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON читает тело запроса строго: неизвестные поля и мусор после JSON — ErrInvalidRequest.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return e.Wrap(err.Error(), e.ErrInvalidRequest)
	}
	if dec.More() {
		return e.ErrInvalidRequest
	}

	return nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, e.Wrap(err.Error(), e.ErrInvalidRequest)
	}
	return data, nil
}

// parsePriceToMinor переводит строку вида "599.99" или "600" в копейки/центы.
// Не более двух знаков после запятой, цена положительная и не больше 10^9 основных единиц.
func parsePriceToMinor(s string) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, e.ErrInvalidPrice
	}

	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, e.ErrInvalidPrice
	}

	if !d.IsPositive() {
		return 0, e.ErrPriceMustBePositive
	}

	maxPrice := decimal.NewFromInt(1_000_000_000)
	if d.GreaterThan(maxPrice) {
		return 0, e.ErrInvalidPrice
	}

	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return 0, e.ErrPricePrecision
	}

	return d.Shift(2).Round(0).IntPart(), nil
}

func jsonUnmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return e.Wrap(err.Error(), e.ErrInvalidRequest)
	}
	return nil
}

func parseUintQuery(r *http.Request, key string) (uint64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}

	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, e.Wrap(key, e.ErrInvalidRequest)
	}
	return v, nil
}

func parseTimeQuery(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, e.Wrap(key, e.ErrInvalidRequest)
	}
	return &t, nil
}
