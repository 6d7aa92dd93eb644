package e

import (
	"errors"
	"fmt"
)

// Kind разделяет ошибки на доменные, "не найдено" и внутренние.
type Kind int

const (
	KindInternal Kind = iota
	KindDomain
	KindNotFound
)

// CodedError: ошибка со стабильным кодом, который можно отдать клиенту.
type CodedError struct {
	Code string
	Kind Kind
}

func (c *CodedError) Error() string {
	return c.Code
}

func newDomain(code string) *CodedError {
	return &CodedError{Code: code, Kind: KindDomain}
}

func newNotFound(code string) *CodedError {
	return &CodedError{Code: code, Kind: KindNotFound}
}

var (
	// Доменные ошибки заказов
	ErrNoItems              = newDomain("NO_ITEMS")
	ErrItemAlreadySold      = newDomain("ITEM_ALREADY_SOLD")
	ErrOrderStatusNotFailed = newDomain("ORDER_STATUS_NOT_FAILED")
	ErrOrderAlreadyFinished = newDomain("ORDER_ALREADY_FINISHED")
	ErrOrderAlreadyPaid     = newDomain("ORDER_ALREADY_PAID")

	// 400 Bad Request
	ErrInvalidQty          = newDomain("INVALID_QTY")
	ErrUnknownCurrency     = newDomain("UNKNOWN_CURRENCY")
	ErrUnknownStatus       = newDomain("UNKNOWN_STATUS")
	ErrInvalidRequest      = newDomain("INVALID_REQUEST")
	ErrProductNameRequired = newDomain("PRODUCT_NAME_REQUIRED")
	ErrPriceMustBePositive = newDomain("PRICE_MUST_BE_POSITIVE")
	ErrInvalidPrice        = newDomain("INVALID_PRICE")
	ErrPricePrecision      = newDomain("PRICE_PRECISION")
	ErrNoProducts          = newDomain("NO_PRODUCTS")

	// 404 Not Found
	ErrProductNotFound = newNotFound("PRODUCT_NOT_FOUND")
	ErrOrderNotFound   = newNotFound("ORDER_NOT_FOUND")

	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")
	ErrWriteConflict       = fmt.Errorf("write conflict")
	ErrImpossibleState     = fmt.Errorf("impossible state: transaction committed without result")
	ErrUnknownRate         = fmt.Errorf("exchange rate is not available")

	ErrInternalServerError  = fmt.Errorf("internal server error")
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}

// Code возвращает стабильный код ошибки или пустую строку для внутренних ошибок.
func Code(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}

	return ""
}

// IsDomain сообщает, что ошибка вызвана запросом клиента, а не сбоем сервиса.
func IsDomain(err error) bool {
	var coded *CodedError
	return errors.As(err, &coded) && coded.Kind == KindDomain
}

func IsNotFound(err error) bool {
	var coded *CodedError
	return errors.As(err, &coded) && coded.Kind == KindNotFound
}
