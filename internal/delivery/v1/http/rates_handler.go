package http

import (
	"net/http"

	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
)

type RatesHandler struct {
	ratesUsecase usecase.RatesUC
	logger       logger.Logger
}

func NewRatesHandler(ratesUsecase usecase.RatesUC, logger logger.Logger) *RatesHandler {
	return &RatesHandler{ratesUsecase: ratesUsecase, logger: logger}
}

// getRates
//
//	@Summary	Текущий снимок курсов валют
//	@Tags		rates
//	@Produce	json
//	@Success	200	{object}	ratesDTO
//	@Router		/rates [get]
func (h *RatesHandler) getRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.ratesUsecase.GetRates(r.Context())
	if err != nil {
		h.logger.Ctx(r.Context()).Errorf(err, "get rates")
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, newRatesDTO(rates))
}

// setRates
//
//	@Summary		Публикация снимка курсов
//	@Description	rates[c] — цена одной единицы c в базовой валюте
//	@Tags			rates
//	@Accept			json
//	@Produce		json
//	@Param			rates	body		ratesDTO	true	"Курсы"
//	@Success		200		{object}	ratesDTO
//	@Failure		400		{object}	ErrorResponse
//	@Router			/rates [put]
func (h *RatesHandler) setRates(w http.ResponseWriter, r *http.Request) {
	var req ratesDTO
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Ctx(r.Context()).Warnf("set rates: %v", err)
		WriteError(w, err)
		return
	}

	rates, err := h.ratesUsecase.SetRates(r.Context(), &usecase.SetRatesReq{Base: req.Base, Rates: req.Rates})
	if err != nil {
		h.logger.Ctx(r.Context()).Warnf("set rates: %v", err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, newRatesDTO(rates))
}
