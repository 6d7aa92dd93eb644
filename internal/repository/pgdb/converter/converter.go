package converter

import (
	"encoding/json"
	"fmt"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/internal/usecase"
)

// ProductConverter преобразует сущности Product между domain и моделью PostgreSQL.
type ProductConverter struct{}

func (ProductConverter) ToModel(entity *domain.Product) (*ProductModel, error) {
	items, err := MarshalVariants(entity.Items)
	if err != nil {
		return nil, err
	}

	return &ProductModel{
		ID:        entity.ID,
		PublicID:  entity.PublicID,
		Title:     entity.Title,
		Price:     entity.Price,
		Currency:  entity.Currency.String(),
		Items:     items,
		Version:   entity.Version,
		Active:    entity.Active,
		CreatedAt: entity.CreatedAt,
	}, nil
}

func (ProductConverter) ToEntity(model *ProductModel) (*domain.Product, error) {
	var variants []VariantModel
	if len(model.Items) > 0 {
		if err := json.Unmarshal(model.Items, &variants); err != nil {
			return nil, fmt.Errorf("product %s items: %w", model.ID, err)
		}
	}

	return &domain.Product{
		ID:        model.ID,
		PublicID:  model.PublicID,
		Title:     model.Title,
		Price:     model.Price,
		Currency:  domain.Currency(model.Currency),
		Items:     variantsToEntity(variants),
		Version:   model.Version,
		Active:    model.Active,
		CreatedAt: model.CreatedAt,
	}, nil
}

// MarshalVariants сериализует варианты в JSONB. Пустой список пишется как [].
func MarshalVariants(items []domain.ItemVariant) ([]byte, error) {
	return json.Marshal(variantsToModel(items))
}

// OrderConverter преобразует сущности Order между domain и моделью PostgreSQL.
type OrderConverter struct{}

func (OrderConverter) ToModel(entity *domain.Order) (*OrderModel, error) {
	items := make([]OrderItemModel, 0, len(entity.ItemsData))
	for _, item := range entity.ItemsData {
		items = append(items, OrderItemModel{
			ProductID:  item.ProductID,
			Qty:        item.Qty,
			Attributes: item.Attributes,
			SKU:        item.SKU,
			Reserved:   variantsToModel(item.Reserved),
		})
	}
	itemsData, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}

	delivery, err := json.Marshal(DeliveryModel{
		WhereToDeliver: entity.Delivery.WhereToDeliver,
		Data:           entity.Delivery.Data,
	})
	if err != nil {
		return nil, err
	}

	history, err := MarshalStatusHistory(entity.StatusHistory)
	if err != nil {
		return nil, err
	}

	return &OrderModel{
		ID:                   entity.ID,
		FirstName:            entity.FirstName,
		LastName:             entity.LastName,
		PhoneNumber:          entity.PhoneNumber,
		ItemsData:            itemsData,
		Delivery:             delivery,
		TotalPrice:           entity.TotalPrice,
		Currency:             entity.Currency.String(),
		Status:               entity.Status.String(),
		CreateDate:           entity.CreateDate,
		StatusHistory:        history,
		LastStatusUpdateDate: entity.LastStatusUpdateDate,
		IsItemsReturned:      entity.IsItemsReturned,
		InvoiceID:            entity.InvoiceID,
	}, nil
}

func (OrderConverter) ToEntity(model *OrderModel) (*domain.Order, error) {
	var items []OrderItemModel
	if err := unmarshalJSONB(model.ItemsData, &items); err != nil {
		return nil, fmt.Errorf("order %s items: %w", model.ID, err)
	}

	var delivery DeliveryModel
	if err := unmarshalJSONB(model.Delivery, &delivery); err != nil {
		return nil, fmt.Errorf("order %s delivery: %w", model.ID, err)
	}

	var history []StatusHistoryModel
	if err := unmarshalJSONB(model.StatusHistory, &history); err != nil {
		return nil, fmt.Errorf("order %s history: %w", model.ID, err)
	}

	order := &domain.Order{
		ID:                   model.ID,
		FirstName:            model.FirstName,
		LastName:             model.LastName,
		PhoneNumber:          model.PhoneNumber,
		ItemsData:            make([]domain.OrderItem, 0, len(items)),
		Delivery:             domain.Delivery{WhereToDeliver: delivery.WhereToDeliver, Data: delivery.Data},
		TotalPrice:           model.TotalPrice,
		Currency:             domain.Currency(model.Currency),
		Status:               domain.OrderStatus(model.Status),
		CreateDate:           model.CreateDate,
		StatusHistory:        make([]domain.StatusHistoryEntry, 0, len(history)),
		LastStatusUpdateDate: model.LastStatusUpdateDate,
		IsItemsReturned:      model.IsItemsReturned,
		InvoiceID:            model.InvoiceID,
	}

	for _, item := range items {
		order.ItemsData = append(order.ItemsData, domain.OrderItem{
			ProductID:  item.ProductID,
			Qty:        item.Qty,
			Attributes: item.Attributes,
			SKU:        item.SKU,
			Reserved:   variantsToEntity(item.Reserved),
		})
	}
	for _, h := range history {
		order.StatusHistory = append(order.StatusHistory, domain.StatusHistoryEntry{
			Status:         domain.OrderStatus(h.Status),
			Date:           h.Date,
			AdditionalData: h.AdditionalData,
		})
	}

	return order, nil
}

func MarshalStatusHistory(history []domain.StatusHistoryEntry) ([]byte, error) {
	out := make([]StatusHistoryModel, 0, len(history))
	for _, h := range history {
		out = append(out, StatusHistoryModel{
			Status:         h.Status.String(),
			Date:           h.Date,
			AdditionalData: h.AdditionalData,
		})
	}

	return json.Marshal(out)
}

// OutboxEventConverter преобразует сущности OutboxEvent между usecase и моделью PostgreSQL.
type OutboxEventConverter struct{}

func (OutboxEventConverter) ToModel(entity *usecase.OutboxEvent) *OutboxEventModel {
	return &OutboxEventModel{
		ID:          entity.ID,
		EventID:     entity.EventID,
		EventType:   entity.EventType,
		AggregateID: entity.AggregateID,
		Payload:     entity.Payload,
		Status:      string(entity.Status),
		CreatedAt:   entity.CreatedAt,
		ProcessedAt: entity.ProcessedAt,
	}
}

func (OutboxEventConverter) ToEntity(model *OutboxEventModel) *usecase.OutboxEvent {
	return &usecase.OutboxEvent{
		ID:          model.ID,
		EventID:     model.EventID,
		EventType:   model.EventType,
		AggregateID: model.AggregateID,
		Payload:     model.Payload,
		Status:      usecase.OutboxStatus(model.Status),
		CreatedAt:   model.CreatedAt,
		ProcessedAt: model.ProcessedAt,
	}
}

func (c OutboxEventConverter) ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent {
	out := make([]*usecase.OutboxEvent, 0, len(models))
	for _, m := range models {
		out = append(out, c.ToEntity(m))
	}
	return out
}

func variantsToModel(items []domain.ItemVariant) []VariantModel {
	out := make([]VariantModel, 0, len(items))
	for _, v := range items {
		out = append(out, VariantModel{SKU: v.SKU, Attributes: v.Attributes})
	}
	return out
}

func variantsToEntity(models []VariantModel) []domain.ItemVariant {
	out := make([]domain.ItemVariant, 0, len(models))
	for _, m := range models {
		out = append(out, domain.ItemVariant{SKU: m.SKU, Attributes: domain.Attributes(m.Attributes)})
	}
	return out
}

func unmarshalJSONB(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
