package postgres

import (
	"errors"
	"strings"

	"github.com/shopfront/storefront/internal/domain"
	"github.com/shopfront/storefront/internal/ports"
	"gorm.io/gorm"
)

func toDomainUser(row userModel) domain.User {
	return domain.User{
		UserID:       row.UserID,
		Name:         row.Name,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Role:         row.Role,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func toDomainSession(row sessionModel) domain.Session {
	ip := ""
	if row.IPAddress != nil {
		ip = *row.IPAddress
	}
	return domain.Session{
		SessionID:      row.SessionID,
		UserID:         row.UserID,
		IPAddress:      ip,
		UserAgent:      row.UserAgent,
		CreatedAt:      row.CreatedAt,
		LastActivityAt: row.LastActivityAt,
		ExpiresAt:      row.ExpiresAt,
		RevokedAt:      row.RevokedAt,
	}
}

func toProductModel(p domain.Product) productModel {
	return productModel{
		ProductID:    p.ProductID,
		Name:         p.Name,
		Description:  p.Description,
		Brand:        p.Brand,
		Category:     p.Category,
		Price:        p.Price,
		Image:        p.Image,
		Rating:       p.Rating,
		NumReviews:   p.NumReviews,
		CountInStock: p.CountInStock,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toDomainProduct(row productModel) domain.Product {
	return domain.Product{
		ProductID:    row.ProductID,
		Name:         row.Name,
		Description:  row.Description,
		Brand:        row.Brand,
		Category:     row.Category,
		Price:        row.Price,
		Image:        row.Image,
		Rating:       row.Rating,
		NumReviews:   row.NumReviews,
		CountInStock: row.CountInStock,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func toDomainReview(row reviewModel) domain.Review {
	return domain.Review{
		ReviewID:  row.ReviewID,
		ProductID: row.ProductID,
		UserID:    row.UserID,
		Name:      row.Name,
		Rating:    row.Rating,
		Comment:   row.Comment,
		CreatedAt: row.CreatedAt,
	}
}

func toOrderModel(o domain.Order) orderModel {
	row := orderModel{
		OrderID:        o.OrderID,
		OrderNumber:    o.OrderNumber,
		UserID:         o.UserID,
		ShipAddress:    o.ShippingAddress.Address,
		ShipCity:       o.ShippingAddress.City,
		ShipPostalCode: o.ShippingAddress.PostalCode,
		ShipCountry:    o.ShippingAddress.Country,
		PaymentMethod:  o.PaymentMethod,
		ItemsPrice:     o.ItemsPrice,
		ShippingPrice:  o.ShippingPrice,
		TaxPrice:       o.TaxPrice,
		TotalPrice:     o.TotalPrice,
		Status:         string(o.Status),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
		PaidAt:         o.PaidAt,
		DeliveredAt:    o.DeliveredAt,
		CancelledAt:    o.CancelledAt,
	}
	if o.PaymentResult != nil {
		row.PaymentID = &o.PaymentResult.PaymentID
		row.PaymentStatus = &o.PaymentResult.Status
		row.PaymentEmail = nullableString(o.PaymentResult.EmailAddress)
		row.PaymentUpdated = &o.PaymentResult.UpdatedAt
	}
	row.Items = make([]orderItemModel, 0, len(o.Lines))
	for i, line := range o.Lines {
		row.Items = append(row.Items, orderItemModel{
			OrderID:   o.OrderID,
			ProductID: line.ProductID,
			Name:      line.Name,
			Image:     line.Image,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			Position:  i,
		})
	}
	return row
}

func toDomainOrder(row orderModel) domain.Order {
	o := domain.Order{
		OrderID:     row.OrderID,
		OrderNumber: row.OrderNumber,
		UserID:      row.UserID,
		ShippingAddress: domain.ShippingAddress{
			Address:    row.ShipAddress,
			City:       row.ShipCity,
			PostalCode: row.ShipPostalCode,
			Country:    row.ShipCountry,
		},
		PaymentMethod: row.PaymentMethod,
		ItemsPrice:    row.ItemsPrice,
		ShippingPrice: row.ShippingPrice,
		TaxPrice:      row.TaxPrice,
		TotalPrice:    row.TotalPrice,
		Status:        domain.OrderStatus(row.Status),
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
		PaidAt:        row.PaidAt,
		DeliveredAt:   row.DeliveredAt,
		CancelledAt:   row.CancelledAt,
	}
	if row.PaymentID != nil {
		result := domain.PaymentResult{PaymentID: *row.PaymentID}
		if row.PaymentStatus != nil {
			result.Status = *row.PaymentStatus
		}
		if row.PaymentEmail != nil {
			result.EmailAddress = *row.PaymentEmail
		}
		if row.PaymentUpdated != nil {
			result.UpdatedAt = *row.PaymentUpdated
		}
		o.PaymentResult = &result
	}
	o.Lines = make([]domain.OrderLine, 0, len(row.Items))
	for _, item := range row.Items {
		o.Lines = append(o.Lines, domain.OrderLine{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	return o
}

func toOutboxModel(event ports.OutboxEvent) outboxModel {
	payload := string(event.Payload)
	if payload == "" {
		payload = "{}"
	}
	return outboxModel{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      payload,
		CreatedAt:    event.OccurredAt,
	}
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func toOutboxRecord(row outboxModel) ports.OutboxRecord {
	return ports.OutboxRecord{
		OutboxID:       row.OutboxID,
		EventType:      row.EventType,
		PartitionKey:   row.PartitionKey,
		Payload:        []byte(row.Payload),
		RetryCount:     row.RetryCount,
		LastError:      row.LastError,
		CreatedAt:      row.CreatedAt,
		PublishedAt:    row.PublishedAt,
		LastErrorAt:    row.LastErrorAt,
		ClaimToken:     row.ClaimToken,
		ClaimUntil:     row.ClaimUntil,
		DeadLetteredAt: row.DeadLetteredAt,
	}
}

func toIdempotencyRecord(row idempotencyModel) ports.IdempotencyRecord {
	rec := ports.IdempotencyRecord{
		Key:          row.IdempotencyKey,
		RequestHash:  row.RequestHash,
		Status:       row.Status,
		ResponseCode: row.ResponseCode,
		ExpiresAt:    row.ExpiresAt,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.ResponseBody != nil {
		rec.ResponseBody = []byte(*row.ResponseBody)
	}
	return rec
}

func nullableBytes(b []byte) *string {
	if len(b) == 0 {
		return nil
	}
	s := string(b)
	return &s
}
