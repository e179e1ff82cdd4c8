package http

import (
	"orderflow/internal/core/application/usecases/queries"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/generated/servers"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

func orderFromAggregate(o *order.Order) servers.Order {
	totals := o.Totals()
	resp := servers.Order{
		Id:            o.ID().Bytes(),
		Number:        o.Number(),
		RestaurantId:  o.RestaurantID().Bytes(),
		CustomerId:    o.CustomerID().Bytes(),
		CourierId:     optionalID(o.CourierID()),
		Channel:       o.Channel().String(),
		PaymentMethod: string(o.PaymentMethod()),
		PaymentStatus: o.PaymentStatus().String(),
		Status:        o.Status().String(),
		Subtotal:      totals.Subtotal().String(),
		Fees:          totals.Fees().String(),
		Tax:           totals.Tax().String(),
		Discount:      totals.Discount().String(),
		Total:         totals.Total().String(),
		CreatedAt:     o.CreatedAt().UTC(),
		Version:       o.Version(),
	}
	if reason := o.CancellationReason(); reason != "" {
		resp.CancellationReason = &reason
	}

	resp.Items = make([]servers.OrderItem, 0, len(o.Items()))
	for _, item := range o.Items() {
		resp.Items = append(resp.Items, servers.OrderItem{
			ProductId: item.ProductID().Bytes(),
			Name:      item.Name(),
			Quantity:  item.Quantity(),
			UnitPrice: item.UnitPrice().String(),
		})
	}
	resp.History = make([]servers.HistoryEntry, 0, len(o.History()))
	for _, entry := range o.History() {
		resp.History = append(resp.History, servers.HistoryEntry{
			Sequence:  entry.Sequence(),
			Status:    entry.Status().String(),
			ActorId:   entry.Actor().ID().Bytes(),
			ActorRole: string(entry.Actor().Role()),
			Note:      optionalString(entry.Note()),
			At:        entry.At().UTC(),
		})
	}
	return resp
}

func orderFromQuery(o *queries.GetOrderQueryResponse) servers.Order {
	resp := servers.Order{
		Id:                 o.ID.Bytes(),
		Number:             o.Number,
		RestaurantId:       o.RestaurantID.Bytes(),
		CustomerId:         o.CustomerID.Bytes(),
		CourierId:          optionalID(o.CourierID),
		Channel:            o.Channel,
		PaymentMethod:      o.PaymentMethod,
		PaymentStatus:      o.PaymentStatus,
		Status:             o.Status,
		Subtotal:           o.Subtotal.String(),
		Fees:               o.Fees.String(),
		Tax:                o.Tax.String(),
		Discount:           o.Discount.String(),
		Total:              o.Total.String(),
		CreatedAt:          o.CreatedAt,
		CancellationReason: optionalString(o.CancellationReason),
		Version:            o.Version,
	}

	resp.Items = make([]servers.OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		resp.Items = append(resp.Items, servers.OrderItem{
			ProductId: item.ProductID.Bytes(),
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.String(),
		})
	}
	resp.History = make([]servers.HistoryEntry, 0, len(o.History))
	for _, entry := range o.History {
		resp.History = append(resp.History, servers.HistoryEntry{
			Sequence:  entry.Sequence,
			Status:    entry.Status,
			ActorId:   entry.ActorID.Bytes(),
			ActorRole: entry.ActorRole,
			Note:      optionalString(entry.Note),
			At:        entry.At,
		})
	}
	return resp
}

func activeOrderFromQuery(o queries.GetActiveOrdersQueryResponse) servers.ActiveOrder {
	return servers.ActiveOrder{
		Id:              o.ID.Bytes(),
		Number:          o.Number,
		RestaurantId:    o.RestaurantID.Bytes(),
		Channel:         o.Channel,
		Status:          o.Status,
		PaymentStatus:   o.PaymentStatus,
		Total:           o.Total.String(),
		CreatedAt:       o.CreatedAt,
		StatusChangedAt: o.StatusChangedAt,
	}
}

func walletFromQuery(w *queries.GetCourierWalletQueryResponse) servers.Wallet {
	resp := servers.Wallet{
		CourierId:    w.CourierID.Bytes(),
		Balance:      w.Balance.String(),
		TotalEarned:  w.TotalEarned.String(),
		UpdatedAt:    w.UpdatedAt,
		Transactions: make([]servers.WalletTransaction, 0, len(w.Transactions)),
	}
	for _, tx := range w.Transactions {
		resp.Transactions = append(resp.Transactions, servers.WalletTransaction{
			Id:           tx.ID.Bytes(),
			OrderId:      optionalID(tx.OrderID),
			Type:         tx.Type,
			Amount:       tx.Amount.String(),
			BalanceAfter: tx.BalanceAfter.String(),
			Description:  optionalString(tx.Description),
			CreatedAt:    tx.CreatedAt,
		})
	}
	return resp
}

func optionalID(id *kernel.UUID) *openapi_types.UUID {
	if id == nil {
		return nil
	}
	raw := id.Bytes()
	return &raw
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
