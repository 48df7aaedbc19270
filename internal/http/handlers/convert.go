package handlers

import (
	"service-dispatch/internal/domain"
	"service-dispatch/internal/repository"
	"service-dispatch/internal/service/batch"
	"service-dispatch/internal/service/routing"
)

func toCourierDTO(c *domain.Courier) courierDTO {
	dto := courierDTO{
		ID:              c.ID,
		Name:            c.Name,
		Status:          string(c.Status),
		ActiveOrderID:   c.ActiveOrderID,
		PriorityScore:   c.PriorityScore,
		RejectionsToday: c.RejectionsToday,
		Eligible:        c.Eligible,
	}
	if c.Location != nil {
		dto.Location = &pointDTO{Lat: c.Location.Point.Lat, Lon: c.Location.Point.Lon}
	}
	return dto
}

func toOrderDTO(o *domain.Order) orderDTO {
	dto := orderDTO{
		ID:                o.ID,
		Status:            string(o.Status),
		Price:             o.Price,
		DistanceKm:        o.DistanceKm,
		AssignedCourierID: o.AssignedCourierID,
		BatchID:           o.BatchID,
		BatchOrder:        o.BatchOrder,
		AttemptCount:      o.AttemptCount,
	}
	if o.Origin != nil {
		dto.Origin = &pointDTO{Lat: o.Origin.Lat, Lon: o.Origin.Lon}
	}
	if o.Destination != nil {
		dto.Destination = &pointDTO{Lat: o.Destination.Lat, Lon: o.Destination.Lon}
	}
	return dto
}

func toOfferDTO(o *domain.Offer) *offerDTO {
	if o == nil {
		return nil
	}
	return &offerDTO{
		ID:                 o.ID,
		OrderID:            o.OrderID,
		CourierID:          o.CourierID,
		DistanceToPickupKm: o.DistanceToPickupKm,
		AttemptNumber:      o.AttemptNumber,
		OfferedAt:          o.OfferedAt,
		ExpiresAt:          o.ExpiresAt,
		Status:             string(o.Status),
	}
}

func toSuggestionDTO(s batch.Suggestion) suggestionDTO {
	ids := make([]string, 0, len(s.Orders))
	for _, o := range s.Orders {
		ids = append(ids, o.ID)
	}
	return suggestionDTO{
		OrderIDs:        ids,
		TotalPrice:      s.TotalPrice,
		TotalDistanceKm: s.TotalDistanceKm,
		MeanPairwiseKm:  s.MeanPairwiseKm,
	}
}

func toInsertionDTO(in routing.Insertion) insertionDTO {
	return insertionDTO{
		Order:     toOrderDTO(in.Order),
		DetourKm:  in.DetourKm,
		DetourMin: in.DetourMin,
	}
}

func toEventDTO(e repository.EventRecord) eventDTO {
	return eventDTO{
		ID:        e.ID,
		Kind:      string(e.Kind),
		CourierID: e.CourierID,
		Payload:   e.Payload,
		CreatedAt: e.CreatedAt,
	}
}
