package service

import (
	"apim-analytics-backend/internal/model"
	"apim-analytics-backend/internal/repository"
	"context"
	"errors"
)

type eventSink struct {
	stores []repository.EventRepository
}

// NewEventSink stores every batch in each of the given stores, skipping nil
// ones. The batch fails if any store fails.
func NewEventSink(stores ...repository.EventRepository) repository.EventRepository {
	sink := &eventSink{}
	for _, s := range stores {
		if s != nil {
			sink.stores = append(sink.stores, s)
		}
	}
	return sink
}

func (s *eventSink) StoreEvents(ctx context.Context, events []model.RequestEvent) error {
	var errs []error
	for _, store := range s.stores {
		if err := store.StoreEvents(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
