package services

import (
	"context"
	"errors"

	"github.com/snappy-loop/fairytales/internal/models"
)

// Publishers fans an event out to every non-nil publisher. It returns nil
// when none are given, so the result can go straight into TaleDeps.
func Publishers(pubs ...EventPublisher) EventPublisher {
	var out multiPublisher
	for _, p := range pubs {
		if p != nil {
			out = append(out, p)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

type multiPublisher []EventPublisher

// PublishTaleEvent publishes to all and joins the failures.
func (m multiPublisher) PublishTaleEvent(ctx context.Context, event *models.TaleEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishTaleEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
