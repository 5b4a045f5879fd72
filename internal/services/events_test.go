package services

import (
	"context"
	"errors"
	"testing"

	"github.com/snappy-loop/fairytales/internal/models"
)

type countingPublisher struct {
	calls int
	err   error
}

func (p *countingPublisher) PublishTaleEvent(context.Context, *models.TaleEvent) error {
	p.calls++
	return p.err
}

func TestPublishers(t *testing.T) {
	if Publishers() != nil || Publishers(nil, nil) != nil {
		t.Error("expected nil for no publishers")
	}

	single := &countingPublisher{}
	if got := Publishers(nil, single); got != EventPublisher(single) {
		t.Errorf("single publisher should be returned as is, got %T", got)
	}

	a := &countingPublisher{}
	b := &countingPublisher{err: errors.New("broker down")}
	c := &countingPublisher{}
	err := Publishers(a, b, c).PublishTaleEvent(context.Background(), &models.TaleEvent{Event: models.EventTaleCompleted})
	if err == nil || err.Error() != "broker down" {
		t.Errorf("err = %v, want broker down", err)
	}
	if a.calls != 1 || b.calls != 1 || c.calls != 1 {
		t.Errorf("calls = %d %d %d, want all 1", a.calls, b.calls, c.calls)
	}
}
