package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/example/herbalshop/internal/infra/mq"
	"github.com/example/herbalshop/internal/notify"
)

type fakeDispatcher struct {
	mu        sync.Mutex
	recipient string
	err       error
	sent      []notify.Request
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, req notify.Request) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return "", d.err
	}
	d.sent = append(d.sent, req)
	return fmt.Sprintf("<%d@test>", len(d.sent)), nil
}

func (d *fakeDispatcher) Recipient(ctx context.Context) (string, error) {
	return d.recipient, nil
}

func (d *fakeDispatcher) subjects() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.sent))
	for _, r := range d.sent {
		out = append(out, r.Subject)
	}
	return out
}

func (d *fakeDispatcher) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = nil
}

type fakeLinks struct{}

func (fakeLinks) URL(entity string, id int64, action string) (string, error) {
	return fmt.Sprintf("https://shop.test/%ss/%d/%s?token=t", entity, id, action), nil
}

type fakePublisher struct {
	mu     sync.Mutex
	fail   bool
	events []mq.LifecycleEvent
}

func (p *fakePublisher) Publish(ctx context.Context, e mq.LifecycleEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, e)
	return nil
}
