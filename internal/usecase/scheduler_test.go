package usecase

import (
	"context"
	"testing"
	"time"
)

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerRunsDailyPass(t *testing.T) {
	t.Parallel()

	f := newFixture(newFakeGenerator())
	o := f.orchestrator(fiveCities(), f.store, Options{})
	driver := &manualDriver{}
	s := NewScheduler(driver, o, true, nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if driver.job == nil {
		t.Fatalf("job was not registered")
	}

	driver.job(testNow)
	driver.job(testNow)

	n, _ := f.store.CountForDate(context.Background(), testNow)
	if n != 5 {
		t.Fatalf("repeated daily runs should replace today's articles, got %d", n)
	}

	if err := s.Stop(context.Background()); err != nil || !driver.stopped {
		t.Fatalf("Stop did not reach the driver: %v", err)
	}
}
