package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"smartcity-dashboard/internal/modules/sensors/history"
	"smartcity-dashboard/internal/modules/sensors/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeFetcher struct {
	mu   sync.Mutex
	recs []types.RawRecord
	errs []error
	i    int
}

func (f *fakeFetcher) Fetch(context.Context) (types.RawRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.i
	f.i++
	if i < len(f.errs) && f.errs[i] != nil {
		return types.RawRecord{}, f.errs[i]
	}
	if i < len(f.recs) {
		return f.recs[i], nil
	}
	return validRecord(), nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	samples []types.Sample
	err     error
}

func (p *recordingPublisher) PublishSample(s types.Sample) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.samples = append(p.samples, s)
	return p.err
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	msgs []any
}

func (b *recordingBroadcaster) Broadcast(v any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, v)
}

func TestPoller_PollSuccess(t *testing.T) {
	d := NewDashboardWithClock(history.NewStore(), fixedClock)
	pub := &recordingPublisher{}
	bc := &recordingBroadcaster{}
	p := NewPoller(d, &fakeFetcher{}, stubGeocoder{name: "Here"}, time.Second, discardLogger())
	p.SetPublisher(pub)
	p.SetBroadcaster(bc)

	if err := p.Poll(context.Background()); err != nil {
		t.Fatalf("Poll() err = %v", err)
	}
	if len(d.History()) != 1 {
		t.Fatalf("History() len = %d; want 1", len(d.History()))
	}
	if len(pub.samples) != 1 || pub.samples[0].LocationName != "Here" {
		t.Errorf("published = %+v", pub.samples)
	}
	if len(bc.msgs) != 1 {
		t.Fatalf("broadcasts = %d; want 1", len(bc.msgs))
	}
	u, ok := bc.msgs[0].(Update)
	if !ok || u.Type != "state" || u.State.LocationName != "Here" {
		t.Errorf("broadcast = %+v", bc.msgs[0])
	}
}

func TestPoller_PollFailureSetsPlaceholder(t *testing.T) {
	d := NewDashboardWithClock(history.NewStore(), fixedClock)
	bc := &recordingBroadcaster{}
	f := &fakeFetcher{errs: []error{nil, types.ErrNetworkFailure}}
	p := NewPoller(d, f, stubGeocoder{name: "Here"}, time.Second, discardLogger())
	p.SetBroadcaster(bc)

	_ = p.Poll(context.Background())
	err := p.Poll(context.Background())
	if !errors.Is(err, types.ErrNetworkFailure) {
		t.Fatalf("Poll() err = %v; want ErrNetworkFailure", err)
	}

	st := d.State()
	if st.LocationName != ErrorLocationName || st.LocationValue != ErrorLocationValue {
		t.Errorf("State() = %+v; want placeholders", st)
	}
	if len(d.History()) != 1 {
		t.Errorf("failed poll changed history: len %d", len(d.History()))
	}
	if len(bc.msgs) != 2 {
		t.Errorf("broadcasts = %d; want 2", len(bc.msgs))
	}
}

func TestPoller_MalformedRecordSetsPlaceholder(t *testing.T) {
	d := NewDashboardWithClock(history.NewStore(), fixedClock)
	bad := validRecord()
	bad.Location = "nowhere"
	p := NewPoller(d, &fakeFetcher{recs: []types.RawRecord{bad}}, nil, time.Second, discardLogger())

	if err := p.Poll(context.Background()); !errors.Is(err, types.ErrMalformedRecord) {
		t.Fatalf("Poll() err = %v; want ErrMalformedRecord", err)
	}
	if st := d.State(); st.LocationName != ErrorLocationName {
		t.Errorf("LocationName = %q; want placeholder", st.LocationName)
	}
}

func TestPoller_PublishErrorDoesNotStopAccept(t *testing.T) {
	d := NewDashboardWithClock(history.NewStore(), fixedClock)
	p := NewPoller(d, &fakeFetcher{}, nil, time.Second, discardLogger())
	p.SetPublisher(&recordingPublisher{err: errors.New("broker down")})

	if err := p.Poll(context.Background()); err != nil {
		t.Fatalf("Poll() err = %v", err)
	}
	if len(d.History()) != 1 {
		t.Errorf("History() len = %d; want 1", len(d.History()))
	}
}

type slowFetcher struct {
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	calls    atomic.Int32
}

func (f *slowFetcher) Fetch(context.Context) (types.RawRecord, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	f.calls.Add(1)
	time.Sleep(5 * time.Millisecond)
	return validRecord(), nil
}

func TestPoller_RunNeverOverlaps(t *testing.T) {
	d := NewDashboardWithClock(history.NewStore(), fixedClock)
	f := &slowFetcher{}
	p := NewPoller(d, f, nil, time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	time.Sleep(60 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if f.calls.Load() < 2 {
		t.Errorf("fetch calls = %d; want at least 2", f.calls.Load())
	}
	if f.maxSeen.Load() != 1 {
		t.Errorf("max concurrent fetches = %d; want 1", f.maxSeen.Load())
	}
	if got := len(d.History()); got == 0 || got > history.MaxHistory {
		t.Errorf("History() len = %d", got)
	}
}
