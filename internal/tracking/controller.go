package tracking

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/keshav2k4/employee-tracker-App/internal/device"
	"github.com/keshav2k4/employee-tracker-App/internal/geocode"
	"github.com/keshav2k4/employee-tracker-App/internal/history"
	"github.com/keshav2k4/employee-tracker-App/internal/location"
	"github.com/keshav2k4/employee-tracker-App/internal/shared/geo"
)

const (
	DefaultInterval    = 30 * time.Second
	defaultTickTimeout = time.Minute
)

// AuthProvider is read on every tick so a refreshed token applies to the
// next push without restarting tracking.
type AuthProvider interface {
	Token(ctx context.Context) (string, error)
	EmployeeID(ctx context.Context) (string, error)
}

type SyncClient interface {
	Push(ctx context.Context, sample location.Sample, token, employeeID string) error
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }

func (t timeTicker) Stop() { t.t.Stop() }

func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

type Deps struct {
	Provider device.Provider
	Resolver geocode.Resolver
	Store    history.Store
	Sync     SyncClient
	Auth     AuthProvider
}

type Options struct {
	TickTimeout time.Duration
	OnOutcome   func(Outcome)
	NewTicker   func(time.Duration) Ticker
	Now         func() time.Time
}

type session struct {
	interval  time.Duration
	startedAt time.Time
	ticker    Ticker
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

// Controller owns the tracking state machine. At most one session is alive;
// ticks run one at a time in acquire, geocode, persist, push order.
type Controller struct {
	deps Deps
	opts Options

	mu      sync.Mutex
	session *session

	tickMu sync.Mutex

	statusMu sync.Mutex
	status   Status
	lastFix  *location.Sample
}

func NewController(deps Deps, opts Options) *Controller {
	if opts.TickTimeout <= 0 {
		opts.TickTimeout = defaultTickTimeout
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewTimeTicker
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{deps: deps, opts: opts}
}

// Start begins tracking. While already active it is a no-op returning
// (nil, nil). Otherwise it checks permission, runs the first tick before
// returning, and schedules the rest every interval.
func (c *Controller) Start(ctx context.Context, interval time.Duration) (*Outcome, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	c.mu.Lock()
	if c.session != nil {
		c.mu.Unlock()
		return nil, nil
	}
	if err := c.deps.Provider.RequestPermission(ctx); err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("start tracking: %w", err)
	}
	sctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		interval:  interval,
		startedAt: c.opts.Now(),
		ctx:       sctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	c.session = sess
	c.mu.Unlock()

	c.statusMu.Lock()
	c.lastFix = nil
	c.statusMu.Unlock()
	log.Printf("tracking started (interval %s)", interval)

	outcome, ran := c.runTick(ctx, sess)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == sess {
		sess.ticker = c.opts.NewTicker(interval)
		go c.loop(sess)
	}
	if !ran {
		return nil, nil
	}
	return &outcome, nil
}

// Stop cancels the schedule and waits for the loop to exit. It is a no-op
// while idle. A tick already past its start may finish; no tick begins
// after Stop returns. Stop must not be called from OnOutcome.
func (c *Controller) Stop() {
	c.mu.Lock()
	sess := c.session
	c.session = nil
	var ticker Ticker
	if sess != nil {
		ticker = sess.ticker
	}
	c.mu.Unlock()

	if sess == nil {
		return
	}
	sess.cancel()
	if ticker != nil {
		ticker.Stop()
		<-sess.done
	}
	log.Printf("tracking stopped")
}

func (c *Controller) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()

	c.statusMu.Lock()
	st := c.status
	c.statusMu.Unlock()

	st.Active = sess != nil
	if sess != nil {
		st.IntervalMS = sess.interval.Milliseconds()
		startedAt := sess.startedAt
		st.StartedAt = &startedAt
	}
	return st
}

// CurrentFix acquires and names a fix without persisting or pushing it.
func (c *Controller) CurrentFix(ctx context.Context) (location.Sample, error) {
	sample, err := c.deps.Provider.Acquire(ctx)
	if err != nil {
		return location.Sample{}, err
	}
	name, err := c.resolve(ctx, sample)
	if err != nil {
		log.Printf("reverse geocoding failed: %v", err)
	}
	return sample.WithName(name), nil
}

func (c *Controller) loop(sess *session) {
	defer close(sess.done)
	for {
		select {
		case <-sess.ctx.Done():
			return
		case <-sess.ticker.C():
			ctx, cancel := context.WithTimeout(context.Background(), c.opts.TickTimeout)
			_, ran := c.runTick(ctx, sess)
			cancel()
			if !ran {
				return
			}
		}
	}
}

// runTick reports false when the session was stopped before the tick began.
func (c *Controller) runTick(ctx context.Context, sess *session) (Outcome, bool) {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()

	if sess.ctx.Err() != nil {
		return Outcome{}, false
	}

	outcome := c.tick(ctx)
	c.record(outcome)
	if c.opts.OnOutcome != nil {
		c.opts.OnOutcome(outcome)
	}
	return outcome, true
}

func (c *Controller) tick(ctx context.Context) Outcome {
	out := Outcome{StartedAt: c.opts.Now()}

	sample, err := c.deps.Provider.Acquire(ctx)
	if err != nil {
		out.AcquireErr = err
		out.FinishedAt = c.opts.Now()
		log.Printf("location tracking error: %v", err)
		return out
	}

	name, err := c.resolve(ctx, sample)
	if err != nil {
		out.GeocodeErr = err
		log.Printf("reverse geocoding failed: %v", err)
	}
	sample = sample.WithName(name)

	entry, err := c.deps.Store.Save(ctx, sample)
	if err != nil {
		out.StoreErr = err
		out.FinishedAt = c.opts.Now()
		log.Printf("saving location failed: %v", err)
		return out
	}
	out.Entry = &entry
	out.MovedM = c.moved(sample)

	if c.deps.Sync != nil {
		token, employeeID := c.credentials(ctx)
		if err := c.deps.Sync.Push(ctx, sample, token, employeeID); err != nil {
			out.SyncErr = err
			log.Printf("failed to send location update: %v", err)
		} else {
			out.Synced = true
		}
	}
	out.FinishedAt = c.opts.Now()
	return out
}

func (c *Controller) resolve(ctx context.Context, sample location.Sample) (string, error) {
	if c.deps.Resolver == nil {
		return "", nil
	}
	name, err := c.deps.Resolver.Resolve(ctx, sample.Latitude, sample.Longitude)
	if err != nil {
		return "", err
	}
	return name, nil
}

func (c *Controller) credentials(ctx context.Context) (string, string) {
	if c.deps.Auth == nil {
		return "", ""
	}
	token, err := c.deps.Auth.Token(ctx)
	if err != nil {
		log.Printf("reading auth token failed: %v", err)
	}
	employeeID, err := c.deps.Auth.EmployeeID(ctx)
	if err != nil {
		log.Printf("reading employee id failed: %v", err)
	}
	return token, employeeID
}

func (c *Controller) moved(sample location.Sample) float64 {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()

	var moved float64
	if c.lastFix != nil {
		moved = geo.HaversineKm(c.lastFix.Latitude, c.lastFix.Longitude, sample.Latitude, sample.Longitude) * 1000
	}
	c.lastFix = &sample
	return moved
}

func (c *Controller) record(o Outcome) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()

	c.status.Ticks++
	switch {
	case o.AcquireErr != nil:
		c.status.AcquireFailures++
	case o.StoreErr != nil:
		c.status.StorageFailures++
	default:
		c.status.Persisted++
	}
	if o.GeocodeErr != nil {
		c.status.GeocodeFailures++
	}
	if o.SyncErr != nil {
		c.status.SyncFailures++
	}
	if o.Synced {
		c.status.Synced++
	}
	last := o
	c.status.LastOutcome = &last
}
