package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"message-scheduler/internal/config"
	"message-scheduler/internal/mailer"
	"message-scheduler/internal/metrics"
	"message-scheduler/internal/model"
)

// DefaultSubject is used when no subject is configured
const DefaultSubject = "Scheduled message"

// MessageStore is the part of the message store the dispatcher needs
type MessageStore interface {
	List() []model.Message
	MarkSent(id string) (model.Message, bool)
}

// DeliveryRecorder keeps an audit trail of delivery attempts
type DeliveryRecorder interface {
	LogDeliveryAttempt(messageID, recipient, status, errorMsg string) error
}

// Dispatcher periodically delivers due messages
type Dispatcher struct {
	cron        *cron.Cron
	entryID     cron.EntryID
	interval    time.Duration
	subject     string
	sendTimeout time.Duration
	store       MessageStore
	mailer      mailer.Mailer
	recorder    DeliveryRecorder
	metrics     *metrics.Metrics
	now         func() time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
	lastRun   time.Time
	mu        sync.RWMutex

	// tickMu keeps scheduled and manual ticks from overlapping
	tickMu sync.Mutex
}

// New creates a new dispatcher. recorder may be nil.
func New(cfg *config.DispatcherConfig, store MessageStore, m mailer.Mailer, recorder DeliveryRecorder, metrics *metrics.Metrics) *Dispatcher {
	subject := cfg.Subject
	if subject == "" {
		subject = DefaultSubject
	}

	return &Dispatcher{
		interval:    cfg.Interval,
		subject:     subject,
		sendTimeout: cfg.SendTimeout,
		store:       store,
		mailer:      m,
		recorder:    recorder,
		metrics:     metrics,
		now:         time.Now,
	}
}

// Start schedules a tick every interval. A stopped dispatcher can be
// started again.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isRunning {
		return fmt.Errorf("dispatcher is already running")
	}

	c := cron.New(cron.WithChain(
		cron.Recover(cron.PrintfLogger(logrus.StandardLogger())),
		cron.SkipIfStillRunning(cron.PrintfLogger(logrus.StandardLogger())),
	))

	entryID, err := c.AddFunc("@every "+d.interval.String(), d.scheduledTick)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.cron = c
	d.entryID = entryID
	c.Start()
	d.isRunning = true
	d.metrics.DispatcherRunning.Set(1)

	logrus.Infof("Dispatcher started with interval: %s", d.interval)
	return nil
}

// Stop cancels in-flight sends and waits for the running tick to return
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if !d.isRunning {
		d.mu.Unlock()
		return nil
	}
	d.isRunning = false
	d.cancel()
	c := d.cron
	d.mu.Unlock()

	d.metrics.DispatcherRunning.Set(0)

	select {
	case <-c.Stop().Done():
		logrus.Info("Dispatcher stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Dispatcher stop timeout, forcing shutdown")
	}

	return nil
}

// IsRunning returns whether the dispatcher schedule is active
func (d *Dispatcher) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.isRunning
}

// RunOnce runs a single tick immediately (for manual triggering)
func (d *Dispatcher) RunOnce() TickResult {
	logrus.Info("Running dispatch once")

	d.wg.Add(1)
	defer d.wg.Done()

	return d.Tick(d.context())
}

// NextRun returns the time of the next scheduled tick
func (d *Dispatcher) NextRun() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.isRunning {
		return time.Time{}
	}
	return d.cron.Entry(d.entryID).Next
}

// LastRun returns when the last tick, scheduled or manual, started
func (d *Dispatcher) LastRun() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastRun
}

// Interval returns the tick period
func (d *Dispatcher) Interval() time.Duration {
	return d.interval
}

// Wait waits for in-flight ticks to finish
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) scheduledTick() {
	d.wg.Add(1)
	defer d.wg.Done()

	if !d.IsRunning() {
		logrus.Debug("Dispatcher not running, skipping tick")
		return
	}

	d.Tick(d.context())
}

func (d *Dispatcher) context() context.Context {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.isRunning {
		return d.ctx
	}
	return context.Background()
}

func (d *Dispatcher) setLastRun(t time.Time) {
	d.mu.Lock()
	d.lastRun = t
	d.mu.Unlock()
}
