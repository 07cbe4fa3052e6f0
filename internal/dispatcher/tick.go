package dispatcher

import (
	"context"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"message-scheduler/internal/model"
)

// TickResult summarises one tick
type TickResult struct {
	Due     int `json:"due"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Missing int `json:"missing"`
}

// Tick delivers every message that is due now. A failed delivery leaves the
// message pending for the next tick and does not stop the others.
func (d *Dispatcher) Tick(ctx context.Context) TickResult {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()

	startTime := time.Now()
	d.setLastRun(startTime)
	d.metrics.Ticks.Inc()

	messages := d.store.List()
	now := d.now()
	due := lo.Filter(messages, func(m model.Message, _ int) bool {
		return m.IsDue(now)
	})

	d.metrics.StoredMessages.Set(float64(len(messages)))
	d.metrics.PendingMessages.Set(float64(lo.CountBy(messages, func(m model.Message) bool {
		return !m.Sent && m.SendAt != nil
	})))
	d.metrics.DueMessages.Add(float64(len(due)))

	result := TickResult{Due: len(due)}
	if len(due) == 0 {
		logrus.Debugf("No due messages among %d stored", len(messages))
		d.metrics.TickDuration.Observe(time.Since(startTime).Seconds())
		return result
	}

	logrus.Infof("Dispatching %d due messages", len(due))

	for _, msg := range due {
		if ctx.Err() != nil {
			logrus.Warnf("Tick cancelled, %d due messages left for the next tick", result.Due-result.Sent-result.Failed-result.Missing)
			break
		}
		d.deliver(ctx, msg, &result)
	}

	duration := time.Since(startTime)
	d.metrics.TickDuration.Observe(duration.Seconds())
	logrus.Infof("Dispatch tick completed in %v: %d sent, %d failed", duration, result.Sent, result.Failed)
	return result
}

func (d *Dispatcher) deliver(ctx context.Context, msg model.Message, result *TickResult) {
	log := logrus.WithFields(logrus.Fields{
		"message_id": msg.ID,
		"recipient":  msg.Email,
	})

	sendCtx := ctx
	if d.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, d.sendTimeout)
		defer cancel()
	}

	if err := d.mailer.Send(sendCtx, msg.Email, d.subject, msg.BodyText()); err != nil {
		log.Errorf("Failed to deliver message: %v", err)
		d.metrics.DeliveryFailures.Inc()
		d.record(msg, model.DeliveryStatusFailure, err.Error())
		result.Failed++
		return
	}

	if _, ok := d.store.MarkSent(msg.ID); !ok {
		log.Warn("Message was deleted before it could be marked sent")
		d.metrics.MissingOnMark.Inc()
		d.record(msg, model.DeliveryStatusMissing, "message deleted during delivery")
		result.Missing++
		return
	}

	d.metrics.DeliverySuccesses.Inc()
	d.record(msg, model.DeliveryStatusSuccess, "")
	result.Sent++
	log.Info("Delivered scheduled message")
}

func (d *Dispatcher) record(msg model.Message, status, errorMsg string) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.LogDeliveryAttempt(msg.ID, msg.Email, status, errorMsg); err != nil {
		logrus.Warnf("Failed to record delivery attempt for %s: %v", msg.ID, err)
	}
}
