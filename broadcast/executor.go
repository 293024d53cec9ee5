package broadcast

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/keyquest/wa-gateway/domains/broadcast"
	"github.com/keyquest/wa-gateway/domains/send"
	"github.com/keyquest/wa-gateway/eventbus"
	"github.com/keyquest/wa-gateway/pkg/clock"
	"github.com/keyquest/wa-gateway/pkg/utils"
	"github.com/sirupsen/logrus"
)

const (
	delayShortMin = 1 * time.Minute
	delayShortMax = 2 * time.Minute
	delayLongMin  = 2 * time.Minute
	delayLongMax  = 3 * time.Minute

	// Long inter-message waits are chunked so the session stays warm.
	keepAliveInterval = 30 * time.Second

	defaultRecipientName = "Valued Customer"
)

// Pinger keeps the underlying session alive during long idle stretches.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Executor walks a broadcast execution contact by contact. One goroutine
// per running execution; progress is persisted after every contact so a
// restart resumes from current_index.
type Executor struct {
	repo   broadcast.IBroadcastRepository
	sender send.Sender
	pinger Pinger
	clk    clock.Clock
	bus    *eventbus.Bus

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func NewExecutor(repo broadcast.IBroadcastRepository, sender send.Sender, pinger Pinger, clk clock.Clock, bus *eventbus.Bus) *Executor {
	return &Executor{
		repo:    repo,
		sender:  sender,
		pinger:  pinger,
		clk:     clk,
		bus:     bus,
		cancels: make(map[string]context.CancelFunc),
	}
}

// Launch starts the async run loop for an execution that preflight has
// already persisted.
func (x *Executor) Launch(exec *broadcast.Execution) {
	ctx, cancel := context.WithCancel(context.Background())
	x.mu.Lock()
	x.cancels[exec.ID] = cancel
	x.mu.Unlock()

	x.wg.Add(1)
	go func() {
		defer x.wg.Done()
		defer func() {
			x.mu.Lock()
			delete(x.cancels, exec.ID)
			x.mu.Unlock()
		}()
		x.run(ctx, exec)
	}()
}

// Cancel stops a running execution. The run loop marks the row cancelled
// before exiting.
func (x *Executor) Cancel(executionID string) bool {
	x.mu.Lock()
	cancel, ok := x.cancels[executionID]
	x.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Running reports whether an execution is currently being worked.
func (x *Executor) Running(executionID string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, ok := x.cancels[executionID]
	return ok
}

// Shutdown cancels every running execution and waits for the loops to
// persist their state.
func (x *Executor) Shutdown() {
	x.mu.Lock()
	for _, cancel := range x.cancels {
		cancel()
	}
	x.mu.Unlock()
	x.wg.Wait()
}

func (x *Executor) run(ctx context.Context, exec *broadcast.Execution) {
	log := logrus.WithFields(logrus.Fields{"execution": exec.ID, "broadcast": exec.BroadcastID})
	log.Infof("[BROADCAST] Starting run: %d contacts, delay %s", exec.TotalContacts, exec.DelayMode)

	msgs, err := x.repo.ListMessages(ctx, exec.ID)
	if err != nil {
		x.finish(exec, broadcast.StatusFailed, fmt.Sprintf("load messages: %v", err))
		return
	}

	for i := exec.CurrentIndex; i < len(msgs); i++ {
		if ctx.Err() != nil {
			x.finish(exec, broadcast.StatusCancelled, "")
			log.Warn("[BROADCAST] Cancelled")
			return
		}

		m := msgs[i]
		x.sendOne(ctx, exec, &m)

		exec.CurrentIndex = exec.SentCount + exec.FailedCount
		if err := x.repo.UpdateExecution(ctx, exec); err != nil {
			log.WithError(err).Warn("[BROADCAST] Failed to persist progress")
		}
		x.publishStatus(exec, m.RecipientName)

		if i < len(msgs)-1 {
			if !x.waitBetween(ctx, exec.DelayMode) {
				x.finish(exec, broadcast.StatusCancelled, "")
				log.Warn("[BROADCAST] Cancelled during delay")
				return
			}
		}
	}

	x.finish(exec, broadcast.StatusCompleted, "")
	log.Infof("[BROADCAST] Completed: %d sent, %d failed", exec.SentCount, exec.FailedCount)
}

func (x *Executor) sendOne(ctx context.Context, exec *broadcast.Execution, m *broadcast.Message) {
	m.Status = broadcast.MessageSending
	if err := x.repo.UpdateMessage(ctx, m); err != nil {
		logrus.WithError(err).Warn("[BROADCAST] Failed to mark message sending")
	}

	req := send.Request{
		TargetChatID: utils.WhatsAppID(m.RecipientPhone),
		Text:         Personalize(exec.MessageContent, m.RecipientName),
		Priority:     send.PriorityLow,
		Ctx:          ctx,
	}
	if exec.ImageURL != "" {
		req.Media = &send.Media{Kind: "image", URL: exec.ImageURL, Caption: req.Text}
		req.Text = ""
	}

	res := <-x.sender.Enqueue(req)
	now := x.clk.Now().UTC()
	if res.Err != nil {
		m.Status = broadcast.MessageFailed
		m.Error = res.Err.Error()
		exec.FailedCount++
		logrus.WithError(res.Err).Warnf("[BROADCAST] Send to %s failed", m.RecipientPhone)
	} else {
		m.Status = broadcast.MessageSent
		m.SentAt = &now
		exec.SentCount++
		exec.LastSentAt = &now
	}
	if err := x.repo.UpdateMessage(ctx, m); err != nil {
		logrus.WithError(err).Warn("[BROADCAST] Failed to persist message result")
	}
}

// waitBetween sleeps the mode's randomized delay, pinging every 30s so the
// connection does not idle out. Returns false when cancelled.
func (x *Executor) waitBetween(ctx context.Context, mode string) bool {
	min, max := delayShortMin, delayShortMax
	if mode == broadcast.DelayMode2to3 {
		min, max = delayLongMin, delayLongMax
	}
	remaining := x.clk.Uniform(min, max)

	for remaining > 0 {
		chunk := keepAliveInterval
		if chunk > remaining {
			chunk = remaining
		}
		if !x.clk.Sleep(ctx, chunk) {
			return false
		}
		remaining -= chunk
		if remaining > 0 && x.pinger != nil {
			if err := x.pinger.Ping(ctx); err != nil {
				logrus.WithError(err).Debug("[BROADCAST] Keep-alive ping failed")
			}
		}
	}
	return true
}

// finish closes the row and fans the terminal state out: status event plus
// the summary notice. Every exit from the run loop lands here, so cancelled
// and failed broadcasts notify the same way completed ones do.
func (x *Executor) finish(exec *broadcast.Execution, status, errMsg string) {
	now := x.clk.Now().UTC()
	exec.Status = status
	exec.CompletedAt = &now
	if errMsg != "" {
		exec.Error = errMsg
	}
	// The run context may already be cancelled; state still has to land.
	if err := x.repo.UpdateExecution(context.Background(), exec); err != nil {
		logrus.WithError(err).Error("[BROADCAST] Failed to persist final state")
	}
	x.publishStatus(exec, "")
	x.notify(exec)
}

// publishStatus pushes one broadcast_status frame onto the event bus.
func (x *Executor) publishStatus(exec *broadcast.Execution, currentContact string) {
	if x.bus == nil {
		return
	}
	progress := 100
	if exec.TotalContacts > 0 {
		progress = exec.CurrentIndex * 100 / exec.TotalContacts
	}
	payload := map[string]any{
		"broadcast_id":  exec.BroadcastID,
		"execution_id":  exec.ID,
		"status":        exec.Status,
		"total":         exec.TotalContacts,
		"sent":          exec.SentCount,
		"failed":        exec.FailedCount,
		"current_index": exec.CurrentIndex,
		"progress":      progress,
	}
	if currentContact != "" {
		payload["current_contact"] = currentContact
	}
	x.bus.Publish(eventbus.Event{Type: eventbus.EventBroadcastStatus, Payload: payload})
}

func (x *Executor) notify(exec *broadcast.Execution) {
	if exec.NotificationContact == "" {
		return
	}
	target := exec.NotificationContact
	if !strings.Contains(target, "@") {
		target = utils.WhatsAppID(target)
	}
	body := fmt.Sprintf("Broadcast %s %s.\n\nSent: %d\nFailed: %d\nTotal: %d",
		exec.BroadcastID, exec.Status, exec.SentCount, exec.FailedCount, exec.TotalContacts)
	<-x.sender.Enqueue(send.Request{
		TargetChatID: target,
		Text:         body,
		Priority:     send.PriorityCritical,
		Ctx:          context.Background(),
	})
}

// Personalize substitutes {name} in the broadcast content, falling back to
// a generic salutation for contacts without a name.
func Personalize(content, name string) string {
	if strings.TrimSpace(name) == "" {
		name = defaultRecipientName
	}
	return strings.ReplaceAll(content, "{name}", name)
}
