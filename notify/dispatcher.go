/*
Package notify delivers claim notifications in the background.

PURPOSE:
  Implements allowance.Notifier. Notify only queues the event, so a slow or
  failing delivery channel never holds up a status transition. A single
  worker goroutine resolves the recipients from the directory and hands a
  Message to the Sender.

RECIPIENTS:
  notify_line_manager: line managers of the claim's department
  notify_hr:           every HR employee
  notify_completion:   department representatives of the claim's department

DESIGN:
  - Buffered channel sized from NOTIFY_BUFFER
  - A full queue drops the event and Notify returns an error (the service
    logs it; the transition stands)
  - Send failures are logged at warn level and dropped
  - Stop drains the queue before returning

USAGE:
  d := notify.NewDispatcher(store.Directory(), notify.LogSender{Log: log}, 64, log)
  d.Start()
  defer d.Stop()
  svc := allowance.NewRequestService(store, validator, d, log)

SEE ALSO:
  - allowance/notify.go: Event and the status hooks
*/
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarahuu/EGBIN-SSP/allowance"
)

var (
	// ErrQueueFull is returned by Notify when the buffer is exhausted.
	ErrQueueFull = errors.New("notification queue is full")
	// ErrStopped is returned by Notify after Stop.
	ErrStopped = errors.New("notification dispatcher is stopped")
)

// Message is an event with its resolved recipients.
type Message struct {
	Event      allowance.Event
	Recipients []allowance.Employee
}

// Sender delivers a message over some channel (email, chat, ...).
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	Log logrus.FieldLogger
}

func (s LogSender) Send(_ context.Context, m Message) error {
	names := make([]string, len(m.Recipients))
	for i, r := range m.Recipients {
		names[i] = r.Name
	}
	s.Log.WithFields(logrus.Fields{
		"event_id":   m.Event.ID,
		"kind":       m.Event.Kind,
		"request":    m.Event.RequestNo,
		"status":     m.Event.Status,
		"recipients": names,
	}).Info("notification sent")
	return nil
}

// Dispatcher queues events and delivers them on a background goroutine.
type Dispatcher struct {
	Directory   allowance.Directory
	Sender      Sender
	Log         logrus.FieldLogger
	SendTimeout time.Duration

	queue   chan allowance.Event
	wg      sync.WaitGroup
	mu      sync.RWMutex
	started bool
	stopped bool
}

func NewDispatcher(dir allowance.Directory, sender Sender, buffer int, log logrus.FieldLogger) *Dispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if sender == nil {
		sender = LogSender{Log: log}
	}
	if buffer < 1 {
		buffer = 1
	}
	return &Dispatcher{
		Directory:   dir,
		Sender:      sender,
		Log:         log,
		SendTimeout: 10 * time.Second,
		queue:       make(chan allowance.Event, buffer),
	}
}

// Start launches the worker. Calling it twice is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started || d.stopped {
		return
	}
	d.started = true
	d.wg.Add(1)
	go d.run()

	d.Log.WithField("buffer", cap(d.queue)).Info("notification dispatcher started")
}

// Stop closes the queue and waits for queued events to be delivered.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if started {
		d.wg.Wait()
	}
	d.Log.Info("notification dispatcher stopped")
}

// Notify queues e without blocking.
func (d *Dispatcher) Notify(_ context.Context, e allowance.Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return ErrStopped
	}
	select {
	case d.queue <- e:
		return nil
	default:
		return fmt.Errorf("%w: dropped %s for %s", ErrQueueFull, e.Kind, e.RequestNo)
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for e := range d.queue {
		d.deliver(e)
	}
}

func (d *Dispatcher) deliver(e allowance.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.SendTimeout)
	defer cancel()

	entry := d.Log.WithFields(logrus.Fields{
		"event_id": e.ID,
		"kind":     e.Kind,
		"request":  e.RequestNo,
	})

	recipients, err := d.recipients(ctx, e)
	if err != nil {
		entry.WithError(err).Warn("failed to resolve notification recipients")
		return
	}
	if err := d.Sender.Send(ctx, Message{Event: e, Recipients: recipients}); err != nil {
		entry.WithError(err).Warn("failed to send notification")
	}
}

func (d *Dispatcher) recipients(ctx context.Context, e allowance.Event) ([]allowance.Employee, error) {
	var (
		departmentID int64
		role         allowance.Role
	)
	switch e.Kind {
	case allowance.NotifyLineManager:
		departmentID, role = e.DepartmentID, allowance.RoleLineManager
	case allowance.NotifyHR:
		role = allowance.RoleHR
	case allowance.NotifyCompletion:
		departmentID, role = e.DepartmentID, allowance.RoleDeptRep
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}

	employees, err := d.Directory.Employees(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	var out []allowance.Employee
	for _, emp := range employees {
		if emp.Role == role {
			out = append(out, emp)
		}
	}
	return out, nil
}
