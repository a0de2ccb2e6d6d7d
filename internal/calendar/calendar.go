// Package calendar is the headless reservation calendar: it caches one
// device's reservations and runs every write through the conflict resolver
// before it reaches the API.
package calendar

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/aussiebroadwan/labres/internal/metrics"
	"github.com/aussiebroadwan/labres/pkg/httpx"
	"github.com/aussiebroadwan/labres/pkg/labapi"
	"github.com/aussiebroadwan/labres/pkg/reservation"
	"github.com/jonboulle/clockwork"
)

// API is the subset of labapi.Client the calendar uses.
type API interface {
	GetDevice(ctx context.Context, id int) (*labapi.Device, error)
	ListReservations(ctx context.Context, deviceID int) ([]labapi.Reservation, error)
	CreateReservation(ctx context.Context, in labapi.ReservationInput) (*labapi.Reservation, error)
	UpdateReservation(ctx context.Context, id int, in labapi.ReservationInput) (*labapi.Reservation, error)
	DeleteReservation(ctx context.Context, id int) error
}

// Controller holds the calendar state for the selected device. The cache is
// only ever replaced by a fetch; writes never patch it locally.
type Controller struct {
	api    API
	clock  clockwork.Clock
	logger *slog.Logger

	mu           sync.RWMutex
	device       *labapi.Device
	window       *reservation.MaintenanceWindow
	reservations []labapi.Reservation
	lastErr      error
}

type Option func(*Controller)

func WithClock(c clockwork.Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(ctl *Controller) { ctl.logger = l }
}

func New(api API, opts ...Option) *Controller {
	c := &Controller{
		api:    api,
		clock:  clockwork.NewRealClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SelectDevice loads a device and its reservations. An id of 0 clears the
// selection. A device whose maintenance window cannot be parsed is kept
// without a client-side window; the API still enforces it.
func (c *Controller) SelectDevice(ctx context.Context, id int) error {
	if id == 0 {
		c.mu.Lock()
		c.device, c.window, c.reservations, c.lastErr = nil, nil, nil, nil
		c.mu.Unlock()
		return nil
	}

	d, err := c.api.GetDevice(ctx, id)
	if err != nil {
		c.logger.Warn("failed to load device", "device_id", id, "error", err)
		return err
	}

	w, err := d.MaintenanceWindow()
	if err != nil {
		c.logger.Warn("ignoring malformed maintenance window", "device_id", id, "error", err)
		w = nil
	}

	c.mu.Lock()
	if c.device == nil || c.device.ID != d.ID {
		c.reservations = nil
	}
	c.device = d
	c.window = w
	c.lastErr = nil
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// Refresh re-fetches the selected device's reservations. On failure the
// previous list stays and the error is kept in LastError.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.RLock()
	d := c.device
	c.mu.RUnlock()
	if d == nil {
		return nil
	}

	list, err := c.api.ListReservations(ctx, d.ID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil || c.device.ID != d.ID {
		// Selection changed while fetching.
		return nil
	}
	if err != nil {
		c.lastErr = err
		c.logger.Error("failed to fetch reservations", "device_id", d.ID, "error", err)
		return err
	}
	c.reservations = list
	c.lastErr = nil
	return nil
}

// CheckSelection previews whether a selected range could be booked now.
func (c *Controller) CheckSelection(iv reservation.Interval) reservation.Verdict {
	c.mu.RLock()
	w := c.window
	c.mu.RUnlock()
	return reservation.Evaluate(c.clock.Now(), iv, w, nil)
}

// MaintenanceConflicts lists the maintenance window of every day iv
// collides with on the selected device, in calendar order.
func (c *Controller) MaintenanceConflicts(iv reservation.Interval) []reservation.Window {
	c.mu.RLock()
	w := c.window
	c.mu.RUnlock()
	return reservation.FindConflicts(iv, w)
}

// Create books iv on the selected device.
func (c *Controller) Create(ctx context.Context, iv reservation.Interval) (*labapi.Reservation, error) {
	d, w, err := c.selected()
	if err != nil {
		return nil, err
	}
	if err := c.admit(iv, w, nil); err != nil {
		return nil, err
	}

	r, err := c.api.CreateReservation(ctx, labapi.ReservationInput{DeviceID: d.ID, Start: iv.Start, End: iv.End})
	if err := c.written(ctx, OpCreate, err); err != nil {
		return nil, err
	}
	return r, nil
}

// Update moves reservation id to iv. Reservations that already ended are
// read-only.
func (c *Controller) Update(ctx context.Context, id int, iv reservation.Interval) (*labapi.Reservation, error) {
	d, w, err := c.selected()
	if err != nil {
		return nil, err
	}
	existing, err := c.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	cur := existing.Interval()
	if err := c.admit(iv, w, &cur); err != nil {
		return nil, err
	}

	r, err := c.api.UpdateReservation(ctx, id, labapi.ReservationInput{DeviceID: d.ID, Start: iv.Start, End: iv.End})
	if err := c.written(ctx, OpUpdate, err); err != nil {
		return nil, err
	}
	return r, nil
}

// Delete cancels reservation id. Reservations that already ended are
// read-only.
func (c *Controller) Delete(ctx context.Context, id int) error {
	if _, _, err := c.selected(); err != nil {
		return err
	}
	existing, err := c.lookup(ctx, id)
	if err != nil {
		return err
	}
	if err := reservation.ValidateEdit(c.clock.Now(), existing.Interval()); err != nil {
		metrics.RecordRejection(reservation.ReasonPastReadOnly)
		return err
	}

	return c.written(ctx, OpDelete, c.api.DeleteReservation(ctx, id))
}

// admit runs the resolver with now taken at submission time.
func (c *Controller) admit(iv reservation.Interval, w *reservation.MaintenanceWindow, existing *reservation.Interval) error {
	v := reservation.Evaluate(c.clock.Now(), iv, w, existing)
	if !v.Allowed {
		metrics.RecordRejection(v.Reason)
		c.logger.Debug("reservation rejected", "reason", v.Reason)
	}
	return v.Err()
}

// written turns a write result into a *WriteError and re-fetches the list
// after a success. A failed re-fetch does not fail the write.
func (c *Controller) written(ctx context.Context, op Op, err error) error {
	metrics.RecordWrite(string(op), err)
	if err != nil {
		generic := msgSaveFailed
		if op == OpDelete {
			generic = msgDeleteFailed
		}
		c.logger.Warn("reservation write failed", "op", op, "error", err)
		return &WriteError{Op: op, Message: httpx.MessageOr(err, generic), Err: err}
	}

	_ = c.Refresh(ctx)
	return nil
}

func (c *Controller) selected() (*labapi.Device, *reservation.MaintenanceWindow, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.device == nil {
		return nil, nil, ErrNoDevice
	}
	return c.device, c.window, nil
}

// lookup finds id in the cache, re-fetching once if it is missing.
func (c *Controller) lookup(ctx context.Context, id int) (labapi.Reservation, error) {
	if r, ok := c.Find(id); ok {
		return r, nil
	}
	if err := c.Refresh(ctx); err != nil {
		return labapi.Reservation{}, err
	}
	if r, ok := c.Find(id); ok {
		return r, nil
	}
	return labapi.Reservation{}, ErrUnknownReservation
}

// ============================================================================
// Accessors
// ============================================================================

// Find returns the cached reservation with id.
func (c *Controller) Find(id int) (labapi.Reservation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := slices.IndexFunc(c.reservations, func(r labapi.Reservation) bool { return r.ID == id })
	if i < 0 {
		return labapi.Reservation{}, false
	}
	return c.reservations[i], true
}

// Reservations returns a copy of the cached list.
func (c *Controller) Reservations() []labapi.Reservation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.reservations)
}

func (c *Controller) Device() *labapi.Device {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.device == nil {
		return nil
	}
	d := *c.device
	return &d
}

func (c *Controller) Window() *reservation.MaintenanceWindow {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.window
}

// LastError is the most recent fetch failure, nil after a good fetch.
func (c *Controller) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}
