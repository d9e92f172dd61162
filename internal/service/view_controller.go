package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/pkg/caldate"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

// ScheduleStore is the data source a schedule view reads from and writes to.
type ScheduleStore interface {
	ListResources(ctx context.Context) ([]models.Resource, error)
	ListAppointments(ctx context.Context, filter models.AppointmentFilter) ([]models.AppointmentRecord, error)
	CreateAppointment(ctx context.Context, input models.AppointmentInput) (*models.Appointment, error)
	UpdateAppointment(ctx context.Context, id int64, patch models.AppointmentPatch) (*models.Appointment, error)
	DeleteAppointment(ctx context.Context, id int64) error
}

type viewMetrics interface {
	RecordStaleResponse(kind string)
	RecordDroppedRecords(source string, count int)
}

// ViewEventType names a change published by a schedule view.
type ViewEventType string

const (
	EventWindowChanged       ViewEventType = "window_changed"
	EventSelectionChanged    ViewEventType = "selection_changed"
	EventAppointmentsChanged ViewEventType = "appointments_changed"
	EventResourcesChanged    ViewEventType = "resources_changed"
	EventError               ViewEventType = "error"
)

// ViewEvent is delivered to subscribers after the view state changed.
type ViewEvent struct {
	Type      ViewEventType
	Window    models.ViewWindow
	Selection models.ResourceSelection
	Err       error
}

const (
	fetchKindResources    = "resources"
	fetchKindAppointments = "appointments"

	subscriberBuffer      = 16
	defaultConfirmTimeout = 2 * time.Minute
)

// ViewControllerOptions tunes a ScheduleViewController.
type ViewControllerOptions struct {
	Grid           GridConfig
	Granularity    models.Granularity
	Anchor         caldate.Date
	Selection      *models.ResourceSelection
	Location       *time.Location
	ConfirmTimeout time.Duration
	Now            func() time.Time
	Logger         *zap.Logger
	Metrics        viewMetrics
}

type pendingDelete struct {
	appointmentID int64
	expiresAt     time.Time
}

// ScheduleViewController owns the state of one schedule view: its window,
// resource selection and appointment collection. Fetches are tagged with a
// per-kind epoch and responses for an outdated epoch are discarded. Local
// saves and deletes also mask the ids they touch from any appointment
// response issued before them.
type ScheduleViewController struct {
	store   ScheduleStore
	session models.Session
	grid    GridConfig
	loc     *time.Location
	now     func() time.Time
	ttl     time.Duration
	logger  *zap.Logger
	metrics viewMetrics

	mu               sync.Mutex
	window           models.ViewWindow
	selection        models.ResourceSelection
	resources        []models.Resource
	reconciler       *AppointmentReconciler
	resourceEpoch    uint64
	appointmentEpoch uint64
	resourceErr      error
	appointmentErr   error
	staleDiscarded   int
	mutated          map[int64]uint64
	pending          map[string]pendingDelete
	subscribers      map[int]chan ViewEvent
	nextSubscriber   int
}

// NewScheduleViewController creates an empty view, anchored on today unless
// opts.Anchor is set.
func NewScheduleViewController(store ScheduleStore, session models.Session, opts ViewControllerOptions) *ScheduleViewController {
	if opts.Grid.Day.SlotCount == 0 && opts.Grid.Week.SlotCount == 0 {
		opts.Grid = DefaultGridConfig()
	}
	if opts.Granularity == "" {
		opts.Granularity = models.GranularityWeek
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = defaultConfirmTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	c := &ScheduleViewController{
		store:       store,
		session:     session,
		grid:        opts.Grid,
		loc:         opts.Location,
		now:         opts.Now,
		ttl:         opts.ConfirmTimeout,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		selection:   session.DefaultSelection(),
		reconciler:  NewAppointmentReconciler(),
		mutated:     make(map[int64]uint64),
		pending:     make(map[string]pendingDelete),
		subscribers: make(map[int]chan ViewEvent),
	}
	if opts.Selection != nil {
		c.selection = *opts.Selection
	}
	anchor := opts.Anchor
	if anchor.IsZero() {
		anchor = c.today()
	}
	c.window = models.ViewWindow{AnchorDate: anchor, Granularity: opts.Granularity}
	return c
}

// Session returns the identity the view is scoped to.
func (c *ScheduleViewController) Session() models.Session { return c.session }

// Window returns the active window.
func (c *ScheduleViewController) Window() models.ViewWindow {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window
}

// Selection returns the active resource selection.
func (c *ScheduleViewController) Selection() models.ResourceSelection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

// Resources returns the last fetched resource list.
func (c *ScheduleViewController) Resources() []models.Resource {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Resource, len(c.resources))
	copy(out, c.resources)
	return out
}

// Err is the error banner: the last failed fetch, nil once fetches succeed.
func (c *ScheduleViewController) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.appointmentErr != nil {
		return c.appointmentErr
	}
	return c.resourceErr
}

// StaleDiscarded counts responses dropped because a newer fetch was issued.
func (c *ScheduleViewController) StaleDiscarded() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.staleDiscarded
}

// DroppedRecords counts records rejected during merges.
func (c *ScheduleViewController) DroppedRecords() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconciler.Dropped()
}

// Visible returns the appointments inside the window and selection.
func (c *ScheduleViewController) Visible() []models.Appointment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconciler.VisibleFor(c.window, c.selection)
}

// Appointment looks up a loaded appointment.
func (c *ScheduleViewController) Appointment(id int64) (models.Appointment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconciler.Get(id)
}

// Grid lays out the current state.
func (c *ScheduleViewController) Grid() models.GridView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return BuildGrid(c.grid, c.window, c.resources, c.selection, c.reconciler.VisibleFor(c.window, c.selection))
}

// Refresh fetches resources and appointments for the current window
// concurrently. The first fetch error is returned and kept as the banner.
func (c *ScheduleViewController) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.resourceEpoch++
	c.appointmentEpoch++
	resourceEpoch, appointmentEpoch := c.resourceEpoch, c.appointmentEpoch
	window, selection := c.window, c.selection
	c.mu.Unlock()

	var (
		wg             sync.WaitGroup
		resourceErr    error
		appointmentErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		resourceErr = c.fetchResources(ctx, resourceEpoch)
	}()
	go func() {
		defer wg.Done()
		appointmentErr = c.fetchAppointments(ctx, appointmentEpoch, window, selection)
	}()
	wg.Wait()

	if appointmentErr != nil {
		return appointmentErr
	}
	return resourceErr
}

func (c *ScheduleViewController) fetchResources(ctx context.Context, epoch uint64) error {
	resources, err := c.store.ListResources(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.resourceEpoch {
		c.discardStale(fetchKindResources, epoch)
		return nil
	}
	if err != nil {
		c.resourceErr = asFetchFailed(err, "failed to load resources")
		c.logger.Warn("resource fetch failed", zap.Error(err))
		c.emit(EventError, c.resourceErr)
		return c.resourceErr
	}
	c.resourceErr = nil
	c.resources = resources
	c.emit(EventResourcesChanged, nil)
	return nil
}

func (c *ScheduleViewController) fetchAppointments(ctx context.Context, epoch uint64, window models.ViewWindow, selection models.ResourceSelection) error {
	from, to := WindowRange(window)
	filter := models.AppointmentFilter{From: &from, To: &to}
	if !selection.IsAll() {
		filter.ResourceIDs = []int64{selection.ResourceID}
	}
	records, err := c.store.ListAppointments(ctx, filter)

	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.appointmentEpoch {
		c.discardStale(fetchKindAppointments, epoch)
		return nil
	}
	if err != nil {
		c.appointmentErr = asFetchFailed(err, "failed to load appointments")
		c.logger.Warn("appointment fetch failed", zap.Error(err), zap.String("from", from.String()), zap.String("to", to.String()))
		c.emit(EventError, c.appointmentErr)
		return c.appointmentErr
	}
	c.appointmentErr = nil
	records = c.withoutLocalChanges(records, epoch)
	result := c.reconciler.Merge(records)
	if result.Dropped > 0 {
		c.logger.Warn("dropped malformed appointments", zap.Int("dropped", result.Dropped), zap.Errors("errors", result.Errors))
		if c.metrics != nil {
			c.metrics.RecordDroppedRecords(fetchKindAppointments, result.Dropped)
		}
	}
	c.emit(EventAppointmentsChanged, nil)
	return nil
}

// markMutated records that id was saved or deleted locally while
// appointmentEpoch was current. Callers hold mu.
func (c *ScheduleViewController) markMutated(id int64) {
	c.mutated[id] = c.appointmentEpoch
}

// withoutLocalChanges drops records for ids mutated after the fetch tagged
// epoch was issued, then forgets markers no pending response can reach.
// Callers hold mu.
func (c *ScheduleViewController) withoutLocalChanges(records []models.AppointmentRecord, epoch uint64) []models.AppointmentRecord {
	if len(c.mutated) == 0 {
		return records
	}
	kept := make([]models.AppointmentRecord, 0, len(records))
	for _, record := range records {
		if record.ID != nil {
			if marker, ok := c.mutated[*record.ID]; ok && epoch <= marker {
				c.logger.Debug("skipping record changed locally", zap.Int64("id", *record.ID), zap.Uint64("epoch", epoch))
				continue
			}
		}
		kept = append(kept, record)
	}
	for id, marker := range c.mutated {
		if marker <= epoch {
			delete(c.mutated, id)
		}
	}
	return kept
}

func (c *ScheduleViewController) discardStale(kind string, epoch uint64) {
	c.staleDiscarded++
	c.logger.Debug("discarding stale response", zap.String("kind", kind), zap.Uint64("epoch", epoch))
	if c.metrics != nil {
		c.metrics.RecordStaleResponse(kind)
	}
}

// Navigate shifts the anchor by deltaDays and refetches.
func (c *ScheduleViewController) Navigate(ctx context.Context, deltaDays int) error {
	return c.moveTo(ctx, func(w models.ViewWindow) models.ViewWindow { return Navigate(w, deltaDays) })
}

// Step moves by whole views and refetches.
func (c *ScheduleViewController) Step(ctx context.Context, steps int) error {
	return c.moveTo(ctx, func(w models.ViewWindow) models.ViewWindow { return Step(w, steps) })
}

// Today re-anchors on the current date and refetches.
func (c *ScheduleViewController) Today(ctx context.Context) error {
	today := c.today()
	return c.moveTo(ctx, func(w models.ViewWindow) models.ViewWindow {
		w.AnchorDate = today
		return w
	})
}

// GoTo anchors the view on date and refetches.
func (c *ScheduleViewController) GoTo(ctx context.Context, date caldate.Date) error {
	return c.moveTo(ctx, func(w models.ViewWindow) models.ViewWindow {
		w.AnchorDate = date
		return w
	})
}

// SetGranularity switches between day and week views and refetches.
func (c *ScheduleViewController) SetGranularity(ctx context.Context, granularity models.Granularity) error {
	return c.moveTo(ctx, func(w models.ViewWindow) models.ViewWindow {
		w.Granularity = granularity
		return w
	})
}

// SelectResource changes the resource selection and refetches.
func (c *ScheduleViewController) SelectResource(ctx context.Context, selection models.ResourceSelection) error {
	c.mu.Lock()
	c.selection = selection
	c.emit(EventSelectionChanged, nil)
	c.mu.Unlock()
	return c.Refresh(ctx)
}

func (c *ScheduleViewController) moveTo(ctx context.Context, move func(models.ViewWindow) models.ViewWindow) error {
	c.mu.Lock()
	c.window = move(c.window)
	c.emit(EventWindowChanged, nil)
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// Create saves a new appointment and adds it to the collection.
func (c *ScheduleViewController) Create(ctx context.Context, input models.AppointmentInput) (*models.Appointment, error) {
	if !c.session.CanEdit() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "session may not edit appointments")
	}
	appt, err := c.store.CreateAppointment(ctx, input)
	if err != nil {
		return nil, c.reportMutationError(err)
	}
	return appt, c.applySaved(appt)
}

// Update saves a partial change. A NotFound result leaves the collection
// untouched.
func (c *ScheduleViewController) Update(ctx context.Context, id int64, patch models.AppointmentPatch) (*models.Appointment, error) {
	if !c.session.CanEdit() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "session may not edit appointments")
	}
	appt, err := c.store.UpdateAppointment(ctx, id, patch)
	if err != nil {
		return nil, c.reportMutationError(err)
	}
	return appt, c.applySaved(appt)
}

func (c *ScheduleViewController) applySaved(appt *models.Appointment) error {
	if appt == nil {
		return appErrors.Malformed("appointment: empty save response")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.reconciler.UpsertOne(*appt); err != nil {
		return err
	}
	c.markMutated(appt.ID)
	c.emit(EventAppointmentsChanged, nil)
	return nil
}

// RequestDelete issues a confirmation token for deleting a loaded
// appointment.
func (c *ScheduleViewController) RequestDelete(id int64) (string, error) {
	if !c.session.CanEdit() {
		return "", appErrors.Clone(appErrors.ErrForbidden, "session may not edit appointments")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.reconciler.Get(id); !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, "appointment not loaded")
	}
	token := uuid.NewString()
	c.pending[token] = pendingDelete{appointmentID: id, expiresAt: c.now().Add(c.ttl)}
	return token, nil
}

// CancelDelete discards a confirmation token.
func (c *ScheduleViewController) CancelDelete(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[token]; !ok {
		return false
	}
	delete(c.pending, token)
	return true
}

// ConfirmDelete performs the deletion a token was issued for. The token is
// consumed whatever the outcome.
func (c *ScheduleViewController) ConfirmDelete(ctx context.Context, token string) (int64, error) {
	c.mu.Lock()
	pending, ok := c.pending[token]
	delete(c.pending, token)
	c.mu.Unlock()
	if !ok || c.now().After(pending.expiresAt) {
		return 0, appErrors.Clone(appErrors.ErrConfirmationRequired, "unknown or expired confirmation")
	}

	if err := c.store.DeleteAppointment(ctx, pending.appointmentID); err != nil {
		return 0, c.reportMutationError(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.markMutated(pending.appointmentID)
	if c.reconciler.Remove(pending.appointmentID) {
		c.emit(EventAppointmentsChanged, nil)
	}
	return pending.appointmentID, nil
}

func (c *ScheduleViewController) reportMutationError(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger.Info("appointment mutation rejected", zap.Error(err))
	c.emit(EventError, err)
	return err
}

// Subscribe registers for view events. Slow subscribers miss events rather
// than block the view. The returned function unsubscribes.
func (c *ScheduleViewController) Subscribe() (<-chan ViewEvent, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubscriber
	c.nextSubscriber++
	ch := make(chan ViewEvent, subscriberBuffer)
	c.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subscribers, id)
			close(ch)
		})
	}
}

// emit must be called with c.mu held.
func (c *ScheduleViewController) emit(eventType ViewEventType, err error) {
	event := ViewEvent{Type: eventType, Window: c.window, Selection: c.selection, Err: err}
	for _, ch := range c.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (c *ScheduleViewController) today() caldate.Date {
	return caldate.Of(c.now().In(c.loc))
}

func asFetchFailed(err error, message string) error {
	if errors.Is(err, appErrors.ErrFetchFailed) {
		return err
	}
	return appErrors.FetchFailed(err, message)
}
