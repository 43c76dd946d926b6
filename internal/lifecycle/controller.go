// Package lifecycle is the entry point of the notification core. The Controller admits new
// notifications through dedup and limiting, persists what it posts, and drives refreshes.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/lokalapp/notiflow/internal/analytics"
	"github.com/lokalapp/notiflow/internal/dedup"
	"github.com/lokalapp/notiflow/internal/domain"
	"github.com/lokalapp/notiflow/internal/limiter"
	"github.com/lokalapp/notiflow/internal/logging"
	"github.com/lokalapp/notiflow/internal/ports"
	"github.com/lokalapp/notiflow/internal/recreator"
	"github.com/lokalapp/notiflow/internal/refresher"
	"github.com/lokalapp/notiflow/internal/remoteconfig"
	"github.com/lokalapp/notiflow/internal/render"
	"github.com/lokalapp/notiflow/internal/scheduler"
	"github.com/lokalapp/notiflow/internal/storage"
)

// CricketNotificationID is the fixed ID of the live score notification, so updates replace it.
const CricketNotificationID = 1001

// DefaultRetention is how long records are kept for refresh.
const DefaultRetention = 7 * 24 * time.Hour

// Callbacks observe the controller. Nil fields are skipped.
type Callbacks struct {
	OnNotificationBuilt    func(rec domain.Record)
	OnNotificationsLimited func(removed int)
	OnLimitCheckCompleted  func(activeCount, limit int)
	OnRefreshStarted       func()
	OnRefreshCompleted     func(refreshed int)
	OnRefreshFailed        func(err error)
}

// Deps are the capabilities the controller runs on.
type Deps struct {
	Platform  ports.PlatformNotifier
	Images    ports.ImageFetcher
	Config    ports.ConfigProvider
	Device    ports.DeviceClassifier
	Analytics ports.AnalyticsSink
	Store     ports.KeyValueStore
}

// Controller coordinates the validator, limiter, refresher and recreator.
type Controller struct {
	platform  ports.PlatformNotifier
	device    ports.DeviceClassifier
	analytics ports.AnalyticsSink
	config    *remoteconfig.Store
	records   *storage.Records
	reads     *storage.ReadStatus
	validator *dedup.Validator
	limiter   *limiter.Limiter
	refresher *refresher.Refresher
	recreator *recreator.Recreator
	renderer  *render.Renderer
	log       logging.Logger

	now           func() time.Time
	retention     time.Duration
	schedule      string
	refresherOpts []refresher.Option
	callbacks     Callbacks

	initMu      sync.Mutex
	initialized bool

	schedMu sync.Mutex
	sched   *scheduler.Scheduler
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger shared by every component.
func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithClock sets the clock used for timestamps and the refresh gate.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithRetention sets how long records are kept.
func WithRetention(d time.Duration) Option {
	return func(c *Controller) { c.retention = d }
}

// WithSchedule sets the cron expression of the recurring refresh check.
func WithSchedule(spec string) Option {
	return func(c *Controller) { c.schedule = spec }
}

// WithCallbacks registers observers.
func WithCallbacks(cb Callbacks) Option {
	return func(c *Controller) { c.callbacks = cb }
}

// WithRefresherOptions passes options to the refresher, such as pacing.
func WithRefresherOptions(opts ...refresher.Option) Option {
	return func(c *Controller) { c.refresherOpts = append(c.refresherOpts, opts...) }
}

// New wires a Controller. Nothing touches the platform until first use.
func New(d Deps, opts ...Option) *Controller {
	c := &Controller{
		platform:  d.Platform,
		device:    d.Device,
		analytics: d.Analytics,
		config:    remoteconfig.New(d.Config),
		records:   storage.NewRecords(d.Store),
		reads:     storage.NewReadStatus(d.Store),
		log:       logging.GetGlobal(),
		now:       time.Now,
		retention: DefaultRetention,
		schedule:  scheduler.DefaultSchedule,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.analytics == nil {
		c.analytics = analytics.NewLogSink(c.log)
	}

	c.validator = dedup.NewValidator(d.Store, dedup.WithLogger(c.log))
	c.limiter = limiter.New(c.platform, c.config, c.device, c.analytics, limiter.WithLogger(c.log))
	c.renderer = render.New(c.platform, d.Images, render.WithLogger(c.log))
	c.recreator = recreator.New(c.renderer, recreator.WithLogger(c.log), recreator.WithClock(c.now))
	refOpts := append([]refresher.Option{refresher.WithLogger(c.log), refresher.WithClock(c.now)}, c.refresherOpts...)
	c.refresher = refresher.New(refresher.Deps{
		Platform:  c.platform,
		Config:    c.config,
		Device:    c.device,
		Analytics: c.analytics,
		Store:     d.Store,
		Records:   c.records,
		Recreator: c.recreator,
	}, refOpts...)
	c.log = c.log.With("component", "controller")
	return c
}

// init registers callbacks, prepares the platform channel and prunes stale records.
// It runs once; setup failures are logged and do not block later calls.
func (c *Controller) init(ctx context.Context) {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.initialized {
		return
	}
	c.initialized = true

	cb := c.callbacks
	c.limiter.SetCallbacks(limiter.Callbacks{
		OnNotificationsLimited: cb.OnNotificationsLimited,
		OnLimitCheckCompleted:  cb.OnLimitCheckCompleted,
	})
	c.refresher.SetCallbacks(refresher.Callbacks{
		OnRefreshStarted:   cb.OnRefreshStarted,
		OnRefreshCompleted: cb.OnRefreshCompleted,
		OnRefreshFailed:    cb.OnRefreshFailed,
	})

	if err := c.platform.EnsureChannel(ctx); err != nil {
		c.log.Warn("failed to create notification channel", "error", err)
		c.analytics.RecordException(ctx, err)
	}
	if removed, err := c.CleanupOldRecords(ctx); err != nil {
		c.log.Warn("failed to prune records", "error", err)
	} else if removed > 0 {
		c.log.Info("pruned old records", "removed", removed)
	}
	c.log.Debug("controller initialized")
}

// CreateNotification posts req. It returns false without error when the request is a
// duplicate or its kind is switched off. Platform failures are returned.
func (c *Controller) CreateNotification(ctx context.Context, req domain.Request) (bool, error) {
	c.init(ctx)
	snap := c.config.Snapshot(ctx)

	if !req.Kind.Admitted() {
		return c.createUnadmitted(ctx, req, snap)
	}

	if !c.validator.IsValid(ctx, req.ID, req.GroupID) {
		c.log.Info("notification rejected as duplicate", "notification_id", req.ID, "group_id", req.GroupID)
		return false, nil
	}
	if _, err := c.limiter.Limit(ctx); err != nil {
		c.log.Warn("limit pass failed, posting anyway", "error", err)
	}

	ts := c.now().UnixMilli()
	content := req.Content().Stamp(ts)
	if !snap.GroupingActive {
		content.GroupKey = ""
	}
	res, err := c.renderer.Render(ctx, content, req.ImageURL)
	if err != nil {
		return false, c.createFailed(ctx, req, err)
	}

	rec := req.Record(ts)
	if err := c.records.Upsert(ctx, rec); err != nil {
		c.log.Warn("failed to persist record", "notification_id", req.ID, "error", err)
	}
	c.trackUnread(ctx, rec)
	c.built(ctx, req, res, &rec)
	return true, nil
}

// createUnadmitted posts live kinds. They replace themselves in place and are never
// deduplicated, limited or persisted.
func (c *Controller) createUnadmitted(ctx context.Context, req domain.Request, snap remoteconfig.Snapshot) (bool, error) {
	switch req.Kind {
	case domain.KindCricket:
		if !snap.CricketActive {
			c.log.Debug("cricket notifications disabled")
			return false, nil
		}
		if req.ID == 0 {
			req = req.WithID(CricketNotificationID)
		}
	case domain.KindComment:
		if !snap.CommentActive {
			c.log.Debug("comment notifications disabled")
			return false, nil
		}
		if req.ID == 0 {
			req = req.WithID(CommentNotificationID(c.now()))
		}
	case domain.KindSticky:
		if !snap.StickyActive {
			c.log.Debug("sticky notifications disabled")
			return false, nil
		}
	default:
		return false, fmt.Errorf("lifecycle: %w: kind %q", domain.ErrInvalidRequest, req.Kind)
	}

	content := req.Content().Stamp(c.now().UnixMilli())
	if req.Kind == domain.KindComment && !snap.CommentGrouping {
		content.GroupKey = ""
	}
	res, err := c.renderer.Render(ctx, content, req.ImageURL)
	if err != nil {
		return false, c.createFailed(ctx, req, err)
	}
	c.built(ctx, req, res, nil)
	return true, nil
}

// trackUnread marks the record's group unread and appends it to the group's ID list.
func (c *Controller) trackUnread(ctx context.Context, rec domain.Record) {
	if err := c.reads.Mark(ctx, rec.ReadKey(), false, rec.Timestamp); err != nil {
		c.log.Warn("failed to store read status", "notification_id", rec.NotificationID, "error", err)
	}
	if g := rec.GroupNumber(); g > 0 {
		if err := c.reads.AddGroupedID(ctx, g, rec.NotificationID); err != nil {
			c.log.Warn("failed to store grouped id", "notification_id", rec.NotificationID, "group_id", g, "error", err)
		}
	}
}

// CommentNotificationID derives a comment notification ID from t as ddHHmmss.
func CommentNotificationID(t time.Time) int {
	id, err := strconv.Atoi(t.Format("02150405"))
	if err != nil {
		return int(t.Unix() % 100000000)
	}
	return id
}

func (c *Controller) createFailed(ctx context.Context, req domain.Request, err error) error {
	err = fmt.Errorf("lifecycle: create %s %d: %w", req.Kind, req.ID, err)
	c.log.Error("failed to create notification", "notification_id", req.ID, "kind", req.Kind.String(), "error", err)
	c.analytics.RecordException(ctx, err)
	return err
}

func (c *Controller) built(ctx context.Context, req domain.Request, res render.Result, rec *domain.Record) {
	c.log.Info("notification built", "notification_id", res.ID, "kind", req.Kind.String(), "tier", string(res.Tier))
	c.analytics.Track(ctx, analytics.EventNotificationBuilt, map[string]any{
		"notification_id": res.ID,
		"kind":            req.Kind.String(),
		"category_id":     req.CategoryID,
		"tier":            string(res.Tier),
	})
	if rec != nil && c.callbacks.OnNotificationBuilt != nil {
		c.callbacks.OnNotificationBuilt(*rec)
	}
}

// CancelNotification removes the visible notification and its record. Unknown IDs are not an error.
func (c *Controller) CancelNotification(ctx context.Context, id int) error {
	c.init(ctx)
	if err := c.platform.Cancel(ctx, id); err != nil {
		err = fmt.Errorf("lifecycle: cancel %d: %w", id, err)
		c.log.Error("failed to cancel notification", "notification_id", id, "error", err)
		c.analytics.RecordException(ctx, err)
		return err
	}
	if err := c.records.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrRecordNotFound) {
		c.log.Warn("failed to delete record", "notification_id", id, "error", err)
	}
	return nil
}

// RefreshNotifications runs a refresh pass.
func (c *Controller) RefreshNotifications(ctx context.Context) error {
	c.init(ctx)
	_, err := c.refresher.Refresh(ctx)
	return err
}

// LimitNotifications runs a limit pass and returns how many notifications were cancelled.
func (c *Controller) LimitNotifications(ctx context.Context) (int, error) {
	c.init(ctx)
	return c.limiter.Limit(ctx)
}

// VisibleNotifications lists this package's visible notifications, newest first.
func (c *Controller) VisibleNotifications(ctx context.Context) ([]domain.ActiveNotification, error) {
	c.init(ctx)
	if !c.platform.IsBulkEnumerationSupported() {
		return nil, nil
	}
	visible, err := c.platform.ListVisible(ctx, c.device.PackageName())
	if err != nil {
		return nil, fmt.Errorf("lifecycle: list visible: %w", err)
	}
	return domain.SortNewestFirst(domain.FilterByPackage(visible, c.device.PackageName())), nil
}

// Records returns the persisted records, newest first.
func (c *Controller) Records(ctx context.Context) ([]domain.Record, error) {
	records, err := c.records.List(ctx)
	if err != nil {
		return nil, err
	}
	domain.SortRecordsNewestFirst(records)
	return records, nil
}

// CleanupOldRecords deletes records older than the retention period, then drops the read
// statuses and group lists no remaining record refers to. It returns how many records were removed.
func (c *Controller) CleanupOldRecords(ctx context.Context) (int, error) {
	cutoff := c.now().Add(-c.retention).UnixMilli()
	removed, err := c.records.PruneBefore(ctx, cutoff)
	if err != nil {
		return removed, err
	}
	records, err := c.records.List(ctx)
	if err != nil {
		return removed, err
	}
	live := make(map[string]bool, len(records))
	for _, r := range records {
		live[r.ReadKey()] = true
	}
	stale, err := c.reads.Prune(ctx, live)
	if err != nil {
		c.log.Warn("failed to prune read statuses", "error", err)
	} else if stale > 0 {
		c.log.Debug("pruned read statuses", "removed", stale)
	}
	return removed, nil
}

// MarkRead marks every record sharing readKey as read. readKey is a group ID, or the
// notification ID of an ungrouped record.
func (c *Controller) MarkRead(ctx context.Context, readKey string) error {
	if readKey == "" {
		return fmt.Errorf("lifecycle: mark read: %w: empty key", domain.ErrInvalidRequest)
	}
	if err := c.reads.Mark(ctx, readKey, true, c.now().UnixMilli()); err != nil {
		return fmt.Errorf("lifecycle: %w", err)
	}
	c.log.Info("notifications marked read", "read_key", readKey)
	return nil
}

// BadgeCount is the number of records whose group has not been read. A status that
// cannot be read counts as unread.
func (c *Controller) BadgeCount(ctx context.Context) (int, error) {
	records, err := c.records.List(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, r := range records {
		read, err := c.reads.IsRead(ctx, r.ReadKey())
		if err != nil {
			c.log.Warn("failed to read status, counting as unread", "notification_id", r.NotificationID, "error", err)
		}
		if !read {
			count++
		}
	}
	return count, nil
}

// Config returns the current remote settings.
func (c *Controller) Config(ctx context.Context) remoteconfig.Snapshot {
	return c.config.Snapshot(ctx)
}

// IsSilent reports whether recreated notifications are currently posted silently.
func (c *Controller) IsSilent() bool {
	return c.recreator.IsSilent()
}

// Start runs the recurring refresh check until Stop or until ctx is cancelled.
func (c *Controller) Start(ctx context.Context) error {
	c.init(ctx)
	c.schedMu.Lock()
	defer c.schedMu.Unlock()
	if c.sched != nil {
		return nil
	}
	s, err := scheduler.New(c.schedule, c.refreshTick, scheduler.WithLogger(c.log))
	if err != nil {
		return fmt.Errorf("lifecycle: start: %w", err)
	}
	s.Start(ctx)
	c.sched = s
	return nil
}

// Stop halts the recurring check and cancels a pending silent reset.
func (c *Controller) Stop() {
	c.schedMu.Lock()
	s := c.sched
	c.sched = nil
	c.schedMu.Unlock()
	if s != nil {
		s.Stop()
	}
	c.refresher.Stop()
}

// refreshTick refreshes when keep-at-top is on and the platform can enumerate.
func (c *Controller) refreshTick(ctx context.Context) error {
	if !c.config.KeepAtTop(ctx) || !c.platform.IsBulkEnumerationSupported() {
		c.log.Debug("scheduled refresh skipped")
		return nil
	}
	return c.RefreshNotifications(ctx)
}
