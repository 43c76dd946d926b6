// Package domain provides the domain layer for notifications.
// It contains the persisted record, the platform view of a posted notification,
// and the request types accepted by the lifecycle controller.
package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Extras keys attached to every posted notification.
const (
	ExtraTimestamp = "notification_time_extra"
	ExtraRefreshID = "notification_refresh_id_extra"
)

// UngroupedID is the GroupID of a record that belongs to no group.
const UngroupedID = "0"

// NotificationType classifies the origin of a notification.
type NotificationType int

const (
	TypeGeneral NotificationType = iota
	TypeReporter
	TypeComment
	TypeReply
	TypeMoengage
)

// IsValid checks if the notification type is known.
func (t NotificationType) IsValid() bool {
	return t >= TypeGeneral && t <= TypeMoengage
}

// String returns the string representation of the type.
func (t NotificationType) String() string {
	switch t {
	case TypeGeneral:
		return "general"
	case TypeReporter:
		return "reporter"
	case TypeComment:
		return "comment"
	case TypeReply:
		return "reply"
	case TypeMoengage:
		return "moengage"
	default:
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

// Record is the persisted description of a notification that was built.
// NotificationID joins a record with the visible notification it produced.
type Record struct {
	NotificationID   int              `json:"notificationId"`
	Title            string           `json:"title"`
	Body             string           `json:"body"`
	PostImageURL     string           `json:"postImage,omitempty"`
	GroupID          string           `json:"groupId"`
	Action           string           `json:"action"`
	CategoryID       string           `json:"categoryId"`
	CategoryName     string           `json:"categoryName"`
	URI              string           `json:"uri"`
	Tag              string           `json:"tag"`
	Extra            string           `json:"extra"`
	NotificationType NotificationType `json:"notificationType"`
	Timestamp        int64            `json:"timestamp"`
}

// Validate validates the record and returns an error if invalid.
func (r Record) Validate() error {
	if r.NotificationID == 0 {
		return fmt.Errorf("%w: %d", ErrInvalidNotificationID, r.NotificationID)
	}
	if r.Timestamp <= 0 {
		return fmt.Errorf("record %d: timestamp must be positive", r.NotificationID)
	}
	if !r.NotificationType.IsValid() {
		return fmt.Errorf("record %d: invalid notification type %d", r.NotificationID, r.NotificationType)
	}
	return nil
}

// GroupNumber returns the numeric group ID, or 0 when ungrouped or not numeric.
func (r Record) GroupNumber() int {
	n, err := strconv.Atoi(strings.TrimSpace(r.GroupID))
	if err != nil {
		return 0
	}
	return n
}

// ReadKey identifies the read state shared by every record of a group. Ungrouped
// records are tracked by their own notification ID.
func (r Record) ReadKey() string {
	if g := r.GroupNumber(); g > 0 {
		return strconv.Itoa(g)
	}
	return strconv.Itoa(r.NotificationID)
}

// ExtraFields decodes Extra. Malformed or empty JSON yields an empty map.
func (r Record) ExtraFields() map[string]any {
	fields := map[string]any{}
	if strings.TrimSpace(r.Extra) == "" {
		return fields
	}
	if err := json.Unmarshal([]byte(r.Extra), &fields); err != nil || fields == nil {
		return map[string]any{}
	}
	return fields
}

// Content is everything handed to the platform to post a notification.
type Content struct {
	ID           int
	Kind         RequestKind
	Channel      string
	Importance   int
	Title        string
	Body         string
	URI          string
	Action       string
	CategoryID   string
	CategoryName string
	Tag          string
	GroupKey     string
	Image        []byte
	BlurredImage []byte
	Silent       bool
	Ongoing      bool
	Extras       map[string]string
}

// WithExtra returns a copy of c with key set in its extras.
func (c Content) WithExtra(key, value string) Content {
	extras := make(map[string]string, len(c.Extras)+1)
	for k, v := range c.Extras {
		extras[k] = v
	}
	extras[key] = value
	c.Extras = extras
	return c
}

// Stamp returns a copy of c carrying the ordering timestamp and refresh key extras.
func (c Content) Stamp(timestampMillis int64) Content {
	c = c.WithExtra(ExtraTimestamp, strconv.FormatInt(timestampMillis, 10))
	return c.WithExtra(ExtraRefreshID, strconv.Itoa(c.ID))
}

// ActiveNotification is the platform's view of a posted notification. It is never persisted.
type ActiveNotification struct {
	ID          int
	PackageName string
	Timestamp   int64
	RefreshKey  int
	Content     Content
}

// ViewOf builds the view the platform reports for content posted by packageName.
// Timestamp and RefreshKey are read back from the content extras.
func ViewOf(packageName string, c Content) ActiveNotification {
	view := ActiveNotification{ID: c.ID, PackageName: packageName, Content: c}
	if ts, err := strconv.ParseInt(c.Extras[ExtraTimestamp], 10, 64); err == nil {
		view.Timestamp = ts
	}
	if key, err := strconv.Atoi(c.Extras[ExtraRefreshID]); err == nil {
		view.RefreshKey = key
	}
	return view
}
