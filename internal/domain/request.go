package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RequestKind names the shape of a notification request.
type RequestKind string

const (
	KindPlain   RequestKind = "plain"
	KindImage   RequestKind = "image"
	KindQuiz    RequestKind = "quiz"
	KindCricket RequestKind = "cricket"
	KindComment RequestKind = "comment"
	KindSticky  RequestKind = "sticky"
)

// IsValid checks if the kind is known.
func (k RequestKind) IsValid() bool {
	switch k {
	case KindPlain, KindImage, KindQuiz, KindCricket, KindComment, KindSticky:
		return true
	default:
		return false
	}
}

// String returns the string representation of the kind.
func (k RequestKind) String() string {
	return string(k)
}

// ParseRequestKind converts a user supplied kind name.
func ParseRequestKind(s string) (RequestKind, error) {
	k := RequestKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, s)
	}
	return k, nil
}

// Admitted reports whether requests of this kind go through dedup and limiting,
// and are persisted for later refresh.
func (k RequestKind) Admitted() bool {
	return k == KindPlain || k == KindImage || k == KindQuiz
}

func (k RequestKind) defaultChannel() string {
	switch k {
	case KindSticky:
		return "Sticky"
	case KindComment:
		return "Comments"
	case KindCricket:
		return "Cricket"
	default:
		return "default"
	}
}

// MatchState is the phase of a cricket match.
type MatchState string

const (
	MatchPreview    MatchState = "PREVIEW"
	MatchInProgress MatchState = "INPROGRESS"
	MatchComplete   MatchState = "COMPLETE"
)

// TeamScore is one side of a cricket score card.
type TeamScore struct {
	Name      string
	ShortName string
	IconURL   string
	Score     string
	Wickets   string
	Overs     string
}

func (t TeamScore) line() string {
	s := fmt.Sprintf("%s %s/%s", t.ShortName, t.Score, t.Wickets)
	if t.Overs != "" {
		s += " (" + t.Overs + ")"
	}
	return s
}

// Cricket carries the fields of a cricket score notification.
type Cricket struct {
	State  MatchState
	Team1  TeamScore
	Team2  TeamScore
	Status string
	Venue  string
}

// Comment carries the fields of a comment notification.
type Comment struct {
	PostID        string
	ReporterID    int
	UserID        string
	PostCount     int
	CommentsCount int
	Interval      string
}

// Request is a validated, immutable notification request. Build one with NewRequest.
type Request struct {
	Kind             RequestKind
	ID               int
	GroupID          int
	Title            string
	Body             string
	Channel          string
	Importance       int
	URI              string
	Action           string
	CategoryID       string
	CategoryName     string
	Tag              string
	ImageURL         string
	Grouping         bool
	NotificationType NotificationType
	Cricket          *Cricket
	Comment          *Comment
	extra            map[string]string
}

// Extra returns a copy of the request's extra key/value pairs.
func (r Request) Extra() map[string]string {
	out := make(map[string]string, len(r.extra))
	for k, v := range r.extra {
		out[k] = v
	}
	return out
}

// WithID returns a copy of r carrying id. Used when the controller assigns IDs.
func (r Request) WithID(id int) Request {
	r.ID = id
	return r
}

// Content returns the platform content for r, without images or ordering extras.
func (r Request) Content() Content {
	c := Content{
		ID:           r.ID,
		Kind:         r.Kind,
		Channel:      r.Channel,
		Importance:   r.Importance,
		Title:        r.Title,
		Body:         r.Body,
		URI:          r.URI,
		Action:       r.Action,
		CategoryID:   r.CategoryID,
		CategoryName: r.CategoryName,
		Tag:          r.Tag,
		Ongoing:      r.Kind == KindSticky,
		Extras:       r.Extra(),
	}
	if r.Grouping && r.GroupID > 0 {
		c.GroupKey = strconv.Itoa(r.GroupID)
	}
	switch r.Kind {
	case KindCricket:
		c.Title, c.Body = r.Cricket.summary()
	case KindComment:
		c.GroupKey = ""
		if r.Grouping {
			c.GroupKey = "comments_group_notification"
		}
		c.Extras["post_id"] = r.Comment.PostID
		c.Extras["comments_count"] = strconv.Itoa(r.Comment.CommentsCount)
	}
	return c
}

func (c *Cricket) summary() (string, string) {
	title := fmt.Sprintf("%s vs %s", c.Team1.ShortName, c.Team2.ShortName)
	if c.State == MatchPreview {
		body := c.Status
		if c.Venue != "" {
			body = strings.TrimSpace(body + " · " + c.Venue)
		}
		return title, body
	}
	return title, c.Team1.line() + " | " + c.Team2.line()
}

// Record returns the record persisted for r at timestampMillis.
// The extra JSON carries body and categoryName so a record can be rebuilt
// even when those fields are cleared upstream.
func (r Request) Record(timestampMillis int64) Record {
	extra := r.Extra()
	if r.Body != "" {
		extra["body"] = r.Body
	}
	if r.CategoryName != "" {
		extra["categoryName"] = r.CategoryName
	}
	raw, err := json.Marshal(extra)
	if err != nil {
		raw = []byte("{}")
	}
	groupID := UngroupedID
	if r.GroupID > 0 {
		groupID = strconv.Itoa(r.GroupID)
	}
	return Record{
		NotificationID:   r.ID,
		Title:            r.Title,
		Body:             r.Body,
		PostImageURL:     r.ImageURL,
		GroupID:          groupID,
		Action:           r.Action,
		CategoryID:       r.CategoryID,
		CategoryName:     r.CategoryName,
		URI:              r.URI,
		Tag:              r.Tag,
		Extra:            string(raw),
		NotificationType: r.NotificationType,
		Timestamp:        timestampMillis,
	}
}

// RequestBuilder assembles a Request. The zero value is not usable; call NewRequest.
type RequestBuilder struct {
	req Request
}

// NewRequest starts a request of the given kind.
func NewRequest(kind RequestKind) *RequestBuilder {
	return &RequestBuilder{req: Request{Kind: kind, extra: map[string]string{}}}
}

func (b *RequestBuilder) ID(id int) *RequestBuilder           { b.req.ID = id; return b }
func (b *RequestBuilder) Group(id int) *RequestBuilder        { b.req.GroupID = id; return b }
func (b *RequestBuilder) Title(s string) *RequestBuilder      { b.req.Title = s; return b }
func (b *RequestBuilder) Body(s string) *RequestBuilder       { b.req.Body = s; return b }
func (b *RequestBuilder) Channel(s string) *RequestBuilder    { b.req.Channel = s; return b }
func (b *RequestBuilder) Importance(n int) *RequestBuilder    { b.req.Importance = n; return b }
func (b *RequestBuilder) URI(s string) *RequestBuilder        { b.req.URI = s; return b }
func (b *RequestBuilder) Action(s string) *RequestBuilder     { b.req.Action = s; return b }
func (b *RequestBuilder) Tag(s string) *RequestBuilder        { b.req.Tag = s; return b }
func (b *RequestBuilder) ImageURL(s string) *RequestBuilder   { b.req.ImageURL = s; return b }
func (b *RequestBuilder) Grouping(on bool) *RequestBuilder    { b.req.Grouping = on; return b }
func (b *RequestBuilder) Cricket(c Cricket) *RequestBuilder   { b.req.Cricket = &c; return b }
func (b *RequestBuilder) Comment(c Comment) *RequestBuilder   { b.req.Comment = &c; return b }
func (b *RequestBuilder) Type(t NotificationType) *RequestBuilder {
	b.req.NotificationType = t
	return b
}

// Category sets the category ID and display name.
func (b *RequestBuilder) Category(id, name string) *RequestBuilder {
	b.req.CategoryID = id
	b.req.CategoryName = name
	return b
}

// Extra adds an opaque key/value pair persisted with the record.
func (b *RequestBuilder) Extra(key, value string) *RequestBuilder {
	b.req.extra[key] = value
	return b
}

// Build validates the accumulated fields and returns the request.
func (b *RequestBuilder) Build() (Request, error) {
	r := b.req
	r.extra = r.Extra()
	if r.Channel == "" {
		r.Channel = r.Kind.defaultChannel()
	}
	if r.Kind == KindComment && r.NotificationType == TypeGeneral {
		r.NotificationType = TypeComment
	}
	if r.Cricket != nil {
		c := *r.Cricket
		c.State = MatchState(strings.ToUpper(strings.TrimSpace(string(c.State))))
		if c.State == "" {
			c.State = MatchPreview
		}
		r.Cricket = &c
	}
	if r.Comment != nil {
		c := *r.Comment
		r.Comment = &c
	}
	if err := r.validate(); err != nil {
		return Request{}, err
	}
	return r, nil
}

func (r Request) validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrInvalidRequest, r.Kind, fmt.Sprintf(format, args...))
	}
	if !r.Kind.IsValid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, r.Kind)
	}
	if !r.NotificationType.IsValid() {
		return invalid("unknown notification type %d", r.NotificationType)
	}
	if r.GroupID < 0 {
		return invalid("group id must not be negative")
	}
	switch r.Kind {
	case KindPlain, KindImage, KindQuiz, KindSticky:
		if r.ID == 0 {
			return invalid("id is required")
		}
	}
	if r.Kind != KindCricket && strings.TrimSpace(r.Title) == "" {
		return invalid("title is required")
	}
	switch r.Kind {
	case KindImage:
		if strings.TrimSpace(r.ImageURL) == "" {
			return invalid("image url is required")
		}
	case KindCricket:
		if r.Cricket == nil {
			return invalid("match details are required")
		}
		c := r.Cricket
		if c.Team1.ShortName == "" || c.Team2.ShortName == "" {
			return invalid("team short names are required")
		}
		switch c.State {
		case MatchPreview:
		case MatchInProgress, MatchComplete:
			if c.Team1.Name == "" || c.Team2.Name == "" {
				return invalid("team names are required for %s", c.State)
			}
		default:
			return invalid("unknown match state %q", c.State)
		}
	case KindComment:
		if r.Comment == nil || strings.TrimSpace(r.Comment.PostID) == "" {
			return invalid("post id is required")
		}
	}
	return nil
}
