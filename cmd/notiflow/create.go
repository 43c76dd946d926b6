package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lokalapp/notiflow/internal/colors"
	"github.com/lokalapp/notiflow/internal/domain"
)

type createClient interface {
	CreateNotification(ctx context.Context, req domain.Request) (bool, error)
}

// createOptions collects the create flags.
type createOptions struct {
	kind         string
	id           int
	group        int
	body         string
	channel      string
	importance   int
	uri          string
	action       string
	tag          string
	imageURL     string
	categoryID   string
	categoryName string
	notifType    string
	grouping     bool
	extras       map[string]string

	matchState string
	team1      string
	team2      string
	score1     string
	score2     string
	status     string
	venue      string

	postID        string
	commentsCount int
}

var notificationTypes = map[string]domain.NotificationType{
	"general":  domain.TypeGeneral,
	"reporter": domain.TypeReporter,
	"comment":  domain.TypeComment,
	"reply":    domain.TypeReply,
	"moengage": domain.TypeMoengage,
}

// NewCreateCmd creates the create command with explicit dependencies.
func NewCreateCmd(client createClient) *cobra.Command {
	if client == nil {
		panic("NewCreateCmd: client dependency cannot be nil")
	}

	opts := createOptions{}

	createCmd := &cobra.Command{
		Use:   "create [OPTIONS] <title>",
		Short: "Post a notification through dedup and limiting",
		Long: `notiflow create - Post a notification

USAGE:
    notiflow create [OPTIONS] <title>

KINDS:
    plain, image, quiz    Deduplicated, limited and persisted for refresh
    cricket               Live score card, replaces itself (id 1001 by default)
    comment               Comment digest, id derived from the current time
    sticky                Ongoing notification

Cricket scores are given as runs/wickets, e.g. --score1 182/4.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && opts.kind != string(domain.KindCricket) {
				return errors.New("create requires a title")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request(strings.Join(args, " "))
			if err != nil {
				return err
			}
			posted, err := client.CreateNotification(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("create failed: %w", err)
			}
			if !posted {
				colors.Warning(fmt.Sprintf("notification %d not posted (duplicate or disabled)", req.ID))
				return nil
			}
			if req.ID == 0 {
				cmd.Printf("Posted %s notification\n", req.Kind)
				return nil
			}
			cmd.Printf("Posted %s notification %d\n", req.Kind, req.ID)
			return nil
		},
	}

	f := createCmd.Flags()
	f.StringVar(&opts.kind, "kind", string(domain.KindPlain), "Kind: plain, image, quiz, cricket, comment, sticky")
	f.IntVar(&opts.id, "id", 0, "Notification ID")
	f.IntVar(&opts.group, "group", 0, "Group ID (0 for none)")
	f.StringVar(&opts.body, "body", "", "Body text")
	f.StringVar(&opts.channel, "channel", "", "Channel (defaults per kind)")
	f.IntVar(&opts.importance, "importance", 0, "Channel importance")
	f.StringVar(&opts.uri, "uri", "", "Deep link opened on tap")
	f.StringVar(&opts.action, "action", "", "Action name")
	f.StringVar(&opts.tag, "tag", "", "Tag")
	f.StringVar(&opts.imageURL, "image", "", "Post image URL")
	f.StringVar(&opts.categoryID, "category-id", "", "Category ID")
	f.StringVar(&opts.categoryName, "category-name", "", "Category display name")
	f.StringVar(&opts.notifType, "type", "general", "Type: general, reporter, comment, reply, moengage")
	f.BoolVar(&opts.grouping, "grouping", true, "Group with notifications sharing the group ID")
	f.StringToStringVar(&opts.extras, "extra", nil, "Extra key=value pairs persisted with the record")
	f.StringVar(&opts.matchState, "match-state", string(domain.MatchPreview), "Cricket match state: PREVIEW, INPROGRESS, COMPLETE")
	f.StringVar(&opts.team1, "team1", "", "Cricket first team as SHORT or SHORT:Full Name")
	f.StringVar(&opts.team2, "team2", "", "Cricket second team as SHORT or SHORT:Full Name")
	f.StringVar(&opts.score1, "score1", "", "Cricket first team score as runs/wickets")
	f.StringVar(&opts.score2, "score2", "", "Cricket second team score as runs/wickets")
	f.StringVar(&opts.status, "status", "", "Cricket status line")
	f.StringVar(&opts.venue, "venue", "", "Cricket venue")
	f.StringVar(&opts.postID, "post-id", "", "Comment post ID")
	f.IntVar(&opts.commentsCount, "comments-count", 0, "Comment count")

	return createCmd
}

// request builds the domain request described by the flags.
func (o createOptions) request(title string) (domain.Request, error) {
	kind, err := domain.ParseRequestKind(o.kind)
	if err != nil {
		return domain.Request{}, err
	}
	typ, ok := notificationTypes[strings.ToLower(o.notifType)]
	if !ok {
		return domain.Request{}, fmt.Errorf("%w: unknown type %q", domain.ErrInvalidRequest, o.notifType)
	}

	b := domain.NewRequest(kind).
		ID(o.id).
		Group(o.group).
		Title(strings.TrimSpace(title)).
		Body(o.body).
		Channel(o.channel).
		Importance(o.importance).
		URI(o.uri).
		Action(o.action).
		Tag(o.tag).
		ImageURL(o.imageURL).
		Category(o.categoryID, o.categoryName).
		Type(typ).
		Grouping(o.grouping)
	for k, v := range o.extras {
		b.Extra(k, v)
	}

	switch kind {
	case domain.KindCricket:
		b.Cricket(domain.Cricket{
			State:  domain.MatchState(o.matchState),
			Team1:  parseTeam(o.team1, o.score1),
			Team2:  parseTeam(o.team2, o.score2),
			Status: o.status,
			Venue:  o.venue,
		})
	case domain.KindComment:
		b.Comment(domain.Comment{PostID: o.postID, CommentsCount: o.commentsCount})
	}
	return b.Build()
}

// parseTeam reads "SHORT[:Full Name]" and "runs/wickets[/overs]".
func parseTeam(team, score string) domain.TeamScore {
	short, name, _ := strings.Cut(team, ":")
	t := domain.TeamScore{ShortName: strings.TrimSpace(short), Name: strings.TrimSpace(name)}
	parts := strings.SplitN(score, "/", 3)
	t.Score = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		t.Wickets = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		t.Overs = strings.TrimSpace(parts[2])
	}
	return t
}
