package recreator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lokalapp/notiflow/internal/domain"
	"github.com/lokalapp/notiflow/internal/logging"
	"github.com/lokalapp/notiflow/internal/ports"
	"github.com/lokalapp/notiflow/internal/render"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixed = time.UnixMilli(1_700_000_000_000)

func newRecreator(platform ports.PlatformNotifier, fetcher ports.ImageFetcher) *Recreator {
	renderer := render.New(platform, fetcher, render.WithLogger(logging.Nop()))
	return New(renderer, WithLogger(logging.Nop()), WithClock(func() time.Time { return fixed }))
}

func TestRecreateBlurFailureUsesImageTier(t *testing.T) {
	rec := domain.Record{NotificationID: 9, Title: "t", Body: "b", PostImageURL: "https://x/y.png", GroupID: "0", Timestamp: 1}

	platform := new(ports.MockPlatformNotifier)
	platform.On("Create", mock.Anything, mock.MatchedBy(func(c domain.Content) bool {
		return len(c.Image) > 0 && len(c.BlurredImage) == 0
	})).Return(9, nil)
	fetcher := new(ports.MockImageFetcher)
	fetcher.On("Fetch", mock.Anything, rec.PostImageURL).Return([]byte("png"), nil)
	fetcher.On("FetchBlurred", mock.Anything, rec.PostImageURL, 20, 3).Return(nil, errors.New("blur failed"))

	require.NoError(t, newRecreator(platform, fetcher).Recreate(context.Background(), rec))
	platform.AssertNumberOfCalls(t, "Create", 1)
}

func TestRecreateIsSilentAndStamped(t *testing.T) {
	rec := domain.Record{NotificationID: 4, Title: "t", GroupID: "12", Timestamp: 1}

	var posted domain.Content
	platform := new(ports.MockPlatformNotifier)
	platform.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { posted = args.Get(1).(domain.Content) }).
		Return(4, nil)

	r := newRecreator(platform, nil)
	require.False(t, r.IsSilent())
	require.NoError(t, r.Recreate(context.Background(), rec))

	require.True(t, posted.Silent)
	require.True(t, r.IsSilent())
	require.Equal(t, "1700000000000", posted.Extras[domain.ExtraTimestamp])
	require.Equal(t, "4", posted.Extras[domain.ExtraRefreshID])
	require.Equal(t, "12", posted.GroupKey)

	r.ResetSilent()
	require.False(t, r.IsSilent())
}

func TestRecreateReturnsPlatformError(t *testing.T) {
	platform := new(ports.MockPlatformNotifier)
	platform.On("Create", mock.Anything, mock.Anything).Return(0, errors.New("denied"))

	err := newRecreator(platform, nil).Recreate(context.Background(), domain.Record{NotificationID: 1, Timestamp: 1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "denied")
}

func TestContentForFallsBackToExtra(t *testing.T) {
	rec := domain.Record{
		NotificationID: 2,
		Title:          "t",
		Extra:          `{"body":"from extra","categoryName":"Sports","post_id":"p1","count":3}`,
		GroupID:        "0",
	}
	c := ContentFor(rec)
	require.Equal(t, "from extra", c.Body)
	require.Equal(t, "Sports", c.CategoryName)
	require.Equal(t, "p1", c.Extras["post_id"])
	require.NotContains(t, c.Extras, "count")
	require.Empty(t, c.GroupKey)
	require.Equal(t, domain.KindPlain, c.Kind)

	rec.Body = "own"
	require.Equal(t, "own", ContentFor(rec).Body)
}

func TestContentForToleratesMalformedExtra(t *testing.T) {
	c := ContentFor(domain.Record{NotificationID: 2, Title: "t", Body: "", Extra: "{not json", PostImageURL: "u"})
	require.Empty(t, c.Body)
	require.Equal(t, domain.KindImage, c.Kind)
	require.Empty(t, c.Extras)
}
