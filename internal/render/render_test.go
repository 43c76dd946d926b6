package render

import (
	"context"
	"errors"
	"testing"

	"github.com/lokalapp/notiflow/internal/domain"
	"github.com/lokalapp/notiflow/internal/logging"
	"github.com/lokalapp/notiflow/internal/ports"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const url = "https://cdn.example.com/post.jpg"

func hasImage(image, blurred bool) any {
	return mock.MatchedBy(func(c domain.Content) bool {
		return (len(c.Image) > 0) == image && (len(c.BlurredImage) > 0) == blurred
	})
}

func TestRenderImageWithBlur(t *testing.T) {
	platform := new(ports.MockPlatformNotifier)
	platform.On("Create", mock.Anything, hasImage(true, true)).Return(7, nil)
	fetcher := new(ports.MockImageFetcher)
	fetcher.On("Fetch", mock.Anything, url).Return([]byte("img"), nil).Once()
	fetcher.On("FetchBlurred", mock.Anything, url, BlurRadius, BlurSampling).Return([]byte("blur"), nil).Once()

	res, err := New(platform, fetcher, WithLogger(logging.Nop())).Render(context.Background(), domain.Content{ID: 7}, url)
	require.NoError(t, err)
	require.Equal(t, Result{ID: 7, Tier: TierImageBlur}, res)
	fetcher.AssertExpectations(t)
}

func TestRenderBlurFailureKeepsImage(t *testing.T) {
	platform := new(ports.MockPlatformNotifier)
	platform.On("Create", mock.Anything, hasImage(true, false)).Return(7, nil)
	fetcher := new(ports.MockImageFetcher)
	fetcher.On("Fetch", mock.Anything, url).Return([]byte("img"), nil).Once()
	fetcher.On("FetchBlurred", mock.Anything, url, BlurRadius, BlurSampling).Return(nil, errors.New("oom"))

	res, err := New(platform, fetcher, WithLogger(logging.Nop())).Render(context.Background(), domain.Content{ID: 7}, url)
	require.NoError(t, err)
	require.Equal(t, TierImage, res.Tier)
	fetcher.AssertNumberOfCalls(t, "Fetch", 1)
	platform.AssertNumberOfCalls(t, "Create", 1)
}

func TestRenderFetchFailureFallsBackToPlain(t *testing.T) {
	platform := new(ports.MockPlatformNotifier)
	platform.On("Create", mock.Anything, hasImage(false, false)).Return(7, nil)
	fetcher := new(ports.MockImageFetcher)
	fetcher.On("Fetch", mock.Anything, url).Return(nil, errors.New("404"))

	res, err := New(platform, fetcher, WithLogger(logging.Nop())).Render(context.Background(), domain.Content{ID: 7}, url)
	require.NoError(t, err)
	require.Equal(t, TierPlain, res.Tier)
	fetcher.AssertNumberOfCalls(t, "Fetch", 1)
	fetcher.AssertNotCalled(t, "FetchBlurred", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRenderCreateFailureDegrades(t *testing.T) {
	platform := new(ports.MockPlatformNotifier)
	platform.On("Create", mock.Anything, hasImage(true, true)).Return(0, errors.New("too large"))
	platform.On("Create", mock.Anything, hasImage(true, false)).Return(7, nil)
	fetcher := new(ports.MockImageFetcher)
	fetcher.On("Fetch", mock.Anything, url).Return([]byte("img"), nil)
	fetcher.On("FetchBlurred", mock.Anything, url, BlurRadius, BlurSampling).Return([]byte("blur"), nil)

	res, err := New(platform, fetcher, WithLogger(logging.Nop())).Render(context.Background(), domain.Content{ID: 7}, url)
	require.NoError(t, err)
	require.Equal(t, TierImage, res.Tier)
	fetcher.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestRenderWithoutURLSkipsFetcher(t *testing.T) {
	platform := new(ports.MockPlatformNotifier)
	platform.On("Create", mock.Anything, hasImage(false, false)).Return(3, nil)
	fetcher := new(ports.MockImageFetcher)

	res, err := New(platform, fetcher, WithLogger(logging.Nop())).Render(context.Background(), domain.Content{ID: 3}, "")
	require.NoError(t, err)
	require.Equal(t, TierPlain, res.Tier)
	fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestRenderNilFetcher(t *testing.T) {
	platform := new(ports.MockPlatformNotifier)
	platform.On("Create", mock.Anything, hasImage(false, false)).Return(3, nil)

	res, err := New(platform, nil, WithLogger(logging.Nop())).Render(context.Background(), domain.Content{ID: 3}, url)
	require.NoError(t, err)
	require.Equal(t, TierPlain, res.Tier)
}

func TestRenderAllTiersFail(t *testing.T) {
	boom := errors.New("platform down")
	platform := new(ports.MockPlatformNotifier)
	platform.On("Create", mock.Anything, mock.Anything).Return(0, boom)

	_, err := New(platform, nil, WithLogger(logging.Nop())).Render(context.Background(), domain.Content{ID: 3}, "")
	require.ErrorIs(t, err, boom)
}
