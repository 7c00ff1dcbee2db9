package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"posteragent/internal/config"
	"posteragent/internal/model"
)

type fakeLister struct {
	handles []model.ImageHandle
	err     error
}

func (f fakeLister) Attachments(context.Context) ([]model.ImageHandle, error) {
	return f.handles, f.err
}

func handles(n int) []model.ImageHandle {
	out := make([]model.ImageHandle, n)
	for i := range out {
		out[i] = model.ImageHandle{Selector: "img", Index: i, Total: n}
	}
	return out
}

func TestLatestPosterPicksLast(t *testing.T) {
	h, err := LatestPoster(context.Background(), fakeLister{handles: handles(3)})
	require.NoError(t, err)
	assert.Equal(t, 2, h.Index)
	assert.Equal(t, 3, h.Total)
}

func TestLatestPosterSingle(t *testing.T) {
	h, err := LatestPoster(context.Background(), fakeLister{handles: handles(1)})
	require.NoError(t, err)
	assert.Equal(t, 0, h.Index)
}

func TestLatestPosterNone(t *testing.T) {
	_, err := LatestPoster(context.Background(), fakeLister{})
	assert.ErrorIs(t, err, model.ErrPosterNotFound)
}

func TestLatestPosterListingFailure(t *testing.T) {
	boom := errors.New("target closed")
	_, err := LatestPoster(context.Background(), fakeLister{err: boom})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, model.ErrPosterNotFound)
}

func TestShortSource(t *testing.T) {
	assert.Equal(t, "blob:https://web.example/1", shortSource("blob:https://web.example/1"))

	long := "data:image/jpeg;base64," + strings.Repeat("A", 200)
	got := shortSource(long)
	assert.Len(t, got, 67)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestHandleSelector(t *testing.T) {
	cfg := config.DefaultConfig().Chat
	c := &Client{cfg: cfg}

	assert.Equal(t, "#main .msg img", c.handleSelector(model.ImageHandle{Selector: "#main .msg img", Index: 1}))
	assert.Equal(t, cfg.Selectors.Images, c.handleSelector(model.ImageHandle{Index: 1}))
}
