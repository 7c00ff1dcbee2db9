package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"posteragent/internal/model"
	"posteragent/internal/workdir"
)

type fakeViewer struct {
	shot          []byte
	expandErr     error
	shotErr       error
	dismissErr    error
	dismissCtxErr error
	calls         []string
}

func (f *fakeViewer) Expand(_ context.Context, h model.ImageHandle) error {
	f.calls = append(f.calls, "expand")
	return f.expandErr
}

func (f *fakeViewer) Screenshot(context.Context) ([]byte, error) {
	f.calls = append(f.calls, "screenshot")
	return f.shot, f.shotErr
}

func (f *fakeViewer) Dismiss(ctx context.Context) error {
	f.calls = append(f.calls, "dismiss")
	f.dismissCtxErr = ctx.Err()
	return f.dismissErr
}

func screenshot(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 30, G: 60, B: uint8(x), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newCapturer(v Viewer) (*Capturer, *workdir.Store, *[]time.Duration) {
	store := workdir.New(afero.NewMemMapFs(), "/work")
	c := New(v, store, 2*time.Second, 1024, 85)
	var slept []time.Duration
	c.sleep = func(d time.Duration) { slept = append(slept, d) }
	return c, store, &slept
}

func TestCaptureStoresRawAndOptimized(t *testing.T) {
	raw := screenshot(t, 1920, 1080)
	v := &fakeViewer{shot: raw}
	c, store, slept := newCapturer(v)

	jpg, err := c.Capture(context.Background(), model.ImageHandle{Index: 4})
	require.NoError(t, err)

	assert.Equal(t, []string{"expand", "screenshot", "dismiss"}, v.calls)
	assert.Equal(t, []time.Duration{2 * time.Second}, *slept)

	stored, err := store.Read(workdir.RawCaptureFile)
	require.NoError(t, err)
	assert.Equal(t, raw, stored)

	opt, err := store.Read(workdir.OptimizedFile)
	require.NoError(t, err)
	assert.Equal(t, jpg, opt)

	img, err := jpeg.Decode(bytes.NewReader(jpg))
	require.NoError(t, err)
	assert.Equal(t, 1024, img.Bounds().Dx())
	assert.Equal(t, 576, img.Bounds().Dy())
}

func TestCaptureDismissesOverlayOnFailure(t *testing.T) {
	tests := []struct {
		name string
		v    *fakeViewer
		want []string
	}{
		{"expand fails", &fakeViewer{expandErr: errors.New("node detached")}, []string{"expand", "dismiss"}},
		{"screenshot fails", &fakeViewer{shotErr: errors.New("target closed")}, []string{"expand", "screenshot", "dismiss"}},
		{"empty screenshot", &fakeViewer{}, []string{"expand", "screenshot", "dismiss"}},
		{"undecodable screenshot", &fakeViewer{shot: []byte("not an image")}, []string{"expand", "screenshot", "dismiss"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newCapturer(tt.v)
			_, err := c.Capture(context.Background(), model.ImageHandle{})
			assert.Error(t, err)
			assert.Equal(t, tt.want, tt.v.calls)
		})
	}
}

func TestCaptureDismissFailure(t *testing.T) {
	v := &fakeViewer{shot: screenshot(t, 10, 10), dismissErr: errors.New("escape lost")}
	c, _, _ := newCapturer(v)

	jpg, err := c.Capture(context.Background(), model.ImageHandle{})
	assert.ErrorContains(t, err, "escape lost")
	assert.Nil(t, jpg)
}

func TestCaptureKeepsFirstError(t *testing.T) {
	v := &fakeViewer{shotErr: errors.New("target closed"), dismissErr: errors.New("escape lost")}
	c, _, _ := newCapturer(v)

	_, err := c.Capture(context.Background(), model.ImageHandle{})
	assert.ErrorContains(t, err, "target closed")
	assert.NotContains(t, err.Error(), "escape lost")
}

func TestCaptureDismissesAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	v := &fakeViewer{shotErr: context.Canceled}
	c, _, _ := newCapturer(v)
	c.sleep = func(time.Duration) { cancel() }

	_, err := c.Capture(ctx, model.ImageHandle{})
	require.Error(t, err)
	assert.Equal(t, []string{"expand", "screenshot", "dismiss"}, v.calls)
	assert.NoError(t, v.dismissCtxErr, "dismiss must get a live context")
}
