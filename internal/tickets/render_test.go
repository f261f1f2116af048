package tickets

import (
	"bytes"
	"context"
	"image/png"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pageObject = regexp.MustCompile(`/Type\s*/Page[^s]`)

func countPages(pdf []byte) int {
	return len(pageObject.FindAll(pdf, -1))
}

func TestEncodeQR(t *testing.T) {
	raw, err := EncodeQR(PayloadURL("https://vote.example.org", "K1"), DefaultImageSize)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	b := img.Bounds()
	assert.Equal(t, b.Dx(), b.Dy())
}

func TestRenderProducesPDF(t *testing.T) {
	r := NewRenderer("https://vote.example.org")

	var buf bytes.Buffer
	require.NoError(t, r.Render(context.Background(), &buf, keys(55)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Equal(t, 2, countPages(buf.Bytes()))
}

func TestRenderEmptyBatchHasOnePage(t *testing.T) {
	r := NewRenderer("https://vote.example.org")

	var buf bytes.Buffer
	require.NoError(t, r.Render(context.Background(), &buf, nil))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Equal(t, 1, countPages(buf.Bytes()))
}

func TestRenderStopsOnCancel(t *testing.T) {
	r := NewRenderer("https://vote.example.org")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	assert.ErrorIs(t, r.Render(ctx, &buf, keys(3)), context.Canceled)
	assert.Zero(t, buf.Len())
}

func TestRenderRejectsInvalidLayout(t *testing.T) {
	r := NewRenderer("https://vote.example.org")
	r.Layout.Cols = 0

	var buf bytes.Buffer
	assert.Error(t, r.Render(context.Background(), &buf, keys(1)))
}
