package tickets

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
)

// DefaultImageSize is the QR image resolution in pixels.
const DefaultImageSize = 200

// Renderer draws ticket sheets as PDF.
type Renderer struct {
	Layout    Layout
	FrontURL  string
	ImageSize int
}

// NewRenderer returns a renderer with the default layout.
func NewRenderer(frontURL string) *Renderer {
	return &Renderer{Layout: DefaultLayout, FrontURL: frontURL, ImageSize: DefaultImageSize}
}

// Render writes one PDF holding a QR code per key. An empty batch still
// produces a document with one blank page.
func (r *Renderer) Render(ctx context.Context, w io.Writer, keys []string) error {
	if err := r.Layout.Validate(); err != nil {
		return err
	}
	size := r.ImageSize
	if size <= 0 {
		size = DefaultImageSize
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: r.Layout.PageWidth, Ht: r.Layout.PageHeight},
	})
	pdf.SetCreator("votedesk console", true)
	pdf.SetTitle("Ticket QR codes", true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)

	placements := r.Layout.Plan(keys)
	if len(placements) == 0 {
		pdf.AddPage()
	}

	page := -1
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	for _, p := range placements {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.Page != page {
			pdf.AddPage()
			page = p.Page
		}
		png, err := EncodeQR(PayloadURL(r.FrontURL, p.Key), size)
		if err != nil {
			return fmt.Errorf("encode ticket %d: %w", p.Index, err)
		}
		name := fmt.Sprintf("ticket-%d", p.Index)
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
		pdf.ImageOptions(name, p.X, p.Y, r.Layout.CodeSize, r.Layout.CodeSize, false, opts, 0, "")
		if pdf.Err() {
			return fmt.Errorf("place ticket %d: %w", p.Index, pdf.Error())
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// EncodeQR renders content as a borderless square PNG.
func EncodeQR(content string, size int) ([]byte, error) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	qr.DisableBorder = true
	return qr.PNG(size)
}
