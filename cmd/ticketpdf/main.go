// Command ticketpdf renders a QR ticket sheet from a list of ticket keys,
// one per line, without going through the console.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/votedesk/console/internal/tickets"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "ticketpdf:", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stderr io.Writer) error {
	fs := flag.NewFlagSet("ticketpdf", flag.ContinueOnError)
	fs.SetOutput(stderr)

	layout := tickets.DefaultLayout
	var (
		keysPath  = fs.StringP("keys", "k", "-", "file with one ticket key per line (- for stdin)")
		outPath   = fs.StringP("out", "o", "tickets-qr.pdf", "output PDF path")
		frontURL  = fs.String("front-url", os.Getenv("FRONT_URL"), "voter site base URL embedded in each code")
		imageSize = fs.Int("image-size", tickets.DefaultImageSize, "QR image resolution in pixels")
		dryRun    = fs.Bool("dry-run", false, "print the page plan instead of writing a PDF")
	)
	fs.Float64Var(&layout.CodeSize, "code-size", layout.CodeSize, "code edge length in mm")
	fs.Float64Var(&layout.Gap, "gap", layout.Gap, "gap between codes in mm")
	fs.IntVar(&layout.Cols, "cols", layout.Cols, "codes per row")
	fs.IntVar(&layout.RowsPerPage, "rows", layout.RowsPerPage, "rows per page")
	fs.Float64Var(&layout.PageWidth, "page-width", layout.PageWidth, "page width in mm")
	fs.Float64Var(&layout.PageHeight, "page-height", layout.PageHeight, "page height in mm")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *frontURL == "" {
		return fmt.Errorf("--front-url (or FRONT_URL) is required")
	}
	if err := layout.Validate(); err != nil {
		return err
	}

	keys, err := readKeys(*keysPath, stdin)
	if err != nil {
		return err
	}

	if *dryRun {
		fmt.Fprintf(stderr, "%d keys, %d per page, %d pages\n", len(keys), layout.PerPage(), layout.PageCount(len(keys)))
		for _, p := range layout.Plan(keys) {
			fmt.Fprintf(stderr, "%s\tpage=%d col=%d row=%d x=%.1f y=%.1f\n", p.Key, p.Page, p.Col, p.Row, p.X, p.Y)
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out, err := os.Create(*outPath)
	if err != nil {
		return err
	}
	r := &tickets.Renderer{Layout: layout, FrontURL: *frontURL, ImageSize: *imageSize}
	if err := r.Render(ctx, out, keys); err != nil {
		_ = out.Close()
		_ = os.Remove(*outPath)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stderr, "wrote %s: %d codes on %d pages\n", *outPath, len(keys), layout.PageCount(len(keys)))
	return nil
}

func readKeys(path string, stdin io.Reader) ([]string, error) {
	src := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		src = f
	}
	var keys []string
	sc := bufio.NewScanner(src)
	for sc.Scan() {
		if k := strings.TrimSpace(sc.Text()); k != "" {
			keys = append(keys, k)
		}
	}
	return keys, sc.Err()
}
