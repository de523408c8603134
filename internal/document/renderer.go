package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
)

// DefaultDPI is the rendering resolution used when none is configured.
const DefaultDPI = 300

// ErrRendererNotFound is returned when no page renderer is installed.
var ErrRendererNotFound = errors.New("PDF page renderer not found")

// lookPath is the exec.LookPath implementation used to find pdftoppm.
// Tests replace it to simulate a missing binary.
var lookPath = exec.LookPath

// PageRenderer rasterizes single PDF pages.
type PageRenderer interface {
	// Name identifies the renderer.
	Name() string

	// Check reports whether the renderer can run. A missing renderer fails
	// with ErrRendererNotFound.
	Check(ctx context.Context) error

	// RenderPage renders the 1-based page of the PDF at path.
	RenderPage(ctx context.Context, path string, page int, opts RenderOptions) (image.Image, error)
}

// PageCounter is implemented by renderers that can read a document's page
// count on their own. The importer uses it for documents its parser does not
// support, such as PDF 2.0 files or AES-256 encryption.
type PageCounter interface {
	// PageCount returns the number of pages of the PDF at path. It fails with
	// ErrEncryptedDocument when the password is missing or wrong.
	PageCount(ctx context.Context, path, password string) (int, error)
}

// RenderOptions controls page rendering.
type RenderOptions struct {
	// DPI is the output resolution. Zero means DefaultDPI.
	DPI int

	// Password opens encrypted documents.
	Password string
}

// Pdftoppm renders pages with poppler's pdftoppm program, one page per
// invocation:
//
//	pdftoppm -png -r <dpi> -f <n> -l <n> -singlefile [-upw <pw>] <in.pdf> <outprefix>
type Pdftoppm struct {
	binary string
	logger zerolog.Logger
}

// NewPdftoppm returns a renderer. An empty binary means "pdftoppm" on PATH.
func NewPdftoppm(binary string, logger zerolog.Logger) *Pdftoppm {
	if binary == "" {
		binary = "pdftoppm"
	}
	return &Pdftoppm{
		binary: binary,
		logger: logger.With().Str("renderer", "pdftoppm").Logger(),
	}
}

// Name implements PageRenderer.
func (p *Pdftoppm) Name() string { return "pdftoppm" }

// Path returns the resolved binary path, or an error wrapping
// ErrRendererNotFound.
func (p *Pdftoppm) Path() (string, error) {
	if strings.ContainsAny(p.binary, `/\`) {
		if _, err := os.Stat(p.binary); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrRendererNotFound, p.binary, err)
		}
		return p.binary, nil
	}
	path, err := lookPath(p.binary)
	if err != nil {
		return "", fmt.Errorf("%w: %s is not on PATH (install poppler-utils)", ErrRendererNotFound, p.binary)
	}
	return path, nil
}

// Check implements PageRenderer.
func (p *Pdftoppm) Check(_ context.Context) error {
	_, err := p.Path()
	return err
}

// Version returns the first line of `pdftoppm -v`, which poppler prints to
// stderr.
func (p *Pdftoppm) Version(ctx context.Context) (string, error) {
	path, err := p.Path()
	if err != nil {
		return "", err
	}
	out, _ := exec.CommandContext(ctx, path, "-v").CombinedOutput()
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	if line == "" {
		return "", fmt.Errorf("no version output from %s", path)
	}
	return strings.TrimSpace(line), nil
}

// RenderPage implements PageRenderer.
func (p *Pdftoppm) RenderPage(ctx context.Context, path string, page int, opts RenderOptions) (image.Image, error) {
	bin, err := p.Path()
	if err != nil {
		return nil, err
	}
	dpi := opts.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	dir, err := os.MkdirTemp("", "ocrdesk-page-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	n := strconv.Itoa(page)
	args := []string{"-png", "-r", strconv.Itoa(dpi), "-f", n, "-l", n, "-singlefile"}
	if opts.Password != "" {
		args = append(args, "-upw", opts.Password)
	}
	args = append(args, path, prefix)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("pdftoppm failed on page %d: %w: %s", page, err, strings.TrimSpace(stderr.String()))
	}

	img, err := imaging.Open(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered page %d: %w", page, err)
	}

	p.logger.Debug().
		Int("page", page).
		Int("dpi", dpi).
		Dur("elapsed", time.Since(start)).
		Msg("Page rendered")

	return img, nil
}

// pdfinfoPath finds poppler's pdfinfo, next to pdftoppm when the renderer was
// given an explicit path.
func (p *Pdftoppm) pdfinfoPath() (string, error) {
	if strings.ContainsAny(p.binary, `/\`) {
		path := filepath.Join(filepath.Dir(p.binary), "pdfinfo"+filepath.Ext(p.binary))
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrRendererNotFound, path, err)
		}
		return path, nil
	}
	path, err := lookPath("pdfinfo")
	if err != nil {
		return "", fmt.Errorf("%w: pdfinfo is not on PATH (install poppler-utils)", ErrRendererNotFound)
	}
	return path, nil
}

// PageCount implements PageCounter with poppler's pdfinfo program:
//
//	pdfinfo [-upw <pw>] <in.pdf>
func (p *Pdftoppm) PageCount(ctx context.Context, path, password string) (int, error) {
	bin, err := p.pdfinfoPath()
	if err != nil {
		return 0, err
	}
	var args []string
	if password != "" {
		args = append(args, "-upw", password)
	}
	args = append(args, path)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if strings.Contains(strings.ToLower(msg), "incorrect password") {
			if password == "" {
				return 0, fmt.Errorf("%w: a password is required", ErrEncryptedDocument)
			}
			return 0, fmt.Errorf("%w: the password is incorrect", ErrEncryptedDocument)
		}
		return 0, fmt.Errorf("pdfinfo failed: %w: %s", err, msg)
	}

	pages, err := parsePdfinfoPages(stdout.String())
	if err != nil {
		return 0, err
	}
	p.logger.Debug().Str("path", path).Int("pages", pages).Msg("Page count read with pdfinfo")
	return pages, nil
}

// parsePdfinfoPages extracts the "Pages:" field from pdfinfo output.
func parsePdfinfoPages(out string) (int, error) {
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(key) != "Pages" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, fmt.Errorf("pdfinfo reported an invalid page count %q", strings.TrimSpace(value))
		}
		return n, nil
	}
	return 0, fmt.Errorf("pdfinfo reported no page count")
}
