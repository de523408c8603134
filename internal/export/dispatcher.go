package export

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrFormatUnavailable is returned when no writer is registered for a
	// format or the registered writer cannot run.
	ErrFormatUnavailable = errors.New("export format unavailable")

	// ErrWriteError is returned when the destination cannot be written or
	// the writer fails.
	ErrWriteError = errors.New("export write failed")
)

// QuickSavePrefix and QuickSaveLayout name quick-save files:
// ocr_results_YYYYMMDD_HHMMSS.txt.
const (
	QuickSavePrefix = "ocr_results_"
	QuickSaveLayout = "20060102_150405"
)

// Request describes one export.
type Request struct {
	// Text is the content to export.
	Text string

	// Format is the target format. Empty means infer from Path.
	Format Format

	// Path is the destination file. Existing files are replaced.
	Path string

	// Title heads formatted documents. Empty means DefaultTitle.
	Title string
}

// Dispatcher selects a Writer by format and writes its output to disk.
//
// Files are written to a temporary sibling of the destination and renamed
// into place, so a failed export never leaves a partial file behind.
type Dispatcher struct {
	mu      sync.RWMutex
	writers map[Format]Writer
	now     func() time.Time
	logger  zerolog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithClock sets the time source for timestamps. Tests use it to pin
// quick-save names.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// WithDispatcherLogger sets the dispatcher's logger.
func WithDispatcherLogger(logger zerolog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher returns a dispatcher with no writers registered.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		writers: make(map[Format]Writer),
		now:     time.Now,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds w, replacing any writer for the same format.
func (d *Dispatcher) Register(w Writer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writers[w.Format()] = w
}

// Formats returns the registered formats, sorted.
func (d *Dispatcher) Formats() []Format {
	d.mu.RLock()
	defer d.mu.RUnlock()
	formats := make([]Format, 0, len(d.writers))
	for f := range d.writers {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

func (d *Dispatcher) writer(f Format) (Writer, error) {
	d.mu.RLock()
	w, ok := d.writers[f]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s: no writer registered", ErrFormatUnavailable, f)
	}
	if err := w.Available(); err != nil {
		if errors.Is(err, ErrFormatUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrFormatUnavailable, f, err)
	}
	return w, nil
}

// Check is the capability query for f. It returns nil when f can be
// exported and an error wrapping ErrFormatUnavailable otherwise. It never
// touches the filesystem.
func (d *Dispatcher) Check(f Format) error {
	_, err := d.writer(f)
	return err
}

// Available reports whether f can be exported.
func (d *Dispatcher) Available(f Format) bool {
	return d.Check(f) == nil
}

// Export writes req.Text to req.Path in req.Format.
//
// The format's capability is checked before anything touches the
// filesystem. Errors wrap ErrFormatUnavailable or ErrWriteError; none are
// retried.
func (d *Dispatcher) Export(ctx context.Context, req Request) error {
	format := req.Format
	if format == "" {
		f, err := FormatFromPath(req.Path)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrFormatUnavailable, err)
		}
		format = f
	}

	w, err := d.writer(format)
	if err != nil {
		return err
	}
	if req.Path == "" {
		return fmt.Errorf("%w: no destination path", ErrWriteError)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteError, err)
	}

	title := req.Title
	if title == "" {
		title = DefaultTitle
	}
	doc := Document{Text: req.Text, Title: title, Generated: d.now()}

	start := time.Now()
	if err := writeAtomic(req.Path, func(f *os.File) error {
		bw := bufio.NewWriter(f)
		if err := w.Write(bw, doc); err != nil {
			return err
		}
		return bw.Flush()
	}); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteError, req.Path, err)
	}

	d.logger.Info().
		Str("format", string(format)).
		Str("path", req.Path).
		Int("chars", len(req.Text)).
		Dur("elapsed", time.Since(start)).
		Msg("Exported")
	return nil
}

// QuickSave writes text as plain text to a new timestamped file in dir and
// returns its path. The file content is exactly text.
//
// The name is claimed with an exclusive create before anything is written, so
// concurrent saves in the same second never share or overwrite a file.
func (d *Dispatcher) QuickSave(ctx context.Context, dir, text string) (string, error) {
	if dir == "" {
		dir = "."
	}
	path, err := reserveQuickSave(dir, QuickSavePrefix+d.now().Format(QuickSaveLayout))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteError, err)
	}

	if err := d.Export(ctx, Request{Text: text, Format: FormatTXT, Path: path}); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// reserveQuickSave creates an empty file named base.txt in dir, or base_N.txt
// for the first free N, and returns its path.
func reserveQuickSave(dir, base string) (string, error) {
	ext := FormatTXT.Extension()
	for n := 0; ; n++ {
		name := base + ext
		if n > 0 {
			name = fmt.Sprintf("%s_%d%s", base, n, ext)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		return path, f.Close()
	}
}

// QuickSaveName reports whether name looks like a quick-save file name.
func QuickSaveName(name string) bool {
	name = filepath.Base(name)
	if !strings.HasPrefix(name, QuickSavePrefix) || !strings.HasSuffix(name, FormatTXT.Extension()) {
		return false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, QuickSavePrefix), FormatTXT.Extension())
	if len(stamp) < len(QuickSaveLayout) {
		return false
	}
	_, err := time.Parse(QuickSaveLayout, stamp[:len(QuickSaveLayout)])
	return err == nil
}

// writeAtomic writes through a temp file in path's directory and renames it
// over path. The temp file is removed on every failure.
func writeAtomic(path string, write func(*os.File) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	// CreateTemp makes the file 0600; exports are ordinary user files.
	if err = os.Chmod(tmpPath, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
