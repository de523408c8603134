// Package diagnostics reports on the host and on every external component
// ocrdesk depends on: the OCR engine and its languages, the PDF page
// renderer and the export writers.
package diagnostics

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ironsheep/ocrdesk/internal/document"
	"github.com/ironsheep/ocrdesk/internal/export"
	"github.com/ironsheep/ocrdesk/internal/ocr"
)

// Host probes, replaced in tests.
var (
	hostInfo      = host.InfoWithContext
	virtualMemory = mem.VirtualMemoryWithContext
	goos          = runtime.GOOS
)

// SystemInfo describes the machine ocrdesk runs on.
type SystemInfo struct {
	OS              string `json:"os" yaml:"os"`
	Platform        string `json:"platform,omitempty" yaml:"platform,omitempty"`
	PlatformVersion string `json:"platform_version,omitempty" yaml:"platform_version,omitempty"`
	KernelVersion   string `json:"kernel_version,omitempty" yaml:"kernel_version,omitempty"`
	Arch            string `json:"arch" yaml:"arch"`
	CPUs            int    `json:"cpus" yaml:"cpus"`
	MemoryTotal     uint64 `json:"memory_total,omitempty" yaml:"memory_total,omitempty"`
	GoVersion       string `json:"go_version" yaml:"go_version"`
	Error           string `json:"error,omitempty" yaml:"error,omitempty"`
}

// RendererInfo describes the PDF page renderer.
type RendererInfo struct {
	Available bool   `json:"available" yaml:"available"`
	Name      string `json:"name" yaml:"name"`
	Version   string `json:"version,omitempty" yaml:"version,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// FormatStatus is the capability query result for one export format.
type FormatStatus struct {
	Format    export.Format `json:"format" yaml:"format"`
	Available bool          `json:"available" yaml:"available"`
	Reason    string        `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Report is the full diagnostics result.
type Report struct {
	System            SystemInfo     `json:"system" yaml:"system"`
	Engine            ocr.EngineInfo `json:"engine" yaml:"engine"`
	Languages         []string       `json:"languages" yaml:"languages"`
	LanguagesFallback bool           `json:"languages_fallback" yaml:"languages_fallback"`
	Renderer          RendererInfo   `json:"renderer" yaml:"renderer"`
	Formats           []FormatStatus `json:"formats" yaml:"formats"`
	Hints             []string       `json:"hints,omitempty" yaml:"hints,omitempty"`
	Generated         time.Time      `json:"generated" yaml:"generated"`
}

// Sources are the components inspected by Collect. Nil fields are reported
// as missing.
type Sources struct {
	Invoker    *ocr.Invoker
	Renderer   document.PageRenderer
	Dispatcher *export.Dispatcher
}

type versioner interface {
	Version(ctx context.Context) (string, error)
}

// Collect gathers a Report. It never fails: anything that cannot be probed
// is recorded in the report itself.
func Collect(ctx context.Context, src Sources) *Report {
	r := &Report{
		System:    collectSystem(ctx),
		Generated: time.Now(),
	}

	if src.Invoker != nil {
		r.Engine = *src.Invoker.Info(ctx)
		if r.Engine.Available {
			r.Languages, r.LanguagesFallback = src.Invoker.Languages(ctx)
		}
	} else {
		r.Engine = ocr.EngineInfo{Error: ocr.ErrEngineNotFound.Error()}
	}

	r.Renderer = collectRenderer(ctx, src.Renderer)

	if src.Dispatcher != nil {
		for _, f := range export.AllFormats {
			status := FormatStatus{Format: f, Available: true}
			if err := src.Dispatcher.Check(f); err != nil {
				status.Available = false
				status.Reason = err.Error()
			}
			r.Formats = append(r.Formats, status)
		}
	}

	r.Hints = InstallHints(goos, r)
	return r
}

func collectSystem(ctx context.Context) SystemInfo {
	info := SystemInfo{
		OS:        goos,
		Arch:      runtime.GOARCH,
		CPUs:      runtime.NumCPU(),
		GoVersion: runtime.Version(),
	}
	if h, err := hostInfo(ctx); err == nil {
		info.Platform = h.Platform
		info.PlatformVersion = h.PlatformVersion
		info.KernelVersion = h.KernelVersion
		if h.KernelArch != "" {
			info.Arch = h.KernelArch
		}
	} else {
		info.Error = err.Error()
	}
	if vm, err := virtualMemory(ctx); err == nil {
		info.MemoryTotal = vm.Total
	}
	return info
}

func collectRenderer(ctx context.Context, renderer document.PageRenderer) RendererInfo {
	if renderer == nil {
		return RendererInfo{Error: document.ErrRendererNotFound.Error()}
	}
	info := RendererInfo{Name: renderer.Name()}
	if err := renderer.Check(ctx); err != nil {
		info.Error = err.Error()
		return info
	}
	info.Available = true
	if v, ok := renderer.(versioner); ok {
		if version, err := v.Version(ctx); err == nil {
			info.Version = version
		}
	}
	return info
}

// InstallHints returns installation steps for the components r reports as
// missing, phrased for the given GOOS.
func InstallHints(goos string, r *Report) []string {
	var hints []string
	if !r.Engine.Available {
		switch goos {
		case "windows":
			hints = append(hints,
				"Download Tesseract from https://github.com/tesseract-ocr/tesseract/releases and run the installer",
				"Add the Tesseract directory to PATH or set ocr.binary")
		case "darwin":
			hints = append(hints, "Install Tesseract: brew install tesseract")
		default:
			hints = append(hints, "Install Tesseract: sudo apt-get install tesseract-ocr")
		}
	} else if r.LanguagesFallback || len(r.Languages) == 0 {
		switch goos {
		case "darwin":
			hints = append(hints, "Install language packs: brew install tesseract-lang")
		case "windows":
			hints = append(hints, "Re-run the Tesseract installer and select additional languages")
		default:
			hints = append(hints, "Install language packs: sudo apt-get install tesseract-ocr-<lang>")
		}
	}

	if !r.Renderer.Available {
		switch goos {
		case "windows":
			hints = append(hints, "Install poppler for Windows and add its bin directory to PATH or set document.renderer")
		case "darwin":
			hints = append(hints, "Install the PDF renderer: brew install poppler")
		default:
			hints = append(hints, "Install the PDF renderer: sudo apt-get install poppler-utils")
		}
	}

	for _, f := range r.Formats {
		if f.Format == export.FormatPDF && !f.Available {
			hints = append(hints, "Point export.pdf_font at a readable TrueType font file, or unset it to use the core fonts")
		}
	}
	return hints
}

// Render formats the report as plain text.
func (r *Report) Render() string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("=== SYSTEM INFORMATION ===")
	line("OS: %s/%s", r.System.OS, r.System.Arch)
	if r.System.Platform != "" {
		line("Platform: %s %s", r.System.Platform, r.System.PlatformVersion)
	}
	if r.System.KernelVersion != "" {
		line("Kernel: %s", r.System.KernelVersion)
	}
	line("CPUs: %d", r.System.CPUs)
	if r.System.MemoryTotal > 0 {
		line("Memory: %.1f GB", float64(r.System.MemoryTotal)/(1<<30))
	}
	line("Go: %s", r.System.GoVersion)

	line("")
	line("=== OCR ENGINE ===")
	if r.Engine.Available {
		line("%s %s (%s)", r.Engine.Name, r.Engine.Version, r.Engine.Backend)
		if r.Engine.Path != "" {
			line("Path: %s", r.Engine.Path)
		}
		line("")
		line("--- Installed Language Packs ---")
		switch {
		case len(r.Languages) == 0:
			line("  No language packs found. OCR may be limited.")
		case r.LanguagesFallback:
			line("  Could not list language packs; assuming: %s", strings.Join(r.Languages, ", "))
		default:
			for _, lang := range r.Languages {
				line("  - %s (%s)", lang, ocr.LanguageName(lang))
			}
		}
	} else {
		line("Not available: %s", r.Engine.Error)
	}

	line("")
	line("=== PDF RENDERER ===")
	if r.Renderer.Available {
		line("%s %s", r.Renderer.Name, r.Renderer.Version)
	} else {
		line("Not available: %s", r.Renderer.Error)
	}

	if len(r.Formats) > 0 {
		line("")
		line("=== EXPORT FORMATS ===")
		for _, f := range r.Formats {
			if f.Available {
				line("✓ %s", f.Format)
			} else {
				line("✗ %s (%s)", f.Format, f.Reason)
			}
		}
	}

	if len(r.Hints) > 0 {
		line("")
		line("=== INSTALLATION INSTRUCTIONS ===")
		for i, h := range r.Hints {
			line("%d. %s", i+1, h)
		}
	}
	return b.String()
}
