package ocr

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds one engine invocation when no timeout is configured.
const DefaultTimeout = 2 * time.Minute

// Invoker runs recognition requests against an Engine.
//
// Before recognition it runs the engine's capability check and validates the
// language against the installed language data, so a missing engine or
// language is reported without attempting recognition. Recognize checks on
// every call; a Session checks once for many calls. Each engine call runs
// under its own timeout.
//
// An Invoker holds only configuration and is safe for concurrent use.
type Invoker struct {
	engine     Engine
	timeout    time.Duration
	autoDetect bool
	logger     zerolog.Logger
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithTimeout bounds each engine call. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(i *Invoker) {
		if d > 0 {
			i.timeout = d
		}
	}
}

// WithAutoDetect enables a language detection pass over the first result.
// When the detected language is installed and differs from the requested
// one, recognition is repeated with the detected language.
func WithAutoDetect(enabled bool) Option {
	return func(i *Invoker) {
		i.autoDetect = enabled
	}
}

// WithLogger sets the invoker's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(i *Invoker) {
		i.logger = logger
	}
}

// NewInvoker returns an invoker for engine.
func NewInvoker(engine Engine, opts ...Option) *Invoker {
	i := &Invoker{
		engine:  engine,
		timeout: DefaultTimeout,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Engine returns the engine behind the invoker.
func (i *Invoker) Engine() Engine { return i.engine }

// Check runs the engine's capability query. It returns nil when the engine
// can be used and an error wrapping ErrEngineNotFound otherwise.
func (i *Invoker) Check(ctx context.Context) error {
	if i.engine == nil {
		return fmt.Errorf("%w: no engine configured", ErrEngineNotFound)
	}
	_, err := i.engine.Probe(ctx)
	return err
}

// Available reports whether the engine can be used.
func (i *Invoker) Available(ctx context.Context) bool {
	return i.Check(ctx) == nil
}

// Info returns the engine's installation details. It never fails; problems
// are reported in EngineInfo.Error.
func (i *Invoker) Info(ctx context.Context) *EngineInfo {
	if i.engine == nil {
		return &EngineInfo{Error: ErrEngineNotFound.Error()}
	}
	info, err := i.engine.Probe(ctx)
	if info == nil {
		info = &EngineInfo{Name: i.engine.Name()}
	}
	if err != nil && info.Error == "" {
		info.Error = err.Error()
	}
	return info
}

// Languages returns the installed languages. When the engine cannot list
// them, FallbackLanguages is returned and fallback is true.
func (i *Invoker) Languages(ctx context.Context) (langs []string, fallback bool) {
	if i.engine != nil {
		langs, err := i.engine.Languages(ctx)
		if err == nil && len(langs) > 0 {
			return langs, false
		}
		if err != nil {
			i.logger.Debug().Err(err).Msg("Using fallback language list")
		}
	}
	return slices.Clone(FallbackLanguages), true
}

// Recognize runs req through the engine.
//
// Parameters:
//   - ctx: Cancels the engine call. The invoker's timeout is applied on top.
//   - req: The raster and engine settings. An empty Language means
//     DefaultLanguage.
//
// Returns:
//   - *Result: Recognized text with confidence and word boxes when the
//     engine provides them.
//   - error: ErrEngineNotFound when the capability check fails,
//     ErrUnsupportedLanguage when a requested language is not installed, or
//     ErrRecognitionFailed when the engine fails or times out.
//
// # Auto-Detection
//
// With WithAutoDetect, the first result's text is passed to DetectLanguage.
// The detected code is recorded in Result.DetectedLanguage. If it is
// installed and differs from the requested language, a second pass runs with
// it; should the second pass fail, the first result is returned.
func (i *Invoker) Recognize(ctx context.Context, req Request) (*Result, error) {
	if req.Raster == nil {
		return nil, fmt.Errorf("%w: no raster", ErrRecognitionFailed)
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	session, err := i.Session(ctx)
	if err != nil {
		return nil, err
	}
	return session.Recognize(ctx, req)
}

// Session is a completed capability check. Recognitions through a Session
// reuse its result instead of querying the engine again, so a multi-page
// document checks the engine once.
//
// A Session is safe for concurrent use.
type Session struct {
	invoker *Invoker

	// installed is nil when the engine could not list its languages, in which
	// case languages are not validated.
	installed []string
}

// Session runs the engine's capability check and lists its installed
// languages. It fails with ErrEngineNotFound when the engine is unusable.
func (i *Invoker) Session(ctx context.Context) (*Session, error) {
	if err := i.Check(ctx); err != nil {
		return nil, err
	}
	installed, err := i.installed(ctx)
	if err != nil {
		i.logger.Debug().Err(err).Msg("Installed languages unknown, skipping language validation")
	}
	return &Session{invoker: i, installed: installed}, nil
}

// Recognize runs req through the engine as Invoker.Recognize does, without
// repeating the capability check.
func (s *Session) Recognize(ctx context.Context, req Request) (*Result, error) {
	if req.Raster == nil {
		return nil, fmt.Errorf("%w: no raster", ErrRecognitionFailed)
	}
	if req.Language == "" {
		req.Language = DefaultLanguage
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	i, installed := s.invoker, s.installed
	if installed != nil {
		for _, code := range splitLanguages(req.Language) {
			if !slices.Contains(installed, code) {
				return nil, fmt.Errorf("%w: %s is not installed", ErrUnsupportedLanguage, code)
			}
		}
	}

	result, err := i.run(ctx, req)
	if err != nil {
		return nil, err
	}

	if !i.autoDetect {
		return result, nil
	}

	detected, confidence, ok := DetectLanguage(result.Text)
	if !ok {
		i.logger.Debug().Msg("Language detection inconclusive")
		return result, nil
	}
	result.DetectedLanguage = detected
	i.logger.Debug().
		Str("detected", detected).
		Float64("confidence", confidence).
		Msg("Language detected")

	if detected == req.Language || (installed != nil && !slices.Contains(installed, detected)) {
		return result, nil
	}

	second := req
	second.Language = detected
	rerun, err := i.run(ctx, second)
	if err != nil {
		i.logger.Warn().Err(err).Str("language", detected).Msg("Second pass failed, keeping first result")
		return result, nil
	}
	rerun.DetectedLanguage = detected
	return rerun, nil
}

func (req Request) validate() error {
	if !req.PSM.Valid() {
		return fmt.Errorf("invalid page segmentation mode %d: must be 0-%d", int(req.PSM), int(maxPageSegMode))
	}
	if !req.OEM.Valid() {
		return fmt.Errorf("invalid engine mode %d: must be 0-%d", int(req.OEM), int(OEMDefault))
	}
	return nil
}

// installed returns the engine's language list, or nil when it cannot be
// determined.
func (i *Invoker) installed(ctx context.Context) ([]string, error) {
	langs, err := i.engine.Languages(ctx)
	if err != nil || len(langs) == 0 {
		return nil, err
	}
	return langs, nil
}

// run calls the engine under the invoker's timeout.
func (i *Invoker) run(ctx context.Context, req Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	start := time.Now()
	result, err := i.engine.Recognize(ctx, req)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, ErrRecognitionFailed) {
			err = fmt.Errorf("%w: engine abandoned after %s: %v", ErrRecognitionFailed, time.Since(start).Round(time.Millisecond), err)
		}
		i.logger.Debug().Err(err).Str("language", req.Language).Msg("Recognition failed")
		return nil, err
	}
	if result.Duration == 0 {
		result.Duration = time.Since(start)
	}
	return result, nil
}
