package export

// Options configures the writers registered by NewDefaultDispatcher.
type Options struct {
	// PDFFont is an optional TrueType font for the pdf writer.
	PDFFont string
}

// NewDefaultDispatcher returns a dispatcher with a writer for every format.
func NewDefaultDispatcher(opts Options, dopts ...DispatcherOption) *Dispatcher {
	d := NewDispatcher(dopts...)
	d.Register(TextWriter{})
	d.Register(PDFWriter{FontPath: opts.PDFFont})
	d.Register(DOCXWriter{})
	d.Register(RTFWriter{})
	d.Register(HTMLWriter{})
	d.Register(XLSXWriter{})
	return d
}
