// Package texshot renders LaTeX math from chat messages as cropped,
// transparent PNG images using headless Chrome.
//
// # Quick Start
//
// Create one engine per process, a renderer on top of it, and close the
// engine when done:
//
//	engine := texshot.NewEngine()
//	defer engine.Close()
//
//	r, err := texshot.NewRenderer(engine)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	markup, ok := texshot.Extract("see $$e^{i\\pi} + 1 = 0$$")
//	if !ok {
//	    return // nothing to render
//	}
//	res, err := r.Render(ctx, markup)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("equation.png", res.PNG, 0644)
//
// # Rendering Pipeline
//
//  1. Extraction of the first $$...$$ block of a message
//  2. Typesetting to an HTML fragment (KaTeX CLI, or MathML in-process)
//  3. Composition into a document with a single content node
//  4. Loading in a page of the shared browser, waiting for stylesheets
//  5. Screenshot clipped to the content node, on a transparent background
//
// The document written for step 4 is removed before Render returns on
// every path, including errors and recovered panics.
//
// # Shared Engine
//
// Engine launches Chrome lazily on first use. Concurrent callers share a
// single launch. Page sessions are bounded by WithMaxSessions. When the
// browser dies, the failing render returns ErrEngineCrashed and the next
// render starts a fresh browser.
//
// # Chat Integration
//
// Handler connects a renderer to a chat platform through the Poster
// interface: messages without markup are ignored, images are posted as
// thread replies and failures are answered with ErrorMessage text.
//
// # Configuration
//
//	r, err := texshot.NewRenderer(engine,
//	    texshot.WithTimeout(10 * time.Second),
//	    texshot.WithTypesetter(texshot.NewMathMLTypesetter()),
//	    texshot.WithTrim(true),
//	    texshot.WithMaxWidth(1200),
//	)
//
// # Error Handling
//
// Sentinel errors can be matched with errors.Is:
//
//	if errors.Is(err, texshot.ErrMarkupFailure) {
//	    var me *texshot.MarkupError
//	    errors.As(err, &me) // me.Stderr holds the typesetter diagnostics
//	}
//
// Available sentinel errors: ErrEmptyMarkup, ErrMarkupFailure,
// ErrTypesetterNotFound, ErrTemplate, ErrBrowserConnect, ErrPageCreate,
// ErrPageLoad, ErrStyleLoad, ErrElementGeometry, ErrScreenshot,
// ErrEngineCrashed, ErrEngineClosed, ErrNoEngine, ErrPost.
//
// # Requirements
//
// Rendering needs Chrome or Chromium (downloaded by go-rod when missing)
// and, for the default typesetter, the katex CLI (npm install -g katex).
package texshot
