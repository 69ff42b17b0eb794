// Package layoutmd converts scanned or born-digital documents into Markdown
// using a layout model, and produces an annotated copy of the original that
// shows the regions the model found.
//
// Basic usage:
//
//	result, warnings, err := layoutmd.Open("report.pdf").
//	    Extractor(extract.NewHTTPExtractor("http://localhost:8000/layout", extract.HTTPOptions{})).
//	    Convert(ctx)
//	if err != nil {
//	    // handle error
//	}
//	if len(warnings) > 0 {
//	    log.Println("Warnings:", layoutmd.FormatWarnings(warnings))
//	}
//	fmt.Println(result.MarkdownPath, result.AnnotatedPath)
//
// With a configuration file:
//
//	cfg, err := layoutmd.LoadConfig("layoutmd.yaml")
//	result, _, err := layoutmd.Open("scan.png").WithConfig(cfg).OutputDir("out").Convert(ctx)
//
// Every conversion writes into its own run directory: the page rasters,
// layout.json, the Markdown file with its images directory, and the
// annotated PDF.
package layoutmd

import "log/slog"

// Open returns a Converter for the file at path. Nothing is read until
// Convert is called.
//
// Example:
//
//	result, warnings, err := layoutmd.Open("document.pdf").Convert(ctx)
func Open(path string) *Converter {
	return &Converter{
		path:   path,
		config: DefaultConfig(),
		logger: slog.Default(),
	}
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	cfg := layoutmd.Must(layoutmd.LoadConfig("layoutmd.yaml"))
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// MustConvert is a helper that wraps a call to Convert and panics if the
// error is non-nil. It discards warnings and returns just the result.
func MustConvert[T any](val T, _ []Warning, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
