// Package parser outlines Go source files: package clause, imports and the
// signature of every file-level declaration, read from the syntax tree built by
// go/parser. Its output feeds two indexing hooks: the skeleton extractor,
// which reduces a file to the text worth embedding, and the declaration
// chunker, which splits a file at top-level declarations.
//
// # Basic Usage
//
//	p := parser.New()
//	outline := p.ParseSource("auth.go", content)
//	for _, d := range outline.Decls {
//	    fmt.Printf("%s %s\n", d.Kind, d.Signature)
//	}
//
// # Skeletons
//
// Extract implements the extractor hook used by the indexing pipeline:
//
//	text := p.Extract(content, "internal/auth/checker.go")
//
// For Go files the result holds the package clause, imports, doc comments and
// declaration signatures with bodies removed. Any other path, or a Go file that
// fails to parse, is returned unchanged so indexing never loses a document.
//
// # Error Handling
//
// ParseSource never fails. A syntax error is kept on Outline.Err and the partial
// syntax tree is still walked:
//
//	outline := p.ParseSource("broken.go", content)
//	if !outline.Complete() {
//	    log.Printf("outline of %s is partial: %v", outline.Path, outline.Err)
//	}
//
// Each parse uses its own token.FileSet, so a single Parser can be shared by all
// indexing workers.
package parser
