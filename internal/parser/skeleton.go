package parser

import (
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"
)

// IsGoSource reports whether path names a Go source file
func IsGoSource(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".go")
}

// Extract returns the structural skeleton of a document: for Go sources the
// package clause, imports, doc comments and declaration signatures without
// bodies. Other documents, and Go sources that fail to parse, are returned
// unchanged.
func (p *Parser) Extract(content, path string) string {
	if !IsGoSource(path) {
		return content
	}

	outline := p.ParseSource(path, []byte(content))
	if !outline.Complete() {
		return content
	}
	return Skeleton(outline)
}

// Skeleton renders an outline as Go-like text
func Skeleton(outline *Outline) string {
	var b strings.Builder

	b.WriteString("package ")
	b.WriteString(outline.Package)
	b.WriteString("\n")

	if len(outline.Imports) > 0 {
		b.WriteString("\nimport (\n")
		for _, imp := range outline.Imports {
			b.WriteString("\t")
			if imp.Alias != "" {
				b.WriteString(imp.Alias)
				b.WriteString(" ")
			}
			b.WriteString(`"`)
			b.WriteString(imp.Path)
			b.WriteString("\"\n")
		}
		b.WriteString(")\n")
	}

	for _, d := range outline.Decls {
		b.WriteString("\n")
		if d.Doc != "" {
			for _, line := range strings.Split(d.Doc, "\n") {
				b.WriteString(strings.TrimRight("// "+line, " "))
				b.WriteString("\n")
			}
		}
		switch d.Kind {
		case KindConst:
			b.WriteString("const ")
		case KindVar:
			b.WriteString("var ")
		}
		b.WriteString(d.Signature)
		b.WriteString("\n")
	}

	return b.String()
}

// Declarations splits Go source into the text of its top-level declarations,
// each including its doc comment. Import blocks are skipped. It returns nil
// when the source does not parse or has no declarations.
func (p *Parser) Declarations(path string, content []byte) []string {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.ParseComments)
	if err != nil || file == nil {
		return nil
	}

	tf := fset.File(file.Pos())
	if tf == nil {
		return nil
	}

	var decls []string
	for _, decl := range file.Decls {
		var doc *ast.CommentGroup
		switch d := decl.(type) {
		case *ast.FuncDecl:
			doc = d.Doc
		case *ast.GenDecl:
			if d.Tok == token.IMPORT {
				continue
			}
			doc = d.Doc
		default:
			continue
		}

		start := tf.Offset(declStart(doc, decl.Pos()))
		end := tf.Offset(decl.End())
		if start < 0 || end > len(content) || start >= end {
			continue
		}
		decls = append(decls, string(content[start:end]))
	}

	return decls
}
