package parser

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	gotypes "go/types"
	"os"
	"strings"
)

// maxValueLength bounds how much of a const or var initializer is kept in a signature
const maxValueLength = 60

// Parser outlines Go source files. It is stateless and safe for concurrent
// use; every parse gets its own token.FileSet.
type Parser struct{}

func New() *Parser {
	return &Parser{}
}

// ParseFile reads and outlines a Go source file. Only a read failure is
// returned as an error; syntax errors land on Outline.Err.
func (p *Parser) ParseFile(filePath string) (*Outline, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.ParseSource(filePath, content), nil
}

// ParseSource outlines Go source held in memory. A syntax error is recorded on
// the outline and whatever partial syntax tree the parser produced is still
// walked.
func (p *Parser) ParseSource(filePath string, content []byte) *Outline {
	out := &Outline{Path: filePath}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filePath, content, parser.ParseComments)
	if err != nil {
		out.Err = fmt.Errorf("syntax error: %w", err)
	}
	if file == nil {
		return out
	}

	if file.Name != nil {
		out.Package = file.Name.Name
	}
	out.Imports = imports(file)

	w := &outliner{fset: fset}

	// Only file-level declarations; function bodies may declare local types
	// that do not belong in the outline.
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			w.funcDecl(d)
		case *ast.GenDecl:
			w.genDecl(d)
		}
	}
	out.Decls = w.decls

	return out
}

func imports(file *ast.File) []Import {
	out := make([]Import, 0, len(file.Imports))
	for _, spec := range file.Imports {
		imp := Import{Path: strings.Trim(spec.Path.Value, `"`)}
		if spec.Name != nil {
			imp.Alias = spec.Name.Name
		}
		out = append(out, imp)
	}
	return out
}

type outliner struct {
	fset  *token.FileSet
	decls []Decl
}

func (w *outliner) funcDecl(fn *ast.FuncDecl) {
	d := Decl{
		Name:      fn.Name.Name,
		Kind:      KindFunction,
		Doc:       docText(fn.Doc),
		Signature: functionSignature(fn),
		Start:     w.position(declStart(fn.Doc, fn.Pos())),
		End:       w.position(fn.End()),
	}
	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		d.Kind = KindMethod
		d.Receiver = receiverTypeName(fn.Recv.List[0].Type)
	}
	w.decls = append(w.decls, d)
}

func (w *outliner) genDecl(gen *ast.GenDecl) {
	for _, spec := range gen.Specs {
		switch s := spec.(type) {
		case *ast.TypeSpec:
			w.typeSpec(s, gen)
		case *ast.ValueSpec:
			w.valueSpec(s, gen)
		}
	}
}

func (w *outliner) typeSpec(spec *ast.TypeSpec, gen *ast.GenDecl) {
	doc := specDoc(spec.Doc, gen)
	d := Decl{
		Name:      spec.Name.Name,
		Kind:      KindType,
		Doc:       docText(doc),
		Signature: typeSignature(spec),
		Start:     w.position(declStart(doc, spec.Pos())),
		End:       w.position(spec.End()),
	}

	switch t := spec.Type.(type) {
	case *ast.StructType:
		d.Kind = KindStruct
		d.Fields = w.fields(t)
	case *ast.InterfaceType:
		d.Kind = KindInterface
	}

	w.decls = append(w.decls, d)
}

func (w *outliner) fields(st *ast.StructType) []Field {
	if st.Fields == nil {
		return nil
	}
	var out []Field
	for _, field := range st.Fields.List {
		for _, name := range field.Names {
			out = append(out, Field{
				Name: name.Name,
				Type: exprToString(field.Type),
				At:   w.position(name.Pos()),
			})
		}
	}
	return out
}

func (w *outliner) valueSpec(spec *ast.ValueSpec, gen *ast.GenDecl) {
	kind := KindVar
	if gen.Tok == token.CONST {
		kind = KindConst
	}

	doc := specDoc(spec.Doc, gen)
	for i, name := range spec.Names {
		d := Decl{
			Name:  name.Name,
			Kind:  kind,
			Doc:   docText(doc),
			Start: w.position(declStart(doc, spec.Pos())),
			End:   w.position(spec.End()),
		}

		switch {
		case spec.Type != nil:
			d.Signature = fmt.Sprintf("%s %s", name.Name, exprToString(spec.Type))
		case i < len(spec.Values):
			d.Signature = fmt.Sprintf("%s = %s", name.Name, valueString(spec.Values[i]))
		default:
			d.Signature = name.Name
		}

		w.decls = append(w.decls, d)
	}
}

func (w *outliner) position(pos token.Pos) Position {
	p := w.fset.Position(pos)
	return Position{Line: p.Line, Column: p.Column, Offset: p.Offset}
}

// specDoc prefers the spec's own doc comment and falls back to the doc on an
// ungrouped declaration.
func specDoc(doc *ast.CommentGroup, genDecl *ast.GenDecl) *ast.CommentGroup {
	if doc != nil {
		return doc
	}
	if !genDecl.Lparen.IsValid() {
		return genDecl.Doc
	}
	return nil
}

func declStart(doc *ast.CommentGroup, pos token.Pos) token.Pos {
	if doc != nil && doc.Pos() < pos {
		return doc.Pos()
	}
	return pos
}

// receiverTypeName extracts the receiver type name from a method, dropping
// pointers and type parameters.
func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.IndexExpr:
		return receiverTypeName(t.X)
	case *ast.IndexListExpr:
		return receiverTypeName(t.X)
	case *ast.Ident:
		return t.Name
	}
	return ""
}

// functionSignature builds a function signature string
func functionSignature(funcDecl *ast.FuncDecl) string {
	var sig strings.Builder

	sig.WriteString("func ")

	if funcDecl.Recv != nil && len(funcDecl.Recv.List) > 0 {
		sig.WriteString("(")
		sig.WriteString(fieldListToString(funcDecl.Recv))
		sig.WriteString(") ")
	}

	sig.WriteString(funcDecl.Name.Name)

	if funcDecl.Type.TypeParams != nil && len(funcDecl.Type.TypeParams.List) > 0 {
		sig.WriteString("[")
		sig.WriteString(fieldListToString(funcDecl.Type.TypeParams))
		sig.WriteString("]")
	}

	sig.WriteString("(")
	sig.WriteString(fieldListToString(funcDecl.Type.Params))
	sig.WriteString(")")

	if results := funcDecl.Type.Results; results != nil && len(results.List) > 0 {
		if results.NumFields() > 1 || len(results.List[0].Names) > 0 {
			sig.WriteString(" (")
			sig.WriteString(fieldListToString(results))
			sig.WriteString(")")
		} else {
			sig.WriteString(" ")
			sig.WriteString(fieldListToString(results))
		}
	}

	return sig.String()
}

// typeSignature renders a type declaration including its underlying type
func typeSignature(typeSpec *ast.TypeSpec) string {
	var sig strings.Builder

	sig.WriteString("type ")
	sig.WriteString(typeSpec.Name.Name)
	if typeSpec.TypeParams != nil && len(typeSpec.TypeParams.List) > 0 {
		sig.WriteString("[")
		sig.WriteString(fieldListToString(typeSpec.TypeParams))
		sig.WriteString("]")
	}
	if typeSpec.Assign.IsValid() {
		sig.WriteString(" =")
	}
	sig.WriteString(" ")
	sig.WriteString(exprToString(typeSpec.Type))

	return sig.String()
}

// fieldListToString converts a field list to a string representation
func fieldListToString(fieldList *ast.FieldList) string {
	if fieldList == nil || len(fieldList.List) == 0 {
		return ""
	}

	parts := make([]string, 0, len(fieldList.List))
	for _, field := range fieldList.List {
		typeStr := exprToString(field.Type)
		if len(field.Names) == 0 {
			parts = append(parts, typeStr)
			continue
		}
		names := make([]string, 0, len(field.Names))
		for _, name := range field.Names {
			names = append(names, name.Name)
		}
		parts = append(parts, strings.Join(names, ", ")+" "+typeStr)
	}

	return strings.Join(parts, ", ")
}

// exprToString converts an expression to its Go source form
func exprToString(expr ast.Expr) string {
	if expr == nil {
		return ""
	}
	return gotypes.ExprString(expr)
}

// valueString renders short initializers verbatim and elides long ones
func valueString(expr ast.Expr) string {
	if _, ok := expr.(*ast.FuncLit); ok {
		return "func(...)"
	}
	s := exprToString(expr)
	if len(s) > maxValueLength {
		return "..."
	}
	return s
}

func docText(doc *ast.CommentGroup) string {
	if doc == nil {
		return ""
	}
	return strings.TrimSpace(doc.Text())
}
