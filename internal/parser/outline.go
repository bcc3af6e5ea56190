package parser

import "go/token"

// Kind classifies a top-level declaration
type Kind string

const (
	KindFunction  Kind = "function"
	KindMethod    Kind = "method"
	KindStruct    Kind = "struct"
	KindInterface Kind = "interface"
	KindType      Kind = "type"
	KindConst     Kind = "const"
	KindVar       Kind = "var"
)

// Position is a location in the parsed source
type Position struct {
	Line   int
	Column int
	Offset int // byte offset
}

// Field is a named struct field
type Field struct {
	Name string
	Type string
	At   Position
}

// Decl is one name declared at file level. Grouped const and var specs yield
// one Decl per name.
type Decl struct {
	Name      string
	Kind      Kind
	Receiver  string // method receiver type, without pointer or type parameters
	Signature string // declaration without body
	Doc       string

	Fields []Field // struct fields in source order

	// Span of the declaration, doc comment included
	Start Position
	End   Position
}

// Exported reports whether the name is visible outside its package
func (d Decl) Exported() bool {
	return token.IsExported(d.Name)
}

// Import is one import spec
type Import struct {
	Path  string
	Alias string // "", ".", "_" or a name
}

// Outline is the file-level structure of one Go source
type Outline struct {
	Path    string
	Package string
	Imports []Import
	Decls   []Decl

	// Err is the syntax error, if any. Decls then holds whatever the partial
	// syntax tree yielded.
	Err error
}

// Complete reports whether the source parsed cleanly
func (o *Outline) Complete() bool {
	return o.Err == nil && o.Package != ""
}

// Lookup finds a declaration by name. Methods are found by their own name, so
// methods of different receivers may shadow each other; the first wins.
func (o *Outline) Lookup(name string) (Decl, bool) {
	for _, d := range o.Decls {
		if d.Name == name {
			return d, true
		}
	}
	return Decl{}, false
}
