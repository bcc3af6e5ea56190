package sample

// This file has syntax errors on purpose
// It is indexed as plain text because it does not parse

func BrokenFunction( {
	// Missing closing parenthesis in parameters
	return "test"
}

type IncompleteStruct struct {
	Field1 string
	// Missing closing brace

func (i *IncompleteStruct) Method() {
	// This should cause parse errors
