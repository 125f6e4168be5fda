package ast

// Form is one top-level form of a converted module.
type Form interface {
	isForm()
}

// Fixme is a single suppression annotation inside a metadata form.
type Fixme struct {
	// IsIgnore distinguishes a permanent ignore from a fixme the authors
	// intend to resolve.
	IsIgnore bool
}

// MetadataForm carries the per-module suppression annotations collected
// during conversion.
type MetadataForm struct {
	Fixmes []Fixme
}

// NowarnFunctionForm marks a single function as excluded from warnings.
type NowarnFunctionForm struct {
	Name  string
	Arity uint32
}

// ModuleAttrForm is the module name attribute.
type ModuleAttrForm struct {
	Name ModuleName
}

// FunDeclForm is a function declaration. The driver never looks inside it.
type FunDeclForm struct {
	Name  string
	Arity uint32
}

func (MetadataForm) isForm()       {}
func (NowarnFunctionForm) isForm() {}
func (ModuleAttrForm) isForm()     {}
func (FunDeclForm) isForm()        {}
