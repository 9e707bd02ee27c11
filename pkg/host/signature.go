package host

// ParamKind is the host's marker for how an argument binds to a parameter.
type ParamKind int

const (
	PositionalOnly ParamKind = iota
	PositionalOrKeyword
	VarPositional
	KeywordOnly
	VarKeyword
)

// Param describes one declared parameter.
type Param struct {
	Name string
	Kind ParamKind
	// Annotation is either textual (string) or a live type value. nil means
	// the parameter is not annotated.
	Annotation any
	// Default is only meaningful when HasDefault is set.
	Default    any
	HasDefault bool
}

// Signature describes a callable. Params are in declaration order.
type Signature struct {
	Params []Param
	// Returns is the return annotation, textual or live; nil when absent.
	Returns any
}
