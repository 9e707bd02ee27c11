// Package store persists inspected model trees in SQLite so that
// documentation builders and other downstream consumers can read them
// without re-running an inspection.
//
// Each call to SaveInspection records one inspection run, keyed by a UUID,
// with one row per indexed object and one row per function parameter.
package store

import (
	"time"
)

// Inspection is one saved inspection run.
type Inspection struct {
	ID        string    `json:"id" yaml:"id"`
	Host      string    `json:"host" yaml:"host"`
	Roots     []string  `json:"roots" yaml:"roots"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Objects   int       `json:"objects" yaml:"objects"`
}

// Object is the flat record of one model node.
type Object struct {
	Path       string   `json:"path" yaml:"path"`
	Kind       string   `json:"kind" yaml:"kind"`
	Name       string   `json:"name" yaml:"name"`
	ParentPath string   `json:"parent_path,omitempty" yaml:"parent_path,omitempty"`
	Lineno     int      `json:"lineno,omitempty" yaml:"lineno,omitempty"`
	EndLineno  int      `json:"endlineno,omitempty" yaml:"endlineno,omitempty"`
	Docstring  string   `json:"docstring,omitempty" yaml:"docstring,omitempty"`
	Labels     []string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Target     string   `json:"target,omitempty" yaml:"target,omitempty"`
	Value      string   `json:"value,omitempty" yaml:"value,omitempty"`
	Annotation string   `json:"annotation,omitempty" yaml:"annotation,omitempty"`
	Filepath   string   `json:"filepath,omitempty" yaml:"filepath,omitempty"`
}

// Parameter is the flat record of one function parameter.
type Parameter struct {
	FunctionPath string `json:"function" yaml:"function"`
	Position     int    `json:"position" yaml:"position"`
	Name         string `json:"name" yaml:"name"`
	Kind         string `json:"kind" yaml:"kind"`
	Annotation   string `json:"annotation,omitempty" yaml:"annotation,omitempty"`
	Default      string `json:"default,omitempty" yaml:"default,omitempty"`
}

// ObjectFilter narrows ListObjects. Zero fields match everything.
type ObjectFilter struct {
	Kind   string
	Prefix string
	Label  string
}
