package model

// Stats counts the nodes of one or more trees.
type Stats struct {
	Modules    int `json:"modules" yaml:"modules"`
	Classes    int `json:"classes" yaml:"classes"`
	Functions  int `json:"functions" yaml:"functions"`
	Attributes int `json:"attributes" yaml:"attributes"`
	Aliases    int `json:"aliases" yaml:"aliases"`
	Lines      int `json:"lines" yaml:"lines"`
	Exported   int `json:"exported" yaml:"exported"`
}

// LineCounter reports how many source lines are known.
type LineCounter interface {
	Count() int
}

// ComputeStats counts every node reachable from roots. lines may be nil.
func ComputeStats(lines LineCounter, roots ...*Module) Stats {
	var s Stats
	for _, root := range roots {
		Walk(root, func(n Node) bool {
			switch v := n.(type) {
			case *Module:
				s.Modules++
				s.Exported += len(v.Exports)
			case *Class:
				s.Classes++
			case *Function:
				s.Functions++
			case *Attribute:
				s.Attributes++
			case *Alias:
				s.Aliases++
			}
			return true
		})
	}
	if lines != nil {
		s.Lines = lines.Count()
	}
	return s
}

// Total returns the number of non-alias nodes.
func (s Stats) Total() int {
	return s.Modules + s.Classes + s.Functions + s.Attributes
}
