package bundler

import (
	"github.com/paeckchen/paeckchen/internal/graph"
	"github.com/paeckchen/paeckchen/internal/runtime"
)

// A variable declared at the top of the bundle that makes a host global
// available to every module
type Binding struct {
	Name  string
	Index uint32
}

// Everything a build leaves behind for the next one. In watch mode the same
// state is used for every rebuild, which is what keeps module indices stable.
type State struct {
	Registry *graph.Registry
	Worklist *Worklist

	// Every global any module has used so far. Bits are only ever added.
	Globals runtime.Global

	// One binding per injected global, in injection order
	Bindings []Binding
	injected runtime.Global
}

func NewState() *State {
	return &State{
		Registry: graph.NewRegistry(),
		Worklist: NewWorklist(),
	}
}

// Adds a binding and a polyfill module for every detected global that doesn't
// have one yet. Returns the number of bindings added.
func (s *State) injectGlobals() int {
	added := 0
	for _, info := range runtime.Globals {
		if s.Globals&info.Flag == 0 || s.injected&info.Flag != 0 {
			continue
		}
		index := s.Registry.IndexOf(info.Path)
		if s.Registry.NeedsProcessing(info.Path) {
			s.Worklist.Enqueue(info.Path)
		}
		s.Bindings = append(s.Bindings, Binding{Name: info.Name, Index: index})
		s.injected |= info.Flag
		added++
	}
	return added
}
