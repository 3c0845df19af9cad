package runtime

// This is the code that surrounds the module table in every bundle. Modules
// are functions in the "modules" array and are only run the first time they
// are required. A module's record is cached before the module runs, so a
// cycle sees the exports object as it is at that point instead of looping.

import (
	"strconv"

	"github.com/paeckchen/paeckchen/internal/graph"
)

const RequireName = "__paeckchen_require__"
const CacheName = "__paeckchen_cache__"
const TableName = "modules"

// The parameters every module function receives, in order
var WrapperParams = []string{"module", "exports"}

const Prelude = `var ` + CacheName + ` = [];
function ` + RequireName + `(index) {
  if (!(index in ` + CacheName + `)) {
    ` + CacheName + `[index] = { module: { exports: {} } };
    ` + TableName + `[index](` + CacheName + `[index].module, ` + CacheName + `[index].module.exports);
  }
  return ` + CacheName + `[index].module;
}
`

// An expression evaluating to the exports of the module at "index"
func RequireExpr(index uint32) string {
	return RequireName + "(" + strconv.FormatUint(uint64(index), 10) + ").exports"
}

func WrapperName(index uint32) string {
	return "_" + strconv.FormatUint(uint64(index), 10)
}

// Loads the entry point, which always has index 0
const Bootstrap = RequireName + "(0);\n"

type Global uint8

const (
	GlobalProcess Global = 1 << iota
	GlobalBuffer
	GlobalGlobal
)

// A host global that modules written for node expect to exist. When a module
// uses one of these without declaring it, the bundle gets a binding for it
// backed by a polyfill module.
type GlobalInfo struct {
	Flag Global
	Name string
	Path graph.ModulePath

	// The polyfill prefers the host's own value when there is one
	Source string
}

// Ordered by flag so bindings are always emitted in the same order
var Globals = []GlobalInfo{
	{Flag: GlobalProcess, Name: "process", Path: graph.VirtualPrefix + "process", Source: processSource},
	{Flag: GlobalBuffer, Name: "Buffer", Path: graph.VirtualPrefix + "buffer", Source: bufferSource},
	{Flag: GlobalGlobal, Name: "global", Path: graph.VirtualPrefix + "global", Source: globalSource},
}

func GlobalByName(name string) (GlobalInfo, bool) {
	for _, info := range Globals {
		if info.Name == name {
			return info, true
		}
	}
	return GlobalInfo{}, false
}

func GlobalByPath(path graph.ModulePath) (GlobalInfo, bool) {
	for _, info := range Globals {
		if info.Path == path {
			return info, true
		}
	}
	return GlobalInfo{}, false
}
