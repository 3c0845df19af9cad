package resolver

import (
	"encoding/json"
	"fmt"
)

type packageJSON struct {
	Main string `json:"main"`
}

// Returns the "main" field of the "package.json" file in the directory. A
// missing file, a file that isn't valid JSON, and a missing field all count as
// no main field.
func (r *Resolver) parseMainField(dir string) (string, bool) {
	path := r.fs.Join(dir, "package.json")
	contents, err := r.fs.ReadFile(path)
	if err != nil {
		return "", false
	}

	var pkg packageJSON
	if err := json.Unmarshal([]byte(contents), &pkg); err != nil {
		r.tracer.Trace(fmt.Sprintf("Failed to parse %q: %s", path, err.Error()))
		return "", false
	}
	if pkg.Main == "" {
		return "", false
	}
	return pkg.Main, true
}
