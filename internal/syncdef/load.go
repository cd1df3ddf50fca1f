package syncdef

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/concordkit/concord/internal/engine"
)

// LoadMode controls error handling while loading a definitions directory.
type LoadMode int

const (
	// FailFast returns on the first compile error.
	FailFast LoadMode = iota
	// CollectAll keeps going and returns every compile error at once,
	// which is what the validate command wants for authoring feedback.
	CollectAll
)

// Result is the outcome of loading a definitions directory.
type Result struct {
	Syncs     []*engine.Sync
	FileCount int
}

// LoadDir loads every .cue file in dir as one CUE instance and compiles
// the syncs declared under the top-level "sync" field. Syncs come back
// in CUE's field order, which is deterministic for a given input.
func LoadDir(dir string, mode LoadMode) (*Result, []error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("definitions directory: %w", err)}
	}
	if !info.IsDir() {
		return nil, []error{fmt.Errorf("not a directory: %s", dir)}
	}

	files, err := findCUEFiles(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("scanning %s: %w", dir, err)}
	}
	if len(files) == 0 {
		return nil, []error{fmt.Errorf("no .cue files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{fmt.Errorf("no CUE instances loaded from %s", dir)}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{fmt.Errorf("loading CUE files: %w", inst.Err)}
	}
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{fmt.Errorf("building CUE value: %w", err)}
	}

	result := &Result{FileCount: len(files)}
	var errs []error

	syncsVal := value.LookupPath(cue.ParsePath("sync"))
	if !syncsVal.Exists() {
		return result, []error{fmt.Errorf("no top-level \"sync\" field in %s", dir)}
	}
	iter, err := syncsVal.Fields()
	if err != nil {
		return result, []error{fmt.Errorf("iterating syncs: %w", err)}
	}
	for iter.Next() {
		s, err := CompileSync(iter.Value())
		if err != nil {
			errs = append(errs, err)
			if mode == FailFast {
				return result, errs
			}
			continue
		}
		result.Syncs = append(result.Syncs, s)
	}
	return result, errs
}

func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
