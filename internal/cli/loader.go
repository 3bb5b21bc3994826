package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/mthresh/internal/compiler"
	"github.com/roach88/mthresh/internal/ir"
	"github.com/roach88/mthresh/internal/op"
)

// Error codes shared by all commands. Program-level diagnostics use the
// E1xx (validation), E2xx (relation) and E3xx (inference) ranges.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path, run or database not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeNoPrograms  = "E008" // No programs declared
	ErrCodeDatabase    = "E009" // Check history unavailable

	ErrCodeCUE         = "E010" // CUE evaluation error
	ErrCodeInvalidVar  = "E011" // Malformed input declaration
	ErrCodeInvalidNode = "E012" // Malformed node declaration
)

// LoadMode controls how errors are handled during program loading.
type LoadMode int

const (
	// LoadModeFailFast stops at the first program that does not compile.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll compiles every program and reports all errors.
	LoadModeCollectAll
)

// LoadResult holds the programs compiled from one directory, in the
// order the CUE package declares them.
type LoadResult struct {
	Programs  []*ir.Program
	CUEValue  cue.Value
	FileCount int
}

// LoadError is a failure to turn a directory into programs.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // valid when the error points into a CUE file
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func loadErrorf(code, format string, args ...any) *LoadError {
	return &LoadError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// LoadPrograms builds the CUE package in dir and compiles every program
// declared under its top-level "program" field. Directory and CUE errors
// are always fatal; mode decides whether compile errors stop the load.
func LoadPrograms(dir string, reg *op.Registry, mode LoadMode) (*LoadResult, []error) {
	value, fileCount, lerr := buildPackage(dir)
	if lerr != nil {
		return nil, []error{lerr}
	}
	result := &LoadResult{CUEValue: value, FileCount: fileCount}

	programs := value.LookupPath(cue.ParsePath("program"))
	if !programs.Exists() {
		return result, []error{loadErrorf(ErrCodeNoPrograms, "no programs found")}
	}

	iter, err := programs.Fields()
	if err != nil {
		return result, []error{loadErrorf(ErrCodeGeneric, "iterating programs: %v", err)}
	}

	var errs []error
	for iter.Next() {
		prog, err := compiler.CompileProgram(iter.Value(), reg)
		if err != nil {
			errs = append(errs, convertCompileError(err, "program."+iter.Label()))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Programs = append(result.Programs, prog)
	}

	if len(result.Programs) == 0 && len(errs) == 0 {
		errs = append(errs, loadErrorf(ErrCodeNoPrograms, "no programs found"))
	}
	return result, errs
}

// buildPackage evaluates the CUE package rooted at dir.
func buildPackage(dir string) (cue.Value, int, *LoadError) {
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return cue.Value{}, 0, loadErrorf(ErrCodeNotFound, "programs directory not found: %s", dir)
	case err != nil:
		return cue.Value{}, 0, loadErrorf(ErrCodeNotFound, "error accessing programs directory: %v", err)
	case !info.IsDir():
		return cue.Value{}, 0, loadErrorf(ErrCodeNotFound, "not a directory: %s", dir)
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return cue.Value{}, 0, loadErrorf(ErrCodeScanError, "error scanning directory: %v", err)
	}
	if len(files) == 0 {
		return cue.Value{}, 0, loadErrorf(ErrCodeNoFiles, "no CUE files found in %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, 0, loadErrorf(ErrCodeLoadFailed, "no CUE instances loaded")
	}
	if inst := instances[0]; inst.Err != nil {
		return cue.Value{}, 0, loadErrorf(ErrCodeLoadFailed, "loading CUE files: %v", inst.Err)
	}

	value := cuecontext.New().BuildInstance(instances[0])
	if err := value.Err(); err != nil {
		return cue.Value{}, 0, loadErrorf(ErrCodeBuildFailed, "building CUE value: %v", err)
	}
	return value, len(files), nil
}

// FindCUEFiles returns the .cue files under dir.
func FindCUEFiles(dir string) ([]string, error) {
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

// convertCompileError prefixes a compile error with the program it came
// from and classifies it by the field it names.
func convertCompileError(err error, program string) *LoadError {
	var ce *compiler.CompileError
	if !errors.As(err, &ce) {
		return loadErrorf(ErrCodeGeneric, "%s: %v", program, err)
	}
	return &LoadError{
		Code:    MapFieldToErrorCode(ce.Field),
		Message: fmt.Sprintf("%s: %s: %s", program, ce.Field, ce.Message),
		Pos:     ce.Pos,
	}
}

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return ErrCodeCUE
	case field == "var" || strings.HasPrefix(field, "var."):
		return ErrCodeInvalidVar
	case field == "node" || strings.HasPrefix(field, "node."):
		return ErrCodeInvalidNode
	default:
		return ErrCodeGeneric
	}
}

// firstLoadError reports the code and message of the first load error.
func firstLoadError(errs []error) (string, string) {
	return loadErrorParts(errs[0])
}

func loadErrorParts(err error) (string, string) {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code, le.Message
	}
	return ErrCodeGeneric, err.Error()
}
