// Package source resolves a Zinc project's file tree into registered files
// ready for parsing, following the entry-file stem rules of §4.3: a
// directory's entry file is "main" (application, root only), "lib" (library,
// root only) or "mod" (submodule, forbidden at root); every other ".zn" file
// or subdirectory declares a child module.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zinc-lang/zinc/internal/fileset"
)

const sourceExt = ".zn"

// EntryKind distinguishes the three admissible root entry files.
type EntryKind int

const (
	EntryNone EntryKind = iota
	EntryMain
	EntryLib
	EntryMod
)

// ErrorKind is the closed taxonomy of resolution failures (§4.3).
type ErrorKind int

const (
	_ ErrorKind = iota
	ApplicationEntryNotFound
	ModuleEntryInRoot
	ApplicationEntryBeyondRoot
	ModuleEntryNotFound
	ExtensionInvalid
)

func (k ErrorKind) String() string {
	switch k {
	case ApplicationEntryNotFound:
		return "ApplicationEntryNotFound"
	case ModuleEntryInRoot:
		return "ModuleEntryInRoot"
	case ApplicationEntryBeyondRoot:
		return "ApplicationEntryBeyondRoot"
	case ModuleEntryNotFound:
		return "ModuleEntryNotFound"
	case ExtensionInvalid:
		return "ExtensionInvalid"
	default:
		return "unknown"
	}
}

// Error reports a source resolution failure at a filesystem path.
type Error struct {
	Kind ErrorKind
	Path string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Path) }

// Module is one resolved source module: either a single file, or a directory
// with its own entry file and named children.
type Module struct {
	Name     string
	FileID   fileset.FileID
	Path     string
	Entry    EntryKind // EntryNone for a plain (non-entry) child module file
	Children map[string]*Module
}

// Tree is the fully resolved project: the registered FileSet backing every
// module's FileID, and the root module.
type Tree struct {
	Files *fileset.FileSet
	Root  *Module
}

// ResolvePath walks the filesystem rooted at path and resolves it into a
// Tree. path may name a single file (a standalone circuit/library) or a
// project directory.
func ResolvePath(path string) (*Tree, error) {
	fs := fileset.New()
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	r := &resolver{fs: fs}
	var root *Module
	if info.IsDir() {
		root, err = r.resolveDir(path, true)
	} else {
		root, err = r.resolveFile(path)
	}
	if err != nil {
		return nil, err
	}
	return &Tree{Files: fs, Root: root}, nil
}

type resolver struct {
	fs *fileset.FileSet
}

func (r *resolver) resolveFile(path string) (*Module, error) {
	if filepath.Ext(path) != sourceExt {
		return nil, &Error{Kind: ExtensionInvalid, Path: path}
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	id := r.fs.AddFile(path, content)
	return &Module{Name: stem(path), FileID: id, Path: path}, nil
}

// resolveDir resolves one directory, applying the entry-file rules. isRoot
// restricts which entry stem is acceptable at this level.
func (r *resolver) resolveDir(dir string, isRoot bool) (*Module, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var entryPath string
	var entryKind EntryKind
	children := map[string]*Module{}

	for _, de := range entries {
		name := de.Name()
		full := filepath.Join(dir, name)

		if de.IsDir() {
			child, err := r.resolveDir(full, false)
			if err != nil {
				return nil, err
			}
			children[child.Name] = child
			continue
		}

		if filepath.Ext(name) != sourceExt {
			continue
		}

		switch stem(name) {
		case "main":
			if !isRoot {
				return nil, &Error{Kind: ApplicationEntryBeyondRoot, Path: full}
			}
			entryPath, entryKind = full, EntryMain
		case "lib":
			if !isRoot {
				return nil, &Error{Kind: ApplicationEntryBeyondRoot, Path: full}
			}
			entryPath, entryKind = full, EntryLib
		case "mod":
			if isRoot {
				return nil, &Error{Kind: ModuleEntryInRoot, Path: full}
			}
			entryPath, entryKind = full, EntryMod
		default:
			mod, err := r.resolveFile(full)
			if err != nil {
				return nil, err
			}
			children[mod.Name] = mod
		}
	}

	if entryPath == "" {
		if isRoot {
			return nil, &Error{Kind: ApplicationEntryNotFound, Path: dir}
		}
		return nil, &Error{Kind: ModuleEntryNotFound, Path: dir}
	}

	content, err := os.ReadFile(entryPath)
	if err != nil {
		return nil, err
	}
	id := r.fs.AddFile(entryPath, content)

	return &Module{Name: filepath.Base(dir), FileID: id, Path: dir, Entry: entryKind, Children: children}, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
