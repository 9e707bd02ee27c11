package gohost

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Stdlib returns a registry with a few standard library packages. os
// re-exports several io/fs types through type aliases, which the inspector
// records as aliases.
func Stdlib() *Registry {
	r := NewRegistry()

	errorsPkg := NewPackage("errors", "Package errors implements functions to manipulate errors.").
		Func("New", errors.New, "New returns an error that formats as the given text.").
		Func("Is", errors.Is, "Is reports whether any error in err's tree matches target.").
		Func("As", errors.As, "As finds the first error in err's tree that matches target.").
		Func("Unwrap", errors.Unwrap, "Unwrap returns the result of calling the Unwrap method on err.").
		Func("Join", errors.Join, "Join returns an error that wraps the given errors.").
		Var("ErrUnsupported", &errors.ErrUnsupported)

	fsPkg := NewPackage("io/fs", "Package fs defines basic interfaces to a file system.").
		Type("PathError", (*fs.PathError)(nil), "PathError records an error and the operation and file path that caused it.").
		Type("FileMode", fs.FileMode(0), "A FileMode represents a file's mode and permission bits.").
		Type("FileInfo", (*fs.FileInfo)(nil), "A FileInfo describes a file and is returned by Stat.").
		Type("DirEntry", (*fs.DirEntry)(nil), "A DirEntry is an entry read from a directory.").
		Func("ValidPath", fs.ValidPath, "ValidPath reports whether the given path name is valid for use in a call to Open.").
		Func("ReadFile", fs.ReadFile, "ReadFile reads the named file from the file system fs and returns its contents.").
		Var("ErrNotExist", &fs.ErrNotExist).
		Const("ModeDir", fs.ModeDir).
		Exports("PathError", "FileMode", "FileInfo", "DirEntry", "ValidPath", "ReadFile", "ErrNotExist", "ModeDir")

	ioPkg := NewPackage("io", "Package io provides basic interfaces to I/O primitives.").
		Type("Reader", (*io.Reader)(nil), "Reader is the interface that wraps the basic Read method.").
		Type("Writer", (*io.Writer)(nil), "Writer is the interface that wraps the basic Write method.").
		Func("ReadAll", io.ReadAll, "ReadAll reads from r until an error or EOF and returns the data it read.").
		Func("Copy", io.Copy, "Copy copies from src to dst until either EOF is reached on src or an error occurs.").
		Var("EOF", &io.EOF).
		Sub("fs", fsPkg)

	osPkg := NewPackage("os", "Package os provides a platform-independent interface to operating system functionality.").
		Func("Getenv", os.Getenv, "Getenv retrieves the value of the environment variable named by the key.").
		Func("ReadFile", os.ReadFile, "ReadFile reads the named file and returns the contents.").
		Func("WriteFile", os.WriteFile, "WriteFile writes data to the named file, creating it if necessary.").
		Func("ReadDir", os.ReadDir, "ReadDir reads the named directory, returning all its directory entries sorted by filename.").
		Func("IsNotExist", os.IsNotExist, "IsNotExist returns a boolean indicating whether its argument is known to report that a file or directory does not exist.").
		Type("File", (*os.File)(nil), "File represents an open file descriptor.").
		Type("PathError", (*os.PathError)(nil), "").
		Type("FileMode", os.FileMode(0), "").
		Type("FileInfo", (*os.FileInfo)(nil), "").
		Type("DirEntry", (*os.DirEntry)(nil), "").
		Var("Args", &os.Args).
		Var("ErrNotExist", &os.ErrNotExist)

	stringsPkg := NewPackage("strings", "Package strings implements simple functions to manipulate UTF-8 encoded strings.").
		Func("Cut", strings.Cut, "Cut slices s around the first instance of sep.").
		Func("Fields", strings.Fields, "Fields splits the string s around each instance of one or more consecutive white space characters.").
		Func("Join", strings.Join, "Join concatenates the elements of its first argument to create a single string.").
		Func("NewReplacer", strings.NewReplacer, "NewReplacer returns a new Replacer from a list of old, new string pairs.").
		Type("Builder", (*strings.Builder)(nil), "A Builder is used to efficiently build a string using Write methods.").
		Type("Replacer", (*strings.Replacer)(nil), "Replacer replaces a list of strings with replacements.")

	filepathPkg := NewPackage("path/filepath", "Package filepath implements utility routines for manipulating filename paths.").
		Func("Join", filepath.Join, "Join joins any number of path elements into a single path.").
		Func("Base", filepath.Base, "Base returns the last element of path.").
		Func("Ext", filepath.Ext, "Ext returns the file name extension used by path.").
		Func("WalkDir", filepath.WalkDir, "WalkDir walks the file tree rooted at root, calling fn for each file or directory in the tree.").
		Var("SkipDir", &filepath.SkipDir)

	r.Register(errorsPkg, fsPkg, ioPkg, osPkg, stringsPkg, filepathPkg)
	return r
}
