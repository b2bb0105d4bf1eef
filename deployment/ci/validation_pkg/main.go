// Command validation_pkg checks the package layout of the module: every
// non-main package must be named after its folder and folder names must be
// unique across the tree, so imports never need an alias.
package main

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var skipDirs = map[string]bool{
	"vendor":     true,
	"docs":       true,
	"tmp":        true,
	".git":       true,
	"deployment": true,
	".vscode":    true,
	".idea":      true,
}

func main() {
	problems, err := check(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "validation_pkg: %v\n", err)
		os.Exit(2)
	}

	for _, p := range problems {
		fmt.Println("ERROR:", p)
	}
	if len(problems) > 0 {
		os.Exit(1)
	}

	fmt.Println("No problems found.")
}

// check walks root and reports package names that differ from their folder
// and folder names used more than once.
func check(root string) ([]string, error) {
	var problems []string
	folders := make(map[string][]string)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if skipDirs[name] || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			folders[name] = append(folders[name], path)
			return nil
		}

		if filepath.Ext(name) != ".go" || strings.HasSuffix(name, "_test.go") {
			return nil
		}

		pkg, err := packageName(path)
		if err != nil {
			return err
		}

		dir := filepath.Dir(path)
		if pkg == "" || pkg == "main" || dir == root {
			return nil
		}

		if folder := filepath.Base(dir); pkg != folder {
			problems = append(problems, fmt.Sprintf("package %q does not match folder %q in %s", pkg, folder, path))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(folders))
	for name := range folders {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if paths := folders[name]; len(paths) > 1 {
			problems = append(problems, fmt.Sprintf("folder %q is duplicated in %s", name, strings.Join(paths, ", ")))
		}
	}

	return problems, nil
}

func packageName(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if pkg, ok := strings.CutPrefix(line, "package "); ok {
			return strings.TrimSpace(pkg), nil
		}
	}
	return "", scanner.Err()
}
