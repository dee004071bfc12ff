package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"frontcore/internal/declsrc"
	"frontcore/internal/driver"
)

// collectInputs expands directories into the declaration sources below
// them, sorted by path. Other arguments are passed through as they are so
// that unreadable files end up as diagnostics.
func collectInputs(args []string) ([]driver.Input, error) {
	var out []driver.Input
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			out = append(out, driver.Input{Path: arg})
			continue
		}
		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasSuffix(path, declsrc.Extension) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		slices.Sort(found)
		for _, path := range found {
			out = append(out, driver.Input{Path: path})
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no declaration sources found")
	}
	return out, nil
}
