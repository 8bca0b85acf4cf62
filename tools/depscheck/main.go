// Command depscheck keeps the agent core independent of the demo host, the
// status server and the process wiring.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

const modulePrefix = "mine-and-die/agent/"

type packageInfo struct {
	ImportPath string
	Imports    []string
}

// rule forbids packages under From from importing anything under To.
type rule struct {
	From []string
	To   []string
}

var rules = []rule{
	{
		From: []string{
			"internal/entity", "internal/view", "internal/scoring", "internal/behavior",
			"internal/states", "internal/locations", "internal/blacklist", "internal/agent",
		},
		To: []string{"internal/simenv", "internal/net", "internal/app", "internal/config"},
	},
	{
		From: []string{"internal/env", "internal/geom"},
		To:   []string{"internal/"},
	},
}

func main() {
	cmd := exec.Command("go", "list", "-json", "./...")
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "depscheck: failed to list packages: %v\n", err)
		os.Exit(1)
	}

	pkgs, err := decodePackages(bytes.NewReader(output))
	if err != nil {
		fmt.Fprintf(os.Stderr, "depscheck: failed to decode package info: %v\n", err)
		os.Exit(1)
	}

	if found := violations(pkgs, rules); len(found) > 0 {
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range found {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

func decodePackages(r io.Reader) ([]packageInfo, error) {
	decoder := json.NewDecoder(r)
	var pkgs []packageInfo
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				return pkgs, nil
			}
			return nil, err
		}
		pkgs = append(pkgs, pkg)
	}
}

func violations(pkgs []packageInfo, rules []rule) []string {
	var found []string
	for _, pkg := range pkgs {
		rel := strings.TrimPrefix(pkg.ImportPath, modulePrefix)
		for _, r := range rules {
			if !within(rel, r.From) {
				continue
			}
			for _, imp := range pkg.Imports {
				if !strings.HasPrefix(imp, modulePrefix) {
					continue
				}
				target := strings.TrimPrefix(imp, modulePrefix)
				if within(target, r.To) && !within(target, r.From) {
					found = append(found, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
				}
			}
		}
	}
	sort.Strings(found)
	return found
}

func within(path string, roots []string) bool {
	for _, root := range roots {
		root = strings.TrimSuffix(root, "/")
		if path == root || strings.HasPrefix(path, root+"/") {
			return true
		}
	}
	return false
}
