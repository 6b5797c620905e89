package architecture_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const modulePrefix = "focustrail/internal/"

// sourceFile is one non-test Go file and the imports it declares.
type sourceFile struct {
	path    string
	module  string
	layer   string
	imports []string
}

func loadSources(t *testing.T, dir string) []sourceFile {
	t.Helper()
	fset := token.NewFileSet()
	var out []sourceFile
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		node, parseErr := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if parseErr != nil {
			return parseErr
		}
		slash := filepath.ToSlash(path)
		f := sourceFile{path: slash, module: moduleName(slash), layer: detectLayer(slash)}
		for _, imp := range node.Imports {
			f.imports = append(f.imports, strings.Trim(imp.Path.Value, `"`))
		}
		out = append(out, f)
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	return out
}

func TestModuleLayerImports(t *testing.T) {
	t.Parallel()
	for _, f := range loadSources(t, filepath.Join("..", "modules")) {
		if f.module == "" || f.layer == "" {
			continue
		}
		for _, imp := range f.imports {
			if reason := layerViolation(f.module, f.layer, imp); reason != "" {
				t.Errorf("%s (%s) imports %s: %s", f.path, f.layer, imp, reason)
			}
		}
	}
}

func TestDomainPackagesStayPure(t *testing.T) {
	t.Parallel()
	for _, f := range loadSources(t, filepath.Join("..", "modules")) {
		if f.layer != "domain" {
			continue
		}
		for _, imp := range f.imports {
			if reason := domainViolation(f.module, imp); reason != "" {
				t.Errorf("%s imports %s: %s", f.path, imp, reason)
			}
		}
	}
}

func TestStorageStaysInOutboundAdapters(t *testing.T) {
	t.Parallel()
	for _, f := range loadSources(t, filepath.Join("..", "modules")) {
		if f.layer == "adapter/out" {
			continue
		}
		for _, imp := range f.imports {
			if isStorage(imp) {
				t.Errorf("%s (%s) imports storage package %s", f.path, f.layer, imp)
			}
		}
	}
}

func TestPlatformAndUIDoNotReachIntoModules(t *testing.T) {
	t.Parallel()
	for _, f := range loadSources(t, filepath.Join("..", "platform")) {
		for _, imp := range f.imports {
			if strings.HasPrefix(imp, modulePrefix+"modules/") || strings.HasPrefix(imp, modulePrefix+"ui/") {
				t.Errorf("platform file %s imports %s", f.path, imp)
			}
		}
	}
	for _, f := range loadSources(t, filepath.Join("..", "ui")) {
		for _, imp := range f.imports {
			if strings.HasPrefix(imp, modulePrefix+"modules/") && !isPortIn(imp) && !isDTO(imp) {
				t.Errorf("ui file %s imports %s", f.path, imp)
			}
		}
	}
}

func TestLayerRules(t *testing.T) {
	t.Parallel()
	cases := []struct {
		module, layer, imp string
		forbidden          bool
	}{
		{"session", "adapter/out", modulePrefix + "modules/capture/port/in", false},
		{"session", "adapter/out", modulePrefix + "modules/capture/service", true},
		{"session", "service", modulePrefix + "modules/capture/port/in", true},
		{"session", "port/out", modulePrefix + "modules/capture/dto", false},
		{"session", "domain", modulePrefix + "modules/capture/dto", true},
		{"segmentation", "adapter/in", modulePrefix + "modules/segmentation/service", true},
		{"segmentation", "usecase", modulePrefix + "modules/segmentation/adapter/out", true},
		{"segmentation", "service", modulePrefix + "modules/segmentation/usecase", true},
		{"capture", "service", modulePrefix + "modules/capture/port/out", false},
	}
	for _, tc := range cases {
		got := layerViolation(tc.module, tc.layer, tc.imp) != ""
		if got != tc.forbidden {
			t.Fatalf("%s/%s -> %s: forbidden=%t, want %t", tc.module, tc.layer, tc.imp, got, tc.forbidden)
		}
	}
	if domainViolation("segmentation", "database/sql") == "" || domainViolation("segmentation", modulePrefix+"platform/store") == "" {
		t.Fatalf("segmentation domain must reject storage imports")
	}
	if domainViolation("segmentation", modulePrefix+"platform/id") != "" || domainViolation("capture", "time") != "" {
		t.Fatalf("domain must accept its pure helpers")
	}
}

func moduleName(path string) string {
	parts := strings.Split(path, "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "modules" {
			return parts[i+1]
		}
	}
	return ""
}

func detectLayer(path string) string {
	for _, layer := range []string{"adapter/in", "adapter/out", "usecase", "service", "domain", "port/in", "port/out", "dto"} {
		if strings.Contains(path, "/"+layer+"/") || strings.HasSuffix(path, "/"+layer) {
			return layer
		}
	}
	return ""
}

func isPortIn(path string) bool {
	return strings.Contains(path, "/port/in/") || strings.HasSuffix(path, "/port/in")
}

func isDTO(path string) bool {
	return strings.Contains(path, "/dto/") || strings.HasSuffix(path, "/dto")
}

func isStorage(path string) bool {
	return path == "database/sql" ||
		strings.HasPrefix(path, "modernc.org/sqlite") ||
		path == modulePrefix+"platform/store" ||
		path == modulePrefix+"platform/tx"
}

// layerViolation returns why importPath may not be imported from the given
// module layer, or "" when it may.
func layerViolation(module, layer, importPath string) string {
	if !strings.HasPrefix(importPath, modulePrefix+"modules/") {
		return ""
	}
	if !strings.HasPrefix(importPath, modulePrefix+"modules/"+module+"/") {
		switch {
		case isDTO(importPath):
			if layer == "domain" {
				return "domain must not depend on another module"
			}
			return ""
		case isPortIn(importPath):
			if layer != "adapter/out" {
				return "other modules are reached only through adapter/out bridges"
			}
			return ""
		default:
			return "other modules are reachable only through port/in or dto"
		}
	}

	target := detectLayer(importPath)
	switch layer {
	case "adapter/in":
		if target != "port/in" && target != "dto" {
			return "inbound adapters talk to port/in only"
		}
	case "usecase":
		if target == "adapter/in" || target == "adapter/out" {
			return "usecases must not know adapters"
		}
	case "service":
		if target == "adapter/in" || target == "adapter/out" || target == "usecase" {
			return "services depend on ports and domain only"
		}
	case "domain", "dto":
		if target != "domain" && target != layer {
			return layer + " must not depend on outer layers"
		}
	case "port/in":
		if target != "dto" && target != "domain" {
			return "inbound ports expose dto only"
		}
	case "port/out":
		if target != "domain" && target != "dto" {
			return "outbound ports describe domain types only"
		}
	}
	return ""
}

var pureDomainPlatform = map[string]bool{
	modulePrefix + "platform/clock":  true,
	modulePrefix + "platform/errors": true,
	modulePrefix + "platform/id":     true,
	modulePrefix + "platform/phash":  true,
}

var impureStdlib = []string{"database/sql", "net", "os", "log", "syscall", "io/fs"}

// domainViolation keeps domain packages free of I/O and frameworks so the
// segmentation engine and the timer stay deterministic.
func domainViolation(module, importPath string) string {
	if strings.HasPrefix(importPath, modulePrefix) {
		if strings.HasPrefix(importPath, modulePrefix+"modules/"+module+"/domain") || pureDomainPlatform[importPath] {
			return ""
		}
		return "domain may use only clock, errors, id and phash from the platform"
	}
	first, _, _ := strings.Cut(importPath, "/")
	if strings.Contains(first, ".") {
		return "domain must not import third-party packages"
	}
	for _, p := range impureStdlib {
		if importPath == p || strings.HasPrefix(importPath, p+"/") {
			return "domain must not perform I/O"
		}
	}
	return ""
}
