package grammar

import (
	"sort"
	"unsafe"

	tree_sitter_yaml "github.com/tree-sitter-grammars/tree-sitter-yaml/bindings/go"
	tree_sitter_bash "github.com/tree-sitter/tree-sitter-bash/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_json "github.com/tree-sitter/tree-sitter-json/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// builtinLanguages are the grammars linked into the binary, addressed as
// "builtin:<name>".
var builtinLanguages = map[string]func() unsafe.Pointer{
	"bash":       tree_sitter_bash.Language,
	"go":         tree_sitter_go.Language,
	"java":       tree_sitter_java.Language,
	"javascript": tree_sitter_javascript.Language,
	"json":       tree_sitter_json.Language,
	"python":     tree_sitter_python.Language,
	"rust":       tree_sitter_rust.Language,
	"tsx":        tree_sitter_typescript.LanguageTSX,
	"typescript": tree_sitter_typescript.LanguageTypescript,
	"yaml":       tree_sitter_yaml.Language,
}

// BuiltinNames lists the grammars linked into the binary.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtinLanguages))
	for name := range builtinLanguages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
