package headers

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
)

// headerExts lists the extensions treated as C++ headers.
var headerExts = map[string]bool{
	".h":   true,
	".hh":  true,
	".hpp": true,
	".hxx": true,
	".h++": true,
	".inl": true,
}

// The grammar is initialized on first use.
var (
	cppGrammar  *sitter.Language
	grammarOnce sync.Once
)

// Language returns the tree-sitter C++ grammar.
func Language() *sitter.Language {
	grammarOnce.Do(func() {
		cppGrammar = cpp.GetLanguage()
	})
	return cppGrammar
}

// IsHeader reports whether path has a recognized header extension.
func IsHeader(path string) bool {
	return headerExts[strings.ToLower(filepath.Ext(path))]
}
