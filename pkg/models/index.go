package models

// RepositoryIndex is the full static picture of a target repository, and
// any auxiliary roots, built once up front and consulted by every
// resolution strategy afterward.
type RepositoryIndex struct {
	RepoRoot     string
	Symbols      map[string]SymbolDefinition // qualname -> def
	ShortNameMap map[string][]string         // bare name -> qualnames sharing it
	ImportMap    map[string][]ImportBinding  // file path -> its import bindings
	Calls        map[string][]string         // def qualname -> calls made in its body
	FileASTOk    map[string]bool             // file path -> whether it parsed cleanly
	FileToRoot   map[string]string           // file path -> which root it was discovered under
}

// NewRepositoryIndex returns an index with all maps initialized, ready for
// incremental population during a build.
func NewRepositoryIndex(repoRoot string) *RepositoryIndex {
	return &RepositoryIndex{
		RepoRoot:     repoRoot,
		Symbols:      make(map[string]SymbolDefinition),
		ShortNameMap: make(map[string][]string),
		ImportMap:    make(map[string][]ImportBinding),
		Calls:        make(map[string][]string),
		FileASTOk:    make(map[string]bool),
		FileToRoot:   make(map[string]string),
	}
}
