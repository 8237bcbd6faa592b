package project

// ProjectType classifies the kind of project a marker identifies.
type ProjectType string

const (
	TypeGit          ProjectType = "git"
	TypeRust         ProjectType = "rust"
	TypeNode         ProjectType = "node"
	TypePython       ProjectType = "python"
	TypeGo           ProjectType = "go"
	TypeJava         ProjectType = "java"
	TypeGeneric      ProjectType = "generic"
	TypeCoderagLocal ProjectType = "coderag_local"
)

// Marker is a single filesystem entry whose presence identifies a project
// root, together with its priority (lower wins when multiple markers sit at
// the same directory depth).
type Marker struct {
	Name        string
	Priority    int
	ProjectType ProjectType
}

// CoderagMarker has priority 0: once a project has opted into local
// storage, it must keep using it regardless of what other markers exist
// above or alongside it.
var CoderagMarker = Marker{Name: ".coderag", Priority: 0, ProjectType: TypeCoderagLocal}

// DefaultMarkers is the ordered set of markers tested at every directory
// level, .coderag excluded (it is always checked first, separately).
var DefaultMarkers = []Marker{
	{Name: ".git", Priority: 10, ProjectType: TypeGit},
	{Name: "Cargo.toml", Priority: 20, ProjectType: TypeRust},
	{Name: "package.json", Priority: 20, ProjectType: TypeNode},
	{Name: "pyproject.toml", Priority: 20, ProjectType: TypePython},
	{Name: "go.mod", Priority: 20, ProjectType: TypeGo},
	{Name: "pom.xml", Priority: 25, ProjectType: TypeJava},
}

// findMarker returns the highest-priority (lowest Priority value) marker
// present in dir, or false if none match.
func findMarker(entries map[string]bool) (Marker, bool) {
	if entries[CoderagMarker.Name] {
		return CoderagMarker, true
	}

	best, found := Marker{}, false
	for _, m := range DefaultMarkers {
		if !entries[m.Name] {
			continue
		}
		if !found || m.Priority < best.Priority {
			best, found = m, true
		}
	}
	return best, found
}
