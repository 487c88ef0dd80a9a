package types

// EntryKind tags what a resolved path points at.
type EntryKind int

const (
	KindFile EntryKind = iota
	KindDirectory
)

func (k EntryKind) String() string {
	if k == KindDirectory {
		return "directory"
	}
	return "file"
}

// Entry is one child of a listed directory.
type Entry struct {
	Name        string `json:"name"`
	IsDirectory bool   `json:"isDirectory"`
	Path        string `json:"path"` // relative to the served root, slash separated, leading "/"
}

// Listing is the content of a directory, split for rendering.
type Listing struct {
	Folders []Entry `json:"folders"`
	Files   []Entry `json:"files"`
}

// FileMeta describes a single file page.
type FileMeta struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Resolved is the result of resolving a browse path: exactly one of Listing or File is set, according to Kind.
type Resolved struct {
	Kind     EntryKind
	AbsPath  string // never rendered
	Relative string // cleaned relative path, "" for root
	Listing  *Listing
	File     *FileMeta
}

// ShareRequest is created per share POST and consumed by the archiver / coordinator.
type ShareRequest struct {
	Target  string
	AbsPath string
	Kind    EntryKind
}
