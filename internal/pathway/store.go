package pathway

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ManifestFile is the name of the master manifest at the content root.
const ManifestFile = "manifest.yaml"

// Manifest lists every known pathway in declared evaluation order.
type Manifest struct {
	Version  string          `yaml:"version" json:"version"`
	Pathways []ManifestEntry `yaml:"pathways" json:"pathways" validate:"required,min=1,dive"`
}

// ManifestEntry names one pathway and the file that defines it.
type ManifestEntry struct {
	ID    string `yaml:"id" json:"id" validate:"required"`
	Title string `yaml:"title,omitempty" json:"title,omitempty"`
	File  string `yaml:"file,omitempty" json:"file,omitempty"`
}

// Path returns the entry's file, defaulting to pathways/<id>.yaml.
func (e ManifestEntry) Path() string {
	if e.File != "" {
		return e.File
	}
	return path.Join("pathways", e.ID+".yaml")
}

// Store is the immutable, indexed set of loaded pathways.
//
// It is safe for concurrent readers; nothing mutates it after construction.
type Store struct {
	manifest Manifest
	order    []string
	byID     map[string]*Pathway
}

var structValidator = validator.New()

// LoadDir loads pathway content from a directory on disk.
func LoadDir(root string) (*Store, error) {
	return Load(os.DirFS(root))
}

// Load reads the manifest and every pathway file it lists.
//
// Any malformed file, structural violation, or id collision fails the whole load
// with a *LoadError.
func Load(fsys fs.FS) (*Store, error) {
	raw, err := fs.ReadFile(fsys, ManifestFile)
	if err != nil {
		return nil, &LoadError{File: ManifestFile, Err: err}
	}

	var manifest Manifest
	if err := decodeStrict(raw, &manifest); err != nil {
		return nil, &LoadError{File: ManifestFile, Err: err}
	}
	if err := structValidator.Struct(&manifest); err != nil {
		return nil, &LoadError{File: ManifestFile, Err: err}
	}

	pathways := make([]*Pathway, 0, len(manifest.Pathways))
	for _, entry := range manifest.Pathways {
		file := entry.Path()
		p, err := readPathway(fsys, file)
		if err != nil {
			return nil, err
		}
		if p.ID != entry.ID {
			return nil, loadErr(file, "pathway id %q does not match manifest id %q", p.ID, entry.ID)
		}
		if p.Title == "" {
			p.Title = entry.Title
		}
		pathways = append(pathways, p)
	}

	s, err := NewStore(pathways...)
	if err != nil {
		return nil, err
	}
	s.manifest.Version = manifest.Version
	return s, nil
}

// NewStore builds a store from already-decoded pathways, in argument order.
func NewStore(pathways ...*Pathway) (*Store, error) {
	s := &Store{
		order: make([]string, 0, len(pathways)),
		byID:  make(map[string]*Pathway, len(pathways)),
	}
	for _, p := range pathways {
		if p == nil {
			return nil, &LoadError{Err: errors.New("nil pathway")}
		}
		if _, dup := s.byID[p.ID]; dup {
			return nil, loadErr(p.ID, "duplicate pathway id %q", p.ID)
		}
		for id, n := range p.Nodes {
			if n != nil {
				n.ID = id
			}
		}
		s.byID[p.ID] = p
		s.order = append(s.order, p.ID)
		s.manifest.Pathways = append(s.manifest.Pathways, ManifestEntry{ID: p.ID, Title: p.Title})
	}
	return s, nil
}

// Get returns the pathway with the given id.
func (s *Store) Get(id string) (*Pathway, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p, nil
}

// ListIDs returns pathway ids in manifest order.
func (s *Store) ListIDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of pathways.
func (s *Store) Len() int {
	return len(s.order)
}

// Manifest returns the manifest the store was built from.
func (s *Store) Manifest() Manifest {
	m := s.manifest
	m.Pathways = append([]ManifestEntry(nil), s.manifest.Pathways...)
	return m
}

func readPathway(fsys fs.FS, file string) (*Pathway, error) {
	raw, err := fs.ReadFile(fsys, file)
	if err != nil {
		return nil, &LoadError{File: file, Err: err}
	}
	return Decode(file, raw)
}

// Decode parses and structurally checks a single pathway document.
func Decode(file string, raw []byte) (*Pathway, error) {
	var p Pathway
	if err := decodeStrict(raw, &p); err != nil {
		return nil, &LoadError{File: file, Err: err}
	}
	if err := structValidator.Struct(&p); err != nil {
		return nil, &LoadError{File: file, Err: err}
	}

	for _, id := range p.NodeIDs() {
		n := p.Nodes[id]
		n.ID = id
		for i, e := range n.Edges {
			if e.When == nil {
				continue
			}
			if err := e.When.Check(); err != nil {
				return nil, loadErr(file, "node %s edge %d: %v", id, i, err)
			}
		}
	}
	return &p, nil
}

func decodeStrict(raw []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty document")
		}
		return err
	}
	return nil
}
