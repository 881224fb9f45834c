// Package artifact keeps track of where each module's build products are
// in their lifecycle: compiled, bound, optimized and, for auto-started
// modules, patched.
package artifact

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-memdb"
	"github.com/mr-tron/base58"
)

type Stage int

const (
	Pending Stage = iota
	Compiled
	Bound
	Optimized
	Patched
)

func (s Stage) String() string {
	switch s {
	case Pending:
		return "pending"
	case Compiled:
		return "compiled"
	case Bound:
		return "bound"
	case Optimized:
		return "optimized"
	case Patched:
		return "patched"
	}

	return fmt.Sprintf("Stage(%d)", int(s))
}

var (
	ErrNotFound = errors.New("artifact not found")
	ErrStage    = errors.New("artifact is not at the expected stage")
)

// Artifact is the set of files produced for one module.
type Artifact struct {
	Name   string
	Binary string // compiler output
	Wasm   string // binding generator output, optimized in place
	Glue   string // JavaScript loader

	Stage  Stage
	Size   int64  // size of Wasm, once optimized
	Digest string // base58 sha256 of Wasm, once optimized
}

var Schema = memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		"artifact": {
			Name: "artifact",
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "Name"},
				},
				"stage": {
					Name:    "stage",
					Indexer: &memdb.IntFieldIndex{Field: "Stage"},
				},
			},
		},
	},
}

type Registry struct {
	DB *memdb.MemDB
}

func NewRegistry() (*Registry, error) {
	db, err := memdb.NewMemDB(&Schema)
	if err != nil {
		return nil, err
	}

	return &Registry{DB: db}, nil
}

// Put inserts or replaces an artifact.
func (r *Registry) Put(a Artifact) error {
	tx := r.DB.Txn(true)
	defer tx.Abort()

	if err := tx.Insert("artifact", &a); err != nil {
		return err
	}

	tx.Commit()
	return nil
}

func (r *Registry) Get(name string) (Artifact, error) {
	tx := r.DB.Txn(false)
	defer tx.Abort()

	v, err := tx.First("artifact", "id", name)
	if err != nil {
		return Artifact{}, err
	} else if v == nil {
		return Artifact{}, fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	return *v.(*Artifact), nil
}

// Expect returns the named artifact, provided it is at stage s.
func (r *Registry) Expect(name string, s Stage) (Artifact, error) {
	a, err := r.Get(name)
	if err == nil && a.Stage != s {
		err = fmt.Errorf("%s is %s, want %s: %w", name, a.Stage, s, ErrStage)
	}

	return a, err
}

// Advance moves an artifact from one stage to the next.  The artifact
// must currently be at stage from; mutate, if not nil, may record
// additional results before the new stage is committed.  Mutate runs
// under the write lock and should only do bookkeeping.
func (r *Registry) Advance(name string, from, to Stage, mutate func(*Artifact) error) error {
	tx := r.DB.Txn(true)
	defer tx.Abort()

	v, err := tx.First("artifact", "id", name)
	if err != nil {
		return err
	} else if v == nil {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	a := *v.(*Artifact)
	if a.Stage != from {
		return fmt.Errorf("%s is %s, want %s: %w", name, a.Stage, from, ErrStage)
	}

	if mutate != nil {
		if err := mutate(&a); err != nil {
			return err
		}
	}
	a.Stage = to

	if err := tx.Insert("artifact", &a); err != nil {
		return err
	}

	tx.Commit()
	return nil
}

// List returns every artifact ordered by name.
func (r *Registry) List() ([]Artifact, error) {
	return r.collect("id")
}

// AtStage returns the artifacts currently at stage s.
func (r *Registry) AtStage(s Stage) ([]Artifact, error) {
	return r.collect("stage", int(s))
}

func (r *Registry) collect(index string, args ...any) ([]Artifact, error) {
	tx := r.DB.Txn(false)
	defer tx.Abort()

	it, err := tx.Get("artifact", index, args...)
	if err != nil {
		return nil, err
	}

	var as []Artifact
	for v := it.Next(); v != nil; v = it.Next() {
		as = append(as, *v.(*Artifact))
	}

	return as, nil
}

// Fingerprint hashes the file at path, returning the base58-encoded
// sha256 digest and the file size.
func Fingerprint(path string) (digest string, size int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	if size, err = io.Copy(h, f); err != nil {
		return "", 0, err
	}

	return base58.Encode(h.Sum(nil)), size, nil
}
