package crc

import (
	_ "embed"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"golang.org/x/text/unicode/norm"
)

//go:embed catalog.cue
var defaultCatalogCUE []byte

// Definition is one catalog entry, in Rocksoft parameter form.
type Definition struct {
	Name string

	// Poly is the generator polynomial with its implicit leading bit set.
	Poly *big.Int

	// Init is the register value before the first byte is processed.
	Init uint64

	XorOut     uint64
	ReflectIn  bool
	ReflectOut bool

	// Check is the CRC of "123456789" when HasCheck is set.
	Check    uint64
	HasCheck bool
}

// Catalog is a read-only repository of algorithm definitions.
type Catalog interface {
	// Names returns every algorithm name in sorted order.
	Names() []string

	// Lookup returns the definition registered under name.
	Lookup(name string) (Definition, bool)
}

// MapCatalog is an in-memory Catalog. Keys are normalized on construction.
type MapCatalog struct {
	defs  map[string]Definition
	names []string
}

// NewMapCatalog builds a catalog from defs. Names that collide after
// normalization are rejected.
func NewMapCatalog(defs ...Definition) (*MapCatalog, error) {
	c := &MapCatalog{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		key := NormalizeName(d.Name)
		if key == "" {
			return nil, fmt.Errorf("catalog entry has empty name")
		}
		if _, dup := c.defs[key]; dup {
			return nil, fmt.Errorf("duplicate catalog entry %q", d.Name)
		}
		d.Name = key
		c.defs[key] = d
		c.names = append(c.names, key)
	}
	sort.Strings(c.names)
	return c, nil
}

// Names implements Catalog.
func (c *MapCatalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Lookup implements Catalog.
func (c *MapCatalog) Lookup(name string) (Definition, bool) {
	d, ok := c.defs[NormalizeName(name)]
	return d, ok
}

// NormalizeName maps an algorithm name to its catalog key: NFC, trimmed,
// lower case.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(name)))
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (*MapCatalog, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(defaultCatalogCUE, cue.Filename("catalog.cue"))
	return catalogFromValue(v)
}

// LoadCatalog reads a CUE catalog from path. A directory is loaded as a CUE
// package instance; a file is compiled on its own.
func LoadCatalog(path string) (*MapCatalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat catalog: %w", err)
	}

	ctx := cuecontext.New()
	var v cue.Value
	if info.IsDir() {
		instances := load.Instances([]string{"."}, &load.Config{Dir: path})
		if len(instances) == 0 {
			return nil, fmt.Errorf("no CUE instances in %s", path)
		}
		if instances[0].Err != nil {
			return nil, fmt.Errorf("loading CUE files: %w", instances[0].Err)
		}
		v = ctx.BuildInstance(instances[0])
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog: %w", err)
		}
		v = ctx.CompileBytes(data, cue.Filename(path))
	}
	return catalogFromValue(v)
}

func catalogFromValue(v cue.Value) (*MapCatalog, error) {
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("building CUE value: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}

	algos := v.LookupPath(cue.ParsePath("algorithm"))
	if !algos.Exists() {
		return nil, fmt.Errorf("catalog has no algorithm field")
	}
	iter, err := algos.Fields()
	if err != nil {
		return nil, fmt.Errorf("iterating algorithms: %w", err)
	}

	var defs []Definition
	for iter.Next() {
		name := iter.Selector().Unquoted()
		d, err := decodeDefinition(name, iter.Value())
		if err != nil {
			return nil, fmt.Errorf("algorithm %q: %w", name, err)
		}
		defs = append(defs, d)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	return NewMapCatalog(defs...)
}

func decodeDefinition(name string, v cue.Value) (Definition, error) {
	d := Definition{Name: name}

	poly, err := v.LookupPath(cue.ParsePath("poly")).Int(nil)
	if err != nil {
		return d, fmt.Errorf("poly: %w", err)
	}
	d.Poly = poly

	if d.Init, err = v.LookupPath(cue.ParsePath("init")).Uint64(); err != nil {
		return d, fmt.Errorf("init: %w", err)
	}
	if d.XorOut, err = v.LookupPath(cue.ParsePath("xor_out")).Uint64(); err != nil {
		return d, fmt.Errorf("xor_out: %w", err)
	}
	if d.ReflectIn, err = v.LookupPath(cue.ParsePath("reflect")).Bool(); err != nil {
		return d, fmt.Errorf("reflect: %w", err)
	}
	d.ReflectOut = d.ReflectIn
	if ro := v.LookupPath(cue.ParsePath("reflect_out")); ro.Exists() {
		if d.ReflectOut, err = ro.Bool(); err != nil {
			return d, fmt.Errorf("reflect_out: %w", err)
		}
	}
	if ck := v.LookupPath(cue.ParsePath("check")); ck.Exists() {
		if d.Check, err = ck.Uint64(); err != nil {
			return d, fmt.Errorf("check: %w", err)
		}
		d.HasCheck = true
	}
	return d, nil
}
