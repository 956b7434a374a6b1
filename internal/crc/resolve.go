package crc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
)

// MaxWidth is the widest CRC a Spec can hold.
const MaxWidth = 64

// UnknownAlgorithmError is returned when a name is absent from the catalog.
type UnknownAlgorithmError struct {
	Name string
}

func (e *UnknownAlgorithmError) Error() string {
	return fmt.Sprintf("unknown CRC algorithm %q", e.Name)
}

// InvalidDefinitionError is returned when a catalog entry cannot be turned
// into a Spec (bad polynomial, width out of range, values wider than width).
type InvalidDefinitionError struct {
	Name   string
	Reason string
}

func (e *InvalidDefinitionError) Error() string {
	return fmt.Sprintf("invalid CRC definition %q: %s", e.Name, e.Reason)
}

// IsUnknownAlgorithm reports whether err is an UnknownAlgorithmError.
// Uses errors.As to handle wrapped errors.
func IsUnknownAlgorithm(err error) bool {
	var ue *UnknownAlgorithmError
	return errors.As(err, &ue)
}

// Spec is the resolved parameter tuple for one algorithm. It is immutable.
type Spec struct {
	Name  string
	Width uint

	// Poly is masked to Width bits (implicit top bit dropped).
	Poly uint64

	// Init is the normalized initial value (RawInit ^ XorOut) the circuit is
	// configured with.
	Init uint64

	// RawInit is the catalog's initial register value.
	RawInit uint64

	XorOut     uint64
	ReflectIn  bool
	ReflectOut bool

	tab *table
}

// Resolver derives Specs from a Catalog.
type Resolver struct {
	catalog Catalog
}

// NewResolver creates a resolver over catalog.
func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Names lists the algorithms the resolver knows.
func (r *Resolver) Names() []string {
	return r.catalog.Names()
}

// Resolve looks up name and derives its Spec. Calling Resolve twice with the
// same name yields equal Specs.
func (r *Resolver) Resolve(name string) (Spec, error) {
	def, ok := r.catalog.Lookup(name)
	if !ok {
		return Spec{}, &UnknownAlgorithmError{Name: name}
	}
	return FromDefinition(def)
}

// FromDefinition derives a Spec from a single catalog definition.
func FromDefinition(def Definition) (Spec, error) {
	if def.Poly == nil || def.Poly.Sign() <= 0 {
		return Spec{}, &InvalidDefinitionError{Name: def.Name, Reason: "polynomial must be positive"}
	}
	bitLen := def.Poly.BitLen()
	if bitLen < 2 || bitLen-1 > MaxWidth {
		return Spec{}, &InvalidDefinitionError{
			Name:   def.Name,
			Reason: fmt.Sprintf("polynomial bit length %d gives width outside 1..%d", bitLen, MaxWidth),
		}
	}
	width := uint(bitLen - 1)
	mask := widthMask(width)

	// Drop the implicit top bit before narrowing; Uint64 is undefined above 64 bits.
	poly := new(big.Int).And(def.Poly, new(big.Int).SetUint64(mask)).Uint64()

	if def.Init&^mask != 0 || def.XorOut&^mask != 0 {
		return Spec{}, &InvalidDefinitionError{Name: def.Name, Reason: "init or xor_out wider than the CRC"}
	}

	s := Spec{
		Name:       def.Name,
		Width:      width,
		Poly:       poly,
		Init:       (def.Init ^ def.XorOut) & mask,
		RawInit:    def.Init,
		XorOut:     def.XorOut & mask,
		ReflectIn:  def.ReflectIn,
		ReflectOut: def.ReflectOut,
	}
	s.tab = newTable(width, poly, def.ReflectIn)
	return s, nil
}

// Mask returns the Width-bit mask.
func (s Spec) Mask() uint64 {
	return widthMask(s.Width)
}

// ResultBytes is the size of a result frame.
func (s Spec) ResultBytes() int {
	return int(s.Width+7) / 8
}

// Encode renders v as a little-endian result frame.
func (s Spec) Encode(v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v&s.Mask())
	out := make([]byte, s.ResultBytes())
	copy(out, buf[:])
	return out
}

// Decode reads a little-endian result frame.
func (s Spec) Decode(frame []byte) (uint64, error) {
	if len(frame) != s.ResultBytes() {
		return 0, fmt.Errorf("result frame is %d bytes, want %d", len(frame), s.ResultBytes())
	}
	var buf [8]byte
	copy(buf[:], frame)
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// Reference computes the CRC of data from the raw catalog parameters.
func (s Spec) Reference(data []byte) uint64 {
	tab := s.tab
	if tab == nil {
		tab = newTable(s.Width, s.Poly, s.ReflectIn)
	}
	return tab.checksum(s.RawInit, s.XorOut, s.ReflectOut, data)
}

// Verify checks every catalog entry that carries a check value against the
// reference over "123456789".
func Verify(c Catalog) error {
	var errs []error
	for _, name := range c.Names() {
		def, _ := c.Lookup(name)
		if !def.HasCheck {
			continue
		}
		s, err := FromDefinition(def)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if got := s.Reference(CheckInput); got != def.Check {
			errs = append(errs, fmt.Errorf("%s: check 0x%X, reference 0x%X", name, def.Check, got))
		}
	}
	return errors.Join(errs...)
}

// CheckInput is the conventional check string.
var CheckInput = []byte("123456789")
