package crc

import (
	"hash/crc32"
	"hash/crc64"
	"math/big"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func poly(hex string) *big.Int {
	p, ok := new(big.Int).SetString(hex, 16)
	if !ok {
		panic("bad polynomial literal " + hex)
	}
	return p
}

func testResolver(t *testing.T) *Resolver {
	t.Helper()
	c, err := DefaultCatalog()
	require.NoError(t, err)
	return NewResolver(c)
}

func TestResolve_CRC32(t *testing.T) {
	r := testResolver(t)

	s, err := r.Resolve("crc-32")
	require.NoError(t, err)

	assert.Equal(t, uint(32), s.Width)
	assert.Equal(t, uint64(0x04C11DB7), s.Poly)
	assert.Equal(t, uint64(0xFFFFFFFF), s.RawInit)
	assert.Equal(t, uint64(0xFFFFFFFF), s.XorOut)
	assert.Equal(t, uint64(0x00000000), s.Init, "normalized init is raw init ^ xor_out")
	assert.True(t, s.ReflectIn)
	assert.True(t, s.ReflectOut)
	assert.Equal(t, 4, s.ResultBytes())
	assert.Equal(t, uint64(0xCBF43926), s.Reference([]byte("123456789")))
}

func TestResolve_UnknownAlgorithm(t *testing.T) {
	r := testResolver(t)

	_, err := r.Resolve("crc-does-not-exist")
	require.Error(t, err)
	assert.True(t, IsUnknownAlgorithm(err))

	var ue *UnknownAlgorithmError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "crc-does-not-exist", ue.Name)
}

func TestResolve_Idempotent(t *testing.T) {
	r := testResolver(t)

	for _, name := range r.Names() {
		a, err := r.Resolve(name)
		require.NoError(t, err)
		b, err := r.Resolve(name)
		require.NoError(t, err)
		assert.Equal(t, a, b, name)
	}
}

func TestResolve_NormalizationInvariant(t *testing.T) {
	r := testResolver(t)

	for _, name := range r.Names() {
		s, err := r.Resolve(name)
		require.NoError(t, err)
		assert.Equal(t, s.RawInit^s.XorOut, s.Init, name)
		assert.Zero(t, s.Poly&^s.Mask(), name)
		assert.Zero(t, s.XorOut&^s.Mask(), name)
	}
}

func TestResolve_WidthFromPolynomial(t *testing.T) {
	tests := []struct {
		name  string
		width uint
	}{
		{"crc-8", 8},
		{"crc-16", 16},
		{"crc-24", 24},
		{"crc-32c", 32},
		{"crc-64", 64},
	}
	r := testResolver(t)
	for _, tt := range tests {
		s, err := r.Resolve(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.width, s.Width, tt.name)
	}
}

func TestFromDefinition_Invalid(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
	}{
		{"nil polynomial", Definition{Name: "a"}},
		{"zero polynomial", Definition{Name: "a", Poly: big.NewInt(0)}},
		{"width zero", Definition{Name: "a", Poly: big.NewInt(1)}},
		{"too wide", Definition{Name: "a", Poly: new(big.Int).Lsh(big.NewInt(1), 65)}},
		{"init too wide", Definition{Name: "a", Poly: big.NewInt(0x107), Init: 0x100}},
		{"xor_out too wide", Definition{Name: "a", Poly: big.NewInt(0x107), XorOut: 0x1FF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromDefinition(tt.def)
			var ie *InvalidDefinitionError
			require.ErrorAs(t, err, &ie)
		})
	}
}

// Cross-check against the standard library's independent implementations.
func TestReference_MatchesStdlib(t *testing.T) {
	c, err := NewMapCatalog(
		Definition{Name: "crc-32", Poly: poly("104C11DB7"), Init: 0xFFFFFFFF, XorOut: 0xFFFFFFFF, ReflectIn: true, ReflectOut: true},
		Definition{Name: "crc-32c", Poly: poly("11EDC6F41"), Init: 0xFFFFFFFF, XorOut: 0xFFFFFFFF, ReflectIn: true, ReflectOut: true},
		Definition{Name: "jamcrc", Poly: poly("104C11DB7"), Init: 0xFFFFFFFF, XorOut: 0, ReflectIn: true, ReflectOut: true},
		Definition{Name: "crc-64-xz", Poly: poly("142F0E1EBA9EA3693"), Init: ^uint64(0), XorOut: ^uint64(0), ReflectIn: true, ReflectOut: true},
	)
	require.NoError(t, err)
	r := NewResolver(c)

	castagnoli := crc32.MakeTable(crc32.Castagnoli)
	ecma := crc64.MakeTable(crc64.ECMA)
	oracles := map[string]func([]byte) uint64{
		"crc-32":    func(b []byte) uint64 { return uint64(crc32.ChecksumIEEE(b)) },
		"crc-32c":   func(b []byte) uint64 { return uint64(crc32.Checksum(b, castagnoli)) },
		"jamcrc":    func(b []byte) uint64 { return uint64(^crc32.ChecksumIEEE(b)) },
		"crc-64-xz": func(b []byte) uint64 { return crc64.Checksum(b, ecma) },
	}

	rng := rand.New(rand.NewPCG(1, 2))
	for name, oracle := range oracles {
		s, err := r.Resolve(name)
		require.NoError(t, err)

		for size := 1; size <= 72; size++ {
			for trial := 0; trial < 3; trial++ {
				payload := make([]byte, size)
				for i := range payload {
					payload[i] = byte(rng.Uint32())
				}
				require.Equal(t, oracle(payload), s.Reference(payload), "%s size=%d payload=%x", name, size, payload)
			}
		}
	}
}

// Check values from the public CRC catalogue for shapes the embedded
// catalog does not cover: widths below 8, and reflect-in != reflect-out.
func TestReference_UnusualShapes(t *testing.T) {
	tests := []struct {
		def   Definition
		check uint64
	}{
		{Definition{Name: "crc-3-gsm", Poly: big.NewInt(0xB), Init: 0x0, XorOut: 0x7}, 0x4},
		{Definition{Name: "crc-4-interlaken", Poly: big.NewInt(0x13), Init: 0xF, XorOut: 0xF}, 0xB},
		{Definition{Name: "crc-5-usb", Poly: big.NewInt(0x25), Init: 0x1F, XorOut: 0x1F, ReflectIn: true, ReflectOut: true}, 0x19},
		{Definition{Name: "crc-12-umts", Poly: big.NewInt(0x180F), ReflectOut: true}, 0xDAF},
	}
	for _, tt := range tests {
		t.Run(tt.def.Name, func(t *testing.T) {
			s, err := FromDefinition(tt.def)
			require.NoError(t, err)
			assert.Equal(t, tt.check, s.Reference(CheckInput))
		})
	}
}

// Vectors from a Sensirion CRC-8 implementation.
func TestReference_Sensirion(t *testing.T) {
	s, err := FromDefinition(Definition{Name: "crc-8-sensirion", Poly: big.NewInt(0x131), Init: 0xFF})
	require.NoError(t, err)

	tests := []struct {
		bytes  []byte
		result uint64
	}{
		{bytes: []byte{0xbe, 0xef}, result: 0x92},
		{bytes: []byte{0x01, 0xa4}, result: 0x4d},
		{bytes: []byte{0xab, 0xcd}, result: 0x6f},
	}
	for _, test := range tests {
		assert.Equal(t, test.result, s.Reference(test.bytes), "%x", test.bytes)
	}
}

func TestReference_ZeroValueSpecBuildsTable(t *testing.T) {
	s, err := FromDefinition(Definition{Name: "xmodem", Poly: big.NewInt(0x11021)})
	require.NoError(t, err)

	bare := Spec{Name: s.Name, Width: s.Width, Poly: s.Poly, RawInit: s.RawInit, XorOut: s.XorOut}
	assert.Equal(t, s.Reference(CheckInput), bare.Reference(CheckInput))
	assert.Equal(t, uint64(0x31C3), bare.Reference(CheckInput))
}

func TestEncodeDecode(t *testing.T) {
	r := testResolver(t)

	s24, err := r.Resolve("crc-24")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0xCF, 0x21}, s24.Encode(0x21CF02))

	v, err := s24.Decode([]byte{0x02, 0xCF, 0x21})
	require.NoError(t, err)
	assert.Equal(t, uint64(0x21CF02), v)

	_, err = s24.Decode([]byte{0x02, 0xCF})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want 3")

	s64, err := r.Resolve("crc-64-jones")
	require.NoError(t, err)
	v, err = s64.Decode(s64.Encode(0xCAA717168609F281))
	require.NoError(t, err)
	assert.Equal(t, uint64(0xCAA717168609F281), v)
}

func TestReflect(t *testing.T) {
	assert.Equal(t, uint64(0x554D), Reflect(0xB2AA, 16))
	assert.Equal(t, uint64(0x1), Reflect(0x8, 4))
	assert.Equal(t, uint64(0xEDB88320), Reflect(0x04C11DB7, 32))
}
