// Package crc resolves named CRC algorithm variants into the parameter tuple
// a streaming CRC circuit is configured with, and provides the software
// reference used to check the circuit's output.
//
// # Catalog
//
// Algorithm definitions come from a read-only Catalog. The default catalog is
// embedded CUE (catalog.cue) and follows the Rocksoft parameter model:
//
//	algorithm: "crc-32": {
//		poly:    0x104C11DB7 // implicit leading bit set
//		init:    0xFFFFFFFF  // register value before the first byte
//		xor_out: 0xFFFFFFFF
//		reflect: true
//		check:   0xCBF43926  // CRC of "123456789"
//	}
//
// Polynomials carry their implicit top bit, so a 64-bit algorithm needs a
// 65-bit literal. CUE integers are arbitrary precision and are read through
// math/big.
//
// # Normalization
//
// The circuit keeps its CRC register XORed with xor_out, so Spec.Init is the
// catalog init XORed with xor_out. The reference never uses the normalized
// value; it works from Spec.RawInit.
package crc
