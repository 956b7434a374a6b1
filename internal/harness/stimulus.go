package harness

import (
	"encoding/binary"
	"math"
	"math/rand/v2"

	"github.com/roach88/crcsweep/internal/stream"
)

// DefaultSizeFactor is the maximum frame length in bus beats.
const DefaultSizeFactor = 4.5

// MaxFrameSize returns ceil(factor × dataWidth/8) bytes: long enough to cover
// frames that end on every byte lane across several beats.
func MaxFrameSize(dataWidth int, factor float64) int {
	if factor <= 0 {
		factor = DefaultSizeFactor
	}
	return int(math.Ceil(factor * float64(dataWidth) / 8))
}

// Plan returns the stimulus frames for one run: trials frames of every size
// from 1 to maxSize bytes, in increasing size order. The same seed always
// yields the same frames.
func Plan(maxSize, trials int, seed uint64) []stream.Frame {
	if maxSize <= 0 || trials <= 0 {
		return nil
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	frames := make([]stream.Frame, 0, maxSize*trials)
	for size := 1; size <= maxSize; size++ {
		for range trials {
			frames = append(frames, randomFrame(rng, size))
		}
	}
	return frames
}

func randomFrame(rng *rand.Rand, size int) stream.Frame {
	f := make(stream.Frame, size)
	var word [8]byte
	for i := 0; i < size; i += 8 {
		binary.LittleEndian.PutUint64(word[:], rng.Uint64())
		copy(f[i:], word[:])
	}
	return f
}
