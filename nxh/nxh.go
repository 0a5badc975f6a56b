// Package nxh implements the Nexus Hash (NXH) family: a fast,
// non-cryptographic 64-bit hash with two independent variants.
//
// NXH is designed for hash-table keys and change detection, not security.
// It exhibits strong avalanche behavior (a single input-bit flip changes
// roughly half the output bits) and mixes the input length into the
// accumulator so that differently-shaped inputs with the same byte content
// prefix do not collide systematically.
//
// The primary use of the two independent hash functions (Hash64 and
// Hash64Alt) is as the pair of hash functions behind package dagger's
// Robin-Hood/cuckoo hybrid table: the alternate hash must be statistically
// independent of the primary hash on related inputs, which is why the two
// variants use different primes and rotation schedules rather than the same
// schedule with a different seed.
//
// NXH is NOT cryptographically secure. Do not use it for password hashing,
// digital signatures, or any security-critical purpose.
package nxh

import "github.com/zoryacorp/pulsar/internal/bits"

// The Nexus primes. Each constant plays a distinct role in the mixing
// schedule; see the package doc for why the primary and alternate families
// must not share constants.
const (
	primeNexus = 0x9E3779B185EBCA87 // primary mixing prime (golden ratio derivative)
	primeVoid  = 0xC2B2AE3D27D4EB4F // bit avalanche catalyst
	primeEcho  = 0x165667B19E3779F9 // secondary mixer
	primePulse = 0x85EBCA77C2B2AE63 // finalization prime
	primeDrift = 0x27D4EB2F165667C5 // tail processing prime

	primeAlt1 = 0x517CC1B727220A95 // alternate hash, prime 1
	primeAlt2 = 0x71D67FFFEDA60000 // alternate hash, prime 2
)

// SeedDefault is the conventional seed for Hash64.
const SeedDefault uint64 = 0

// SeedAlt is the conventional seed for Hash64Alt.
const SeedAlt uint64 = 0xDEADBEEFCAFEBABE

// mix is the core 32-byte-block mixing step for the primary hash.
//
//go:inline
func mix(acc, input uint64) uint64 {
	acc += input * primeVoid
	acc = bits.RotL64(acc, 31)
	acc *= primeNexus
	return acc
}

// merge folds an accumulator into the running primary-hash value.
//
//go:inline
func merge(h, v uint64) uint64 {
	v *= primeVoid
	v = bits.RotL64(v, 31)
	v *= primeNexus
	h ^= v
	h = h*primeNexus + primePulse
	return h
}

// avalanche is the primary-hash finalization mix.
//
//go:inline
func avalanche(h uint64) uint64 {
	h ^= h >> 33
	h *= primeVoid
	h ^= h >> 29
	h *= primeEcho
	h ^= h >> 32
	return h
}

// mixAlt is the core 32-byte-block mixing step for the alternate hash.
//
//go:inline
func mixAlt(acc, input uint64) uint64 {
	acc += input * primeAlt2
	acc = bits.RotL64(acc, 27)
	acc *= primeAlt1
	return acc
}

// avalancheAlt is the alternate-hash finalization mix.
//
//go:inline
func avalancheAlt(h uint64) uint64 {
	h ^= h >> 31
	h *= primeAlt1
	h ^= h >> 27
	h *= primeAlt2
	h ^= h >> 33
	return h
}

// Hash64 hashes data with the given seed using the primary NXH variant.
//
// Hash64 is deterministic: for a fixed (data, seed) pair it always returns
// the same value within and across processes, as long as the seed itself is
// held constant — NXH has no process-randomized state.
func Hash64(data []byte, seed uint64) uint64 {
	n := len(data)
	var h64 uint64
	p := 0

	if n >= 32 {
		limit := n - 32

		v1 := seed + primeNexus + primeVoid
		v2 := seed + primeVoid
		v3 := seed
		v4 := seed - primeNexus

		for p <= limit {
			v1 = mix(v1, bits.ReadU64LE(data[p:]))
			p += 8
			v2 = mix(v2, bits.ReadU64LE(data[p:]))
			p += 8
			v3 = mix(v3, bits.ReadU64LE(data[p:]))
			p += 8
			v4 = mix(v4, bits.ReadU64LE(data[p:]))
			p += 8
		}

		h64 = bits.RotL64(v1, 1) + bits.RotL64(v2, 7) + bits.RotL64(v3, 12) + bits.RotL64(v4, 18)
		h64 = merge(h64, v1)
		h64 = merge(h64, v2)
		h64 = merge(h64, v3)
		h64 = merge(h64, v4)
	} else {
		h64 = seed + primeDrift
	}

	h64 += uint64(n)

	for p+8 <= n {
		k1 := bits.ReadU64LE(data[p:])
		k1 *= primeVoid
		k1 = bits.RotL64(k1, 31)
		k1 *= primeNexus
		h64 ^= k1
		h64 = bits.RotL64(h64, 27)*primeNexus + primePulse
		p += 8
	}

	if p+4 <= n {
		h64 ^= uint64(bits.ReadU32LE(data[p:])) * primeNexus
		h64 = bits.RotL64(h64, 23)*primeVoid + primeEcho
		p += 4
	}

	for p < n {
		h64 ^= uint64(data[p]) * primeDrift
		h64 = bits.RotL64(h64, 11) * primeNexus
		p++
	}

	return avalanche(h64)
}

// Hash64Alt hashes data with the given seed using the alternate NXH variant.
//
// Hash64Alt is statistically independent of Hash64 over the same
// (data, seed) pair: it uses different primes and a different rotation
// schedule throughout. This independence is required by package dagger's
// cuckoo fallback, which relies on the two hashes not correlating on
// adversarial or structured inputs.
func Hash64Alt(data []byte, seed uint64) uint64 {
	n := len(data)
	var h64 uint64
	p := 0

	if n >= 32 {
		limit := n - 32

		v1 := seed + primeAlt1 + primeAlt2
		v2 := seed + primeAlt2
		v3 := seed
		v4 := seed - primeAlt1

		for p <= limit {
			v1 = mixAlt(v1, bits.ReadU64LE(data[p:]))
			p += 8
			v2 = mixAlt(v2, bits.ReadU64LE(data[p:]))
			p += 8
			v3 = mixAlt(v3, bits.ReadU64LE(data[p:]))
			p += 8
			v4 = mixAlt(v4, bits.ReadU64LE(data[p:]))
			p += 8
		}

		h64 = bits.RotL64(v1, 3) + bits.RotL64(v2, 11) + bits.RotL64(v3, 17) + bits.RotL64(v4, 23)
		h64 ^= v1 * primeAlt1
		h64 ^= v2 * primeAlt2
		h64 ^= v3 * primeAlt1
		h64 ^= v4 * primeAlt2
	} else {
		h64 = seed + primeAlt1
	}

	h64 += uint64(n)

	for p+8 <= n {
		k1 := bits.ReadU64LE(data[p:]) * primeAlt2
		k1 = bits.RotL64(k1, 29)
		k1 *= primeAlt1
		h64 ^= k1
		h64 = bits.RotL64(h64, 25)*primeAlt1 + primeAlt2
		p += 8
	}

	if p+4 <= n {
		h64 ^= uint64(bits.ReadU32LE(data[p:])) * primeAlt1
		h64 = bits.RotL64(h64, 21) * primeAlt2
		p += 4
	}

	for p < n {
		h64 ^= uint64(data[p]) * primeAlt2
		h64 = bits.RotL64(h64, 13) * primeAlt1
		p++
	}

	return avalancheAlt(h64)
}

// Hash32 computes a 32-bit digest by folding Hash64's output (low XOR high
// word), matching the spec's requirement that the 32-bit variant derive from
// the 64-bit one rather than implement a separate mixing schedule.
func Hash32(data []byte, seed uint32) uint32 {
	h := Hash64(data, uint64(seed))
	return uint32(h ^ (h >> 32))
}

// HashString hashes a string with SeedDefault using the primary variant.
func HashString(s string) uint64 {
	return Hash64([]byte(s), SeedDefault)
}

// HashStringAlt hashes a string with SeedAlt using the alternate variant.
func HashStringAlt(s string) uint64 {
	return Hash64Alt([]byte(s), SeedAlt)
}

// HashInt64 hashes a 64-bit integer directly, without going through the
// byte-slice mixing schedule.
func HashInt64(v uint64) uint64 {
	return avalanche(v*primeNexus + primeVoid)
}

// HashInt32 hashes a 32-bit integer directly.
func HashInt32(v uint32) uint64 {
	return avalanche(uint64(v)*primeNexus + primeEcho)
}

// Combine folds two hash values into one, for building composite keys out
// of independently-hashed parts (e.g. a (section, key) pair).
func Combine(h1, h2 uint64) uint64 {
	h1 ^= h2 + primeNexus + (h1 << 6) + (h1 >> 2)
	return h1
}
