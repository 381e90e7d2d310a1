package domain

// Token address format bounds. Solana mint addresses are base58-encoded
// 32-byte public keys, which encode to 32-44 characters.
const (
	MinAddressLen = 32
	MaxAddressLen = 44

	// ShardKeyLen is the fixed length of index shard keys. An address of
	// length n yields n-ShardKeyLen+1 overlapping shard keys.
	ShardKeyLen = 7
)

// TokenSeen is a normalized token-creation event from an on-chain venue.
type TokenSeen struct {
	Address    string
	Venue      string // venue identifier, e.g. "pumpstream", "raydium"
	ObservedAt int64  // Unix timestamp in milliseconds
}

// ShardMember is one (shard key, address) pair of the persistent index
// mirror. The mirror is a recovery aid; the feed is the source of truth.
type ShardMember struct {
	ShardKey   string
	Address    string
	ObservedAt int64
}

// IsBase58Byte reports whether b belongs to the base58 alphabet
// (no 0, O, I, l).
func IsBase58Byte(b byte) bool {
	switch {
	case b >= '1' && b <= '9':
		return true
	case b >= 'A' && b <= 'H', b >= 'J' && b <= 'N', b >= 'P' && b <= 'Z':
		return true
	case b >= 'a' && b <= 'k', b >= 'm' && b <= 'z':
		return true
	}
	return false
}

// IsAddressShaped reports whether s has the shape of a token address:
// base58 alphabet and length within [MinAddressLen, MaxAddressLen].
// Shape alone never confirms a token; containment in the live index does.
func IsAddressShaped(s string) bool {
	if len(s) < MinAddressLen || len(s) > MaxAddressLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !IsBase58Byte(s[i]) {
			return false
		}
	}
	return true
}
