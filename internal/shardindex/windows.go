package shardindex

import (
	"sort"

	"mintsniper/internal/domain"
)

// ShardKeys returns the overlapping fixed-length shard keys of an address:
// every substring of length domain.ShardKeyLen. An address of length n
// yields n-6 keys.
func ShardKeys(address string) []string {
	if len(address) < domain.ShardKeyLen {
		return nil
	}
	keys := make([]string, 0, len(address)-domain.ShardKeyLen+1)
	for i := 0; i+domain.ShardKeyLen <= len(address); i++ {
		keys = append(keys, address[i:i+domain.ShardKeyLen])
	}
	return keys
}

// Windows extracts the unique sliding shard-key windows from free-form text.
// Only runs of base58 bytes are windowed; runs shorter than the shard key
// length contribute nothing. The result is sorted and deduplicated so a
// repeated address in one message is probed once.
func Windows(text string) []string {
	var out []string
	b := text
	i := 0
	for i < len(b) {
		if !domain.IsBase58Byte(b[i]) {
			i++
			continue
		}
		start := i
		for i < len(b) && domain.IsBase58Byte(b[i]) {
			i++
		}
		run := b[start:i]
		for j := 0; j+domain.ShardKeyLen <= len(run); j++ {
			out = append(out, run[j:j+domain.ShardKeyLen])
		}
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	dst := out[:1]
	for _, w := range out[1:] {
		if w != dst[len(dst)-1] {
			dst = append(dst, w)
		}
	}
	return dst
}
