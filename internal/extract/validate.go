package extract

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"mintsniper/internal/domain"
)

// ValidateStrict checks that an address-shaped string decodes to a 32-byte
// ed25519 point on the curve, i.e. is a plausible token mint and not just
// base58-looking noise. Containment in the live index remains the acceptance
// criterion for extraction; this only filters obvious garbage earlier.
func ValidateStrict(address string) error {
	if !domain.IsAddressShaped(address) {
		return fmt.Errorf("not address-shaped: %q", address)
	}

	raw, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("base58 decode: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("decoded length %d, want 32", len(raw))
	}

	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return fmt.Errorf("not on curve: %w", err)
	}
	return nil
}
