package domain

import (
	"strings"

	"golang.org/x/crypto/sha3"

	dErrors "custodia/pkg/domain-errors"
)

// Address is the canonical lowercase external account identifier used as the
// unique key for identities and as the submitter reference on evidence.
//
// Invariant: always lowercase "0x"-prefixed 40-digit hex. Construct via
// ParseAddress at trust boundaries; direct casting bypasses validation.
type Address string

const hexDigits = "0123456789abcdef"

// ParseAddress validates an externally supplied account address and returns
// its canonical lowercase form. Mixed-case input must carry a valid EIP-55
// checksum; all-lowercase and all-uppercase input is accepted as unchecked.
//
// Errors: returns CodeInvalidInput for empty, malformed, or checksum-failing
// input; no other errors are expected.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address cannot be empty")
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address must start with 0x")
	}
	body := s[2:]
	if len(body) != 40 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address must be 20 bytes of hex")
	}
	lower := strings.ToLower(body)
	for _, c := range lower {
		if !strings.ContainsRune(hexDigits, c) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "address contains non-hex characters")
		}
	}
	if body != lower && body != strings.ToUpper(body) {
		if !validChecksum(body) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "address checksum mismatch")
		}
	}
	return Address("0x" + lower), nil
}

// validChecksum implements the EIP-55 mixed-case checksum: a hex letter is
// uppercase iff the corresponding nibble of keccak256(lowercase address) is >= 8.
func validChecksum(body string) bool {
	lower := strings.ToLower(body)
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	sum := h.Sum(nil)
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c >= '0' && c <= '9' {
			continue
		}
		nibble := sum[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		upper := c >= 'A' && c <= 'F'
		if upper != (nibble >= 8) {
			return false
		}
	}
	return true
}

// String returns the canonical string form.
func (a Address) String() string {
	return string(a)
}

// IsZero returns true for the empty address.
func (a Address) IsZero() bool {
	return a == ""
}
