package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress is returned for text that is not a 20-byte hex address.
var ErrInvalidAddress = errors.New("invalid wallet address")

// ParseAddress validates a user-supplied address. Both checksummed and
// lowercase forms are accepted.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return common.Address{}, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

// Short renders an address as 0x1234...abcd.
func Short(addr common.Address) string {
	h := addr.Hex()
	return h[:6] + "..." + h[len(h)-4:]
}

// View is the pair of the operator's own address and the address being looked at.
type View struct {
	Owner  common.Address
	Target common.Address
}

// NewView builds a view of target. A zero owner means no own wallet is configured.
func NewView(owner, target common.Address) View {
	return View{Owner: owner, Target: target}
}

// IsOwn reports whether the view shows the operator's own wallet. Allowance is
// only meaningful for the own wallet.
func (v View) IsOwn() bool {
	return v.Owner != (common.Address{}) && v.Owner == v.Target
}
