package testutil

import (
	"fmt"
	"strings"

	"landledger/internal/ledger"
)

// Address returns a distinct valid address for n in 1..15, e.g. Address(1) is
// 0x1111111111111111111111111111111111111111.
func Address(n int) ledger.Address {
	if n < 1 || n > 15 {
		panic(fmt.Sprintf("testutil.Address: n out of range: %d", n))
	}
	return ledger.Address("0x" + strings.Repeat(fmt.Sprintf("%x", n), 40))
}
