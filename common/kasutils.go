package common

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kaspanet/kaspad/domain/dagconfig"
	"github.com/kaspanet/kaspad/util"
)

const SompiPerKaspa = uint64(100_000_000)

// KaspaToSompi parses a decimal KAS string ("0.0001") into sompi.
// Parsing goes through integer math, no floats, so amounts survive
// round-tripping exactly.
func KaspaToSompi(amount string) (uint64, error) {
	parts := strings.SplitN(strings.TrimSpace(amount), ".", 2)

	whole, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid KAS amount %q: %v", amount, err)
	}
	sompi := whole * SompiPerKaspa

	if len(parts) == 2 {
		fraction := parts[1]
		if len(fraction) > 8 {
			return 0, fmt.Errorf("invalid KAS amount %q: more than 8 decimal places", amount)
		}
		// right-pad to sompi precision
		fraction += strings.Repeat("0", 8-len(fraction))
		fractionSompi, err := strconv.ParseUint(fraction, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid KAS amount %q: %v", amount, err)
		}
		sompi += fractionSompi
	}
	return sompi, nil
}

// SompiToKaspa renders a sompi amount as a KAS decimal string with the
// full 8 fractional digits.
func SompiToKaspa(sompi uint64) string {
	return fmt.Sprintf("%d.%08d", sompi/SompiPerKaspa, sompi%SompiPerKaspa)
}

func IsValidKaspaAddress(address string, params *dagconfig.Params) bool {
	if _, err := util.DecodeAddress(address, params.Prefix); err != nil {
		return false
	}

	return true
}

func MainNetParams() *dagconfig.Params {
	return &dagconfig.MainnetParams
}

func TestNetParams() *dagconfig.Params {
	return &dagconfig.TestnetParams
}
