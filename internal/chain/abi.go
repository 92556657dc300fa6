package chain

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ErrMalformedABI is returned when contract interface data cannot be used.
var ErrMalformedABI = errors.New("malformed contract ABI")

var (
	//go:embed abis/erc20.json
	erc20ABIJSON []byte

	//go:embed abis/swap_router.json
	swapRouterABIJSON []byte
)

// LoadABI parses a JSON ABI and checks that every required method is present.
func LoadABI(data []byte, required ...string) (abi.ABI, error) {
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("%w: %v", ErrMalformedABI, err)
	}
	for _, name := range required {
		if _, ok := parsed.Methods[name]; !ok {
			return abi.ABI{}, fmt.Errorf("%w: method %q missing", ErrMalformedABI, name)
		}
	}
	return parsed, nil
}

func erc20ABI() (abi.ABI, error) {
	return LoadABI(erc20ABIJSON, "approve", "allowance")
}

func swapRouterABI() (abi.ABI, error) {
	return LoadABI(swapRouterABIJSON, "exactInputSingle")
}
