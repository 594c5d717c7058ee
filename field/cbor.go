package field

import (
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

func cborEncodeBigInt(i *big.Int) ([]byte, error) {
	return cbor.Marshal(i)
}

func cborDecodeBigInt(data []byte) (*big.Int, error) {
	i := new(big.Int)
	if err := cbor.Unmarshal(data, i); err != nil {
		return nil, err
	}
	return i, nil
}
