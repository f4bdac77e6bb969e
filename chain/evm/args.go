package evm

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var bigIntType = reflect.TypeOf(&big.Int{})

// ConvertConstructorArgs converts the textual constructor arguments to the Go values expected by
// the constructor's ABI types.
func ConvertConstructorArgs(contractABI abi.ABI, args []string) ([]any, error) {
	inputs := contractABI.Constructor.Inputs
	if len(args) != len(inputs) {
		return nil, fmt.Errorf("constructor takes %d arguments, got %d", len(inputs), len(args))
	}

	values := make([]any, 0, len(args))
	for i, in := range inputs {
		v, err := ConvertArg(in.Type, args[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s %s): %w", i, in.Type.String(), in.Name, err)
		}
		values = append(values, v)
	}

	return values, nil
}

// ConvertArg converts a single textual argument to the Go value of t.
func ConvertArg(t abi.Type, s string) (any, error) {
	s = strings.TrimSpace(s)

	switch t.T {
	case abi.AddressTy:
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid address %q", s)
		}

		return common.HexToAddress(s), nil
	case abi.BoolTy:
		return strconv.ParseBool(s)
	case abi.StringTy:
		return s, nil
	case abi.BytesTy:
		return hexutil.Decode(s)
	case abi.FixedBytesTy:
		b, err := hexutil.Decode(s)
		if err != nil {
			return nil, err
		}
		if len(b) != t.Size {
			return nil, fmt.Errorf("expected %d bytes, got %d", t.Size, len(b))
		}
		v := reflect.New(t.GetType()).Elem()
		reflect.Copy(v, reflect.ValueOf(b))

		return v.Interface(), nil
	case abi.IntTy, abi.UintTy:
		return convertInteger(t, s)
	default:
		return nil, fmt.Errorf("unsupported constructor argument type %s", t.String())
	}
}

func convertInteger(t abi.Type, s string) (any, error) {
	n, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}

	if t.T == abi.UintTy {
		if n.Sign() < 0 || n.BitLen() > t.Size {
			return nil, fmt.Errorf("%s out of range for %s", s, t.String())
		}
	} else {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
		minInt := new(big.Int).Neg(limit)
		maxInt := new(big.Int).Sub(limit, big.NewInt(1))
		if n.Cmp(minInt) < 0 || n.Cmp(maxInt) > 0 {
			return nil, fmt.Errorf("%s out of range for %s", s, t.String())
		}
	}

	rt := t.GetType()
	if rt == bigIntType {
		return n, nil
	}

	v := reflect.New(rt).Elem()
	if t.T == abi.UintTy {
		v.SetUint(n.Uint64())
	} else {
		v.SetInt(n.Int64())
	}

	return v.Interface(), nil
}
