package parser

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// parseIntLiteral parses a decimal or 0x-hex integer literal lexeme,
// wrapping modulo 2^64 on hex overflow the way Lua 5.4's lexer does
// (spec.md 3: "Integer arithmetic wraps modulo 2^64").
func parseIntLiteral(lexeme string) (int64, error) {
	if strings.HasPrefix(lexeme, "0x") || strings.HasPrefix(lexeme, "0X") {
		body := lexeme[2:]
		u, err := strconv.ParseUint(body, 16, 64)
		if err == nil {
			return int64(u), nil
		}
		bi, ok := new(big.Int).SetString(body, 16)
		if !ok {
			return 0, fmt.Errorf("malformed hex integer %q", lexeme)
		}
		mod := new(big.Int).Lsh(big.NewInt(1), 64)
		bi.Mod(bi, mod)
		return int64(bi.Uint64()), nil
	}
	return strconv.ParseInt(lexeme, 10, 64)
}

func parseFloatLiteral(lexeme string) (float64, error) {
	if strings.HasPrefix(lexeme, "0x") || strings.HasPrefix(lexeme, "0X") {
		return strconv.ParseFloat(lexeme, 64)
	}
	return strconv.ParseFloat(lexeme, 64)
}
