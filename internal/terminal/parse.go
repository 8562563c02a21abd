package terminal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errUsage = errors.New("invalid usage")

func parseUint(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", s)
	}
	return v, nil
}

// parseHex accepts an optional 0x prefix.
func parseHex(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"), 16, bits)
	if err != nil {
		return 0, fmt.Errorf("bad hex number %q", s)
	}
	return v, nil
}

// parseDHMS reads "day hour minute second"; trailing fields may be omitted.
func parseDHMS(args []string) (d, h, m, s int, err error) {
	if len(args) == 0 || len(args) > 4 {
		return 0, 0, 0, 0, errUsage
	}
	var vals [4]int
	for i, a := range args {
		v, err := parseUint(a, 32)
		if err != nil {
			return 0, 0, 0, 0, err
		}
		vals[i] = int(v)
	}
	return vals[0], vals[1], vals[2], vals[3], nil
}

func binary16(v uint16) string {
	return fmt.Sprintf("%016b", v)
}
