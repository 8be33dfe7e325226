// Copyright 2015 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package log

import (
	"math"
	"math/big"
	"strconv"
)

// FormatLogfmtInt64 formats n with thousand separators. The terminal
// handler does not call it; it renders values with slog's Value.String.
func FormatLogfmtInt64(n int64) string {
	if n < 0 {
		return formatLogfmtUint64(uint64(-n), true)
	}
	return formatLogfmtUint64(uint64(n), false)
}

// FormatLogfmtUint64 formats n with thousand separators.
func FormatLogfmtUint64(n uint64) string {
	return formatLogfmtUint64(n, false)
}

func formatLogfmtUint64(n uint64, neg bool) string {
	// Small numbers are common and don't need separators.
	if n < 100000 {
		s := strconv.FormatUint(n, 10)
		if neg {
			return "-" + s
		}
		return s
	}
	const maxLength = 26
	var (
		out   [maxLength]byte
		i     = maxLength - 1
		comma = 0
	)
	for ; n > 0; i-- {
		if comma == 3 {
			comma = 0
			out[i] = ','
		} else {
			comma++
			out[i] = '0' + byte(n%10)
			n /= 10
			continue
		}
	}
	if neg {
		i--
		out[i] = '-'
	}
	return string(out[i+1:])
}

func formatLogfmtBigInt(n *big.Int) string {
	if n == nil {
		return "<nil>"
	}
	neg := n.Sign() < 0
	var i big.Int
	i.Abs(n)
	s := i.String()
	if len(s) <= 5 {
		if neg {
			return "-" + s
		}
		return s
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	first := len(s) % 3
	if first == 0 {
		first = 3
	}
	out = append(out, s[:first]...)
	for pos := first; pos < len(s); pos += 3 {
		out = append(out, ',')
		out = append(out, s[pos:pos+3]...)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

// needsQuoting reports whether the terminal handler must quote s with
// %q: true when s contains a control character, DEL, a non-ASCII rune,
// or a space. It does not alter s.
func needsQuoting(s string) bool {
	for _, r := range s {
		if r < 0x20 || r == 0x7f || r > math.MaxInt8 {
			return true
		}
		if r == ' ' {
			return true
		}
	}
	return false
}
