// Copyright 2025 the libevm authors.
//
// The libevm additions to go-ethereum are free software: you can redistribute
// them and/or modify them under the terms of the GNU Lesser General Public License
// as published by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// The libevm additions are distributed in the hope that they will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU Lesser
// General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see
// <http://www.gnu.org/licenses/>.

package log

import (
	"fmt"
	"log/slog"
)

// typeOf implements slog.LogValuer, logging only the Go type name of the
// wrapped value instead of its (possibly huge) contents — used when
// logging, e.g., a raw trace payload whose shape matters more than its
// bytes.
type typeOf struct{ v any }

// TypeOf wraps v so that it logs as its reflect-free %T type name.
func TypeOf(v any) slog.LogValuer { return typeOf{v} }

func (t typeOf) LogValue() slog.Value {
	return slog.StringValue(fmt.Sprintf("%T", t.v))
}

// lazy defers evaluation of an slog.Value until the handler actually
// decides to emit the record, so disabled Trace-level attrs never pay for
// their own computation.
type lazy func() slog.Value

// Lazy wraps fn so it is only called if the record is actually emitted.
func Lazy(fn func() slog.Value) slog.LogValuer { return lazy(fn) }

func (l lazy) LogValue() slog.Value { return l() }
