package cargo

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Domain prefix for trade identity hashing. Version suffix enables future
// algorithm migration without colliding with old keys.
const tradeKeyDomain = "flotilla/trade/v1"

// Key computes the content-addressed identity of a trade. It covers origin,
// destination, amount, cargo type, availability time and the full time
// window; it excludes the surrogate ID, probability and status. Two trades
// that differ only in window therefore produce different keys.
//
// The encoding is a fixed-order field list (no map iteration), with strings
// NFC-normalized and floats formatted via the shortest round-trip form, so
// the key is stable across runs and processes.
func (t *Trade) Key() string {
	var b strings.Builder
	writeField(&b, "origin", canonicalLocation(t.Origin))
	writeField(&b, "destination", canonicalLocation(t.Destination))
	writeField(&b, "amount", canonicalFloat(t.Amount))
	writeField(&b, "cargo_type", norm.NFC.String(t.CargoType))
	writeField(&b, "time", canonicalFloat(t.Time))
	writeField(&b, "window", canonicalWindow(t.Window))

	h := sha256.New()
	h.Write([]byte(tradeKeyDomain))
	h.Write([]byte{0x00}) // null separator: no domain/data boundary ambiguity
	h.Write([]byte(b.String()))
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(b *strings.Builder, name, value string) {
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(value)
	b.WriteByte('\n')
}

func canonicalLocation(l interface{ String() string }) string {
	return norm.NFC.String(l.String())
}

func canonicalFloat(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func canonicalWindow(w TimeWindow) string {
	points := []*float64{w.EarliestPickup, w.LatestPickup, w.EarliestDropoff, w.LatestDropoff}
	parts := make([]string, len(points))
	for i, p := range points {
		if p == nil {
			parts[i] = "null"
		} else {
			parts[i] = canonicalFloat(*p)
		}
	}
	return "[" + strings.Join(parts, ",") + "]"
}
