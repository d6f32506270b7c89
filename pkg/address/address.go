// Package address validates "knot" and "knot.stitch" jump targets against an interpreter's node table.
//
// Resolution never moves the interpreter; the session controller only jumps to
// addresses that resolved successfully.
package address

import (
	"strings"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// Separator splits a knot from its stitch.
const Separator = "."

// Resolve checks addr against nodes and returns it unchanged when it is valid.
// Failures are *domain.AddressError values matching domain.ErrInvalidAddress and
// one of ErrEmptyAddress, ErrMalformedAddress, ErrUnknownKnot or ErrUnknownStitch.
func Resolve(nodes ports.NodeTable, addr string) (string, error) {
	if strings.TrimSpace(addr) == "" {
		return "", &domain.AddressError{Address: addr, Err: domain.ErrEmptyAddress}
	}

	segments := strings.Split(addr, Separator)
	if len(segments) > 2 {
		return "", &domain.AddressError{Address: addr, Err: domain.ErrMalformedAddress}
	}
	for _, s := range segments {
		if s == "" {
			return "", &domain.AddressError{Address: addr, Err: domain.ErrMalformedAddress}
		}
	}

	knot := segments[0]
	if !nodes.KnotExists(knot) {
		return "", &domain.AddressError{Address: addr, Err: domain.ErrUnknownKnot}
	}
	if len(segments) == 2 && !nodes.StitchExists(knot, segments[1]) {
		return "", &domain.AddressError{Address: addr, Err: domain.ErrUnknownStitch}
	}
	return addr, nil
}

// Split separates addr into knot and stitch. The stitch is empty for single-segment addresses.
func Split(addr string) (knot, stitch string) {
	knot, stitch, _ = strings.Cut(addr, Separator)
	return knot, stitch
}

// Join builds an address from a knot and an optional stitch.
func Join(knot, stitch string) string {
	if stitch == "" {
		return knot
	}
	return knot + Separator + stitch
}

// Enumerate lists every knot of the table, optionally followed by its "knot.stitch" addresses.
func Enumerate(lister ports.KnotLister, includeStitches bool) []string {
	var out []string
	for _, knot := range lister.Knots() {
		out = append(out, knot)
		if !includeStitches {
			continue
		}
		for _, stitch := range lister.Stitches(knot) {
			out = append(out, Join(knot, stitch))
		}
	}
	return out
}
