// Package checksum fingerprints note revisions for optimistic concurrency.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/starford/quill/internal/models"
	"github.com/starford/quill/internal/parser"
)

// Of returns the hex SHA-256 digest of data.
func Of(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Note fingerprints the stored markdown form of n, so two notes that would
// be written identically share a checksum.
func Note(n models.Note) (string, error) {
	data, err := parser.Encode(n)
	if err != nil {
		return "", err
	}
	return Of(data), nil
}

// ETag renders sum as a strong entity tag.
func ETag(sum string) string {
	return strconv.Quote(sum)
}

// FromIfMatch extracts the checksums listed in an If-Match header. It returns
// nil for an absent header or one containing "*", which match any revision.
// Weak tags are treated as strong.
func FromIfMatch(header string) []string {
	var sums []string
	for tag := range strings.SplitSeq(header, ",") {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "W/")
		if tag == "*" {
			return nil
		}
		if unq, err := strconv.Unquote(tag); err == nil {
			tag = unq
		} else {
			tag = strings.Trim(tag, `"`)
		}
		if tag != "" {
			sums = append(sums, tag)
		}
	}
	return sums
}

// Matches reports whether sum satisfies the precondition tags. Blank tags are
// ignored and an empty precondition matches everything.
func Matches(sum string, tags []string) bool {
	unconditional := true
	for _, t := range tags {
		if t == "" {
			continue
		}
		if t == sum {
			return true
		}
		unconditional = false
	}
	return unconditional
}
