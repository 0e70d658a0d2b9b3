package extract

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// imgSrcPath is the WAT link-path marker for an <img src=...> attribute.
const imgSrcPath = "IMG@/src"

// Link is one link descriptor from a WAT HTML-Metadata block. Any field
// may be absent in the wild.
type Link struct {
	Path string `json:"path"`
	URL  string `json:"url"`
	Alt  string `json:"alt"`
}

// Candidate is an extracted image-URL/alt-text pair. ID is derived from
// (alt, url) and is the sole deduplication key: equal pairs always get
// equal IDs.
type Candidate struct {
	ID  string
	URL string
	Alt string
}

// CandidateID computes the identity hash for an (alt, url) pair.
func CandidateID(alt, url string) string {
	sum := md5.Sum([]byte(alt + url))
	return hex.EncodeToString(sum[:])
}

// ValidLink reports whether a link descriptor should become a candidate:
// it must be an <img src> link with an http(s) URL and non-empty alt text.
func ValidLink(l Link) bool {
	return l.Path == imgSrcPath &&
		strings.HasPrefix(l.URL, "http") &&
		len(l.Alt) > 0
}

// FilterLinks yields one candidate per valid descriptor in a record's
// link list. Pure function, no side effects.
func FilterLinks(links []Link) []Candidate {
	var out []Candidate
	for _, l := range links {
		if !ValidLink(l) {
			continue
		}
		out = append(out, Candidate{
			ID:  CandidateID(l.Alt, l.URL),
			URL: l.URL,
			Alt: l.Alt,
		})
	}
	return out
}
