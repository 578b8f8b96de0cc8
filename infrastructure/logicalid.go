package infrastructure

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

const (
	// hiddenID is dropped from paths entirely.
	hiddenID = "Default"
	// hiddenFromHumanID is hashed but left out of the readable prefix.
	hiddenFromHumanID = "Resource"

	pathSep     = "/"
	hashLen     = 8
	maxHumanLen = 240
	maxIDLen    = 255
)

// MakeUniqueID derives a CloudFormation logical id from a construct path.
//
// A single component is used verbatim (non-alphanumerics removed). Longer
// paths become a readable prefix followed by the first eight upper-case hex
// digits of the md5 of the path, so ids stay stable across synthesis and
// match the ids other CDK tooling produces for the same path.
func MakeUniqueID(components []string) string {
	filtered := make([]string, 0, len(components))
	for _, c := range components {
		if c != hiddenID {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return ""
	}

	if len(filtered) == 1 {
		candidate := removeNonAlphanumeric(filtered[0])
		if len(candidate) <= maxIDLen {
			return candidate
		}
	}

	var human strings.Builder
	for _, c := range removeDupes(filtered) {
		if c == hiddenFromHumanID {
			continue
		}
		human.WriteString(removeNonAlphanumeric(c))
	}
	prefix := human.String()
	if len(prefix) > maxHumanLen {
		prefix = prefix[:maxHumanLen]
	}
	return prefix + pathHash(filtered)
}

func pathHash(components []string) string {
	sum := md5.Sum([]byte(strings.Join(components, pathSep)))
	return strings.ToUpper(hex.EncodeToString(sum[:])[:hashLen])
}

// removeDupes drops a component when the previous one already ends with it,
// e.g. ["Bucket", "Bucket"] reads as "Bucket".
func removeDupes(components []string) []string {
	var out []string
	for _, c := range components {
		if len(out) == 0 || !strings.HasSuffix(out[len(out)-1], c) {
			out = append(out, c)
		}
	}
	return out
}

func removeNonAlphanumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
