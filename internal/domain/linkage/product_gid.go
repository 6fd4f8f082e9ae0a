package linkage

import (
	"strings"

	"github.com/partscatalog/backend/internal/domain/shared"
)

// DefaultProductGIDPrefix is prepended to bare numeric product ids
const DefaultProductGIDPrefix = "gid://shopify/Product/"

const gidScheme = "gid://"

// NormalizeProductGID normalizes with the default prefix
func NormalizeProductGID(raw string) (string, error) {
	return NormalizeProductGIDWithPrefix(raw, DefaultProductGIDPrefix)
}

// NormalizeProductGIDWithPrefix turns "123" into prefix+"123" and keeps
// values that already carry a gid:// scheme. Anything else is rejected.
func NormalizeProductGIDWithPrefix(raw, prefix string) (string, error) {
	gid := strings.TrimSpace(raw)
	if gid == "" {
		return "", shared.NewDomainError(shared.CodeInvalidProductGID, "Product gid cannot be empty")
	}
	if strings.HasPrefix(gid, gidScheme) {
		if len(gid) == len(gidScheme) {
			return "", shared.NewDomainErrorf(shared.CodeInvalidProductGID, "Invalid product gid %q", raw)
		}
		return gid, nil
	}
	if isDigits(gid) {
		return prefix + gid, nil
	}
	return "", shared.NewDomainErrorf(shared.CodeInvalidProductGID, "Invalid product gid %q", raw)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
