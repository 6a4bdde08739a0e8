package concat

import (
	"fmt"
	"regexp"
	"strconv"
)

// RequireShim is the callee of cross-module require calls left in the
// concatenated text: $bundle$require(<module id>, "<specifier>").
const RequireShim = "$bundle$require"

var (
	namespaceRE = regexp.MustCompile(`^\$(\d+)\$exports$`)
	exportRE    = regexp.MustCompile(`^\$(\d+)\$export\$(.+)$`)
)

// NamespaceName returns the identifier standing for the export object of
// module id.
func NamespaceName(id int) string { return fmt.Sprintf("$%d$exports", id) }

// ExportName returns the identifier standing for the export name of module id.
func ExportName(id int, name string) string { return fmt.Sprintf("$%d$export$%s", id, name) }

// ParseNamespaceName is the inverse of NamespaceName.
func ParseNamespaceName(ident string) (id int, ok bool) {
	m := namespaceRE.FindStringSubmatch(ident)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	return id, err == nil
}

// ParseExportName is the inverse of ExportName.
func ParseExportName(ident string) (id int, name string, ok bool) {
	m := exportRE.FindStringSubmatch(ident)
	if m == nil {
		return 0, "", false
	}
	id, err := strconv.Atoi(m[1])
	return id, m[2], err == nil
}
