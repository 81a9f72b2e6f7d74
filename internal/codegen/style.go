package codegen

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"

	"github.com/livetemplate/blockdraft"
)

var (
	matchFirstCap = regexp.MustCompile("(.)([A-Z][a-z]+)")
	matchAllCap   = regexp.MustCompile("([a-z0-9])([A-Z])")
)

// toKebabCase converts a camelCase style key to kebab-case, so
// "backgroundColor" becomes "background-color".
func toKebabCase(str string) string {
	kebab := matchFirstCap.ReplaceAllString(str, "${1}-${2}")
	kebab = matchAllCap.ReplaceAllString(kebab, "${1}-${2}")
	return strings.ToLower(kebab)
}

// cssProperties maps the editor style keys whose CSS property name is
// not the mechanical kebab-case form.
var cssProperties = map[string]string{
	"textColor": "color",
}

func cssName(key string) string {
	if prop, ok := cssProperties[key]; ok {
		return prop
	}
	return toKebabCase(key)
}

// effectiveStyle resolves the style a block renders with: the type's
// default table with the block's own sparse map applied on top.
func effectiveStyle(b blockdraft.Block) blockdraft.Style {
	return blockdraft.DefaultStyle(b.Type).Merge(b.Style)
}

// inlineStyle renders a style map as a CSS declaration list. Keys are
// emitted in sorted order so the same document always generates the
// same markup; keys with empty values are skipped entirely.
func inlineStyle(s blockdraft.Style) string {
	keys := make([]string, 0, len(s))
	for k := range s {
		if s[k] == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	decls := make([]string, 0, len(keys))
	for _, k := range keys {
		decls = append(decls, fmt.Sprintf("%s: %s;", cssName(k), html.EscapeString(s[k])))
	}
	return strings.Join(decls, " ")
}

// styleAttr renders a style="..." attribute with a leading space, or
// nothing at all when the declaration list is empty.
func styleAttr(s blockdraft.Style) string {
	css := inlineStyle(s)
	if css == "" {
		return ""
	}
	return fmt.Sprintf(" style=%q", css)
}
