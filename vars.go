package blockdraft

import "regexp"

// varPattern matches {{identifier}} tokens: double braces around one or
// more word characters. Braces with spaces or other characters inside
// are not tokens and pass through as ordinary content.
var varPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// ExtractVariables returns every {{identifier}} token in content in
// left-to-right order. Repeated identifiers appear once per occurrence;
// callers that want a unique set deduplicate themselves.
func ExtractVariables(content string) []string {
	matches := varPattern.FindAllStringSubmatch(content, -1)
	vars := make([]string, 0, len(matches))
	for _, m := range matches {
		vars = append(vars, m[1])
	}
	return vars
}

// Substitute replaces each {{identifier}} token in content with
// data[identifier]. Identifiers missing from data keep their literal
// token text, so a partially filled dictionary never blanks out or
// corrupts a preview.
func Substitute(content string, data map[string]string) string {
	if len(data) == 0 {
		return content
	}
	return varPattern.ReplaceAllStringFunc(content, func(tok string) string {
		name := tok[2 : len(tok)-2]
		if v, ok := data[name]; ok {
			return v
		}
		return tok
	})
}

// TemplateVariables returns every variable token across all blocks of a
// template, in block order. Duplicates are preserved, matching
// ExtractVariables.
func TemplateVariables(t Template) []string {
	vars := make([]string, 0)
	for _, b := range t.Blocks {
		vars = append(vars, ExtractVariables(b.Content)...)
	}
	return vars
}
