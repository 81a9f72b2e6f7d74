package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/livetemplate/blockdraft"
)

// defaultTimeout is the default context timeout for CLI operations
const defaultTimeout = 30 * time.Second

// maxColumnWidth is the maximum width for table columns before truncation
const maxColumnWidth = 50

// loadDocument reads and decodes a template file (.json or .md).
func loadDocument(path string) (blockdraft.Template, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return blockdraft.Template{}, fmt.Errorf("failed to resolve path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return blockdraft.Template{}, fmt.Errorf("path does not exist: %s", path)
	}
	return blockdraft.Open(abs, blockdraft.UUIDGenerator{}, time.Now())
}

// listOptions holds parsed flags for the listing commands (blocks, vars)
type listOptions struct {
	format string // Output format: table, json, csv
	filter string // Filter expression: field=value or field!=value
	limit  int    // Maximum rows to print (0 = all)
}

// parseListFlags parses --key=value style flags for listing commands
func parseListFlags(args []string) (listOptions, []string) {
	opts := listOptions{format: "table"}
	var positional []string

	for _, arg := range args {
		if !strings.HasPrefix(arg, "--") {
			positional = append(positional, arg)
			continue
		}

		parts := strings.SplitN(strings.TrimPrefix(arg, "--"), "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, value := parts[0], parts[1]

		switch key {
		case "format":
			switch value {
			case "table", "json", "csv":
				opts.format = value
			default:
				log.Printf("warning: invalid format %q, using default 'table'", value)
			}
		case "filter":
			opts.filter = value
		case "limit":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				log.Printf("warning: invalid limit %q, ignoring", value)
				continue
			}
			opts.limit = n
		}
	}

	return opts, positional
}

// parseValue attempts to parse a string value into an appropriate Go type
func parseValue(s string) interface{} {
	if s == "true" {
		return true
	}
	if s == "false" {
		return false
	}

	// Values with a decimal point parse as float so "1.0" stays 1.0
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}

	// Scientific notation like "1e5"
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}

	return s
}

// applyFilter filters rows based on a field=value or field!=value expression
func applyFilter(rows []map[string]interface{}, filter string) []map[string]interface{} {
	if filter == "" {
		return rows
	}

	var field, value string
	var negate bool

	if idx := strings.Index(filter, "!="); idx >= 0 {
		field = filter[:idx]
		value = filter[idx+2:]
		negate = true
	} else if idx := strings.Index(filter, "="); idx >= 0 {
		field = filter[:idx]
		value = filter[idx+1:]
	} else {
		return rows // No operator found
	}

	if field == "" {
		return rows
	}

	parsedValue := parseValue(value)

	result := make([]map[string]interface{}, 0)
	for _, row := range rows {
		rowValue, exists := row[field]
		if !exists {
			if negate {
				result = append(result, row)
			}
			continue
		}

		matches := rowValue == parsedValue
		if !matches {
			// Fallback to string comparison for mixed types
			matches = fmt.Sprintf("%v", rowValue) == value
		}
		if negate {
			matches = !matches
		}
		if matches {
			result = append(result, row)
		}
	}

	return result
}

// limitRows truncates rows to at most n entries (0 means no limit)
func limitRows(rows []map[string]interface{}, n int) []map[string]interface{} {
	if n <= 0 || len(rows) <= n {
		return rows
	}
	return rows[:n]
}

// outputRows prints rows in the requested format.
func outputRows(rows []map[string]interface{}, opts listOptions, priority ...string) error {
	rows = limitRows(applyFilter(rows, opts.filter), opts.limit)

	if len(rows) == 0 {
		fmt.Println("No items found.")
		return nil
	}

	switch opts.format {
	case "json":
		return outputJSON(rows)
	case "csv":
		return outputCSV(rows)
	default:
		return outputTable(rows, priority...)
	}
}

// outputJSON outputs rows as an indented JSON array
func outputJSON(rows []map[string]interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// collectColumns gathers the union of keys across rows, ordered with the
// priority columns first and the rest alphabetical.
func collectColumns(rows []map[string]interface{}, priority ...string) []string {
	columnSet := make(map[string]bool)
	for _, row := range rows {
		for col := range row {
			columnSet[col] = true
		}
	}

	rank := make(map[string]int, len(priority))
	for i, col := range priority {
		rank[col] = i
	}

	columns := make([]string, 0, len(columnSet))
	for col := range columnSet {
		columns = append(columns, col)
	}
	sort.Slice(columns, func(i, j int) bool {
		ri, iOK := rank[columns[i]]
		rj, jOK := rank[columns[j]]
		if iOK && jOK {
			return ri < rj
		}
		if iOK != jOK {
			return iOK
		}
		return columns[i] < columns[j]
	})
	return columns
}

// outputCSV outputs rows as CSV with a header line
func outputCSV(rows []map[string]interface{}) error {
	columns := collectColumns(rows)

	w := csv.NewWriter(os.Stdout)
	if err := w.Write(columns); err != nil {
		return err
	}

	for _, row := range rows {
		record := make([]string, len(columns))
		for i, col := range columns {
			if val, ok := row[col]; ok {
				record[i] = fmt.Sprintf("%v", val)
			}
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// truncateString truncates a string to maxColumnWidth with ellipsis if needed
func truncateString(s string) string {
	if len(s) > maxColumnWidth {
		return s[:maxColumnWidth-3] + "..."
	}
	return s
}

// outputTable outputs rows as a formatted table
func outputTable(rows []map[string]interface{}, priority ...string) error {
	columns := collectColumns(rows, priority...)

	// Calculate column widths
	widths := make(map[string]int)
	for _, col := range columns {
		widths[col] = len(col)
	}
	for _, row := range rows {
		for col, val := range row {
			str := truncateString(fmt.Sprintf("%v", val))
			if len(str) > widths[col] {
				widths[col] = len(str)
			}
		}
	}

	// Print header
	var header strings.Builder
	var separator strings.Builder
	for i, col := range columns {
		if i > 0 {
			header.WriteString(" | ")
			separator.WriteString("-+-")
		}
		header.WriteString(fmt.Sprintf("%-*s", widths[col], col))
		separator.WriteString(strings.Repeat("-", widths[col]))
	}
	fmt.Println(header.String())
	fmt.Println(separator.String())

	// Print rows
	for _, row := range rows {
		var line strings.Builder
		for i, col := range columns {
			if i > 0 {
				line.WriteString(" | ")
			}
			val := ""
			if v, ok := row[col]; ok {
				val = truncateString(fmt.Sprintf("%v", v))
			}
			line.WriteString(fmt.Sprintf("%-*s", widths[col], val))
		}
		fmt.Println(line.String())
	}

	fmt.Printf("\n%d item(s)\n", len(rows))
	return nil
}
