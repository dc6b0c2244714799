package ledger

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxSheetNameLen = 31

var sheetNameStripper = strings.NewReplacer(
	"[", "", "]", "", ":", "", "*", "", "?", "", "/", "", "\\", "",
)

// SheetNameFor turns a table name into a sheet name the workbook accepts:
// forbidden characters stripped, at most 31 characters, and unique among
// existing (case-insensitive) through a numeric suffix.
func SheetNameFor(table string, existing []string) string {
	name := strings.Trim(sheetNameStripper.Replace(strings.TrimSpace(table)), "'")
	if name == "" {
		name = "Sheet"
	}
	name = truncateRunes(name, maxSheetNameLen)

	taken := make(map[string]bool, len(existing))
	for _, s := range existing {
		taken[strings.ToLower(s)] = true
	}
	if !taken[strings.ToLower(name)] {
		return name
	}

	for i := 2; ; i++ {
		suffix := fmt.Sprintf("_%d", i)
		candidate := truncateRunes(name, maxSheetNameLen-len(suffix)) + suffix
		if !taken[strings.ToLower(candidate)] {
			return candidate
		}
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
