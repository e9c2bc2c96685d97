package helpers

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var numberPattern = regexp.MustCompile(`\d+`)

// FirstNumber returns the first run of digits in target, if any.
func FirstNumber(target string) (int, bool) {
	match := numberPattern.FindString(target)
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return n, true
}

// DigitsOnly parses target after dropping every non-digit rune; 0 if nothing is left.
func DigitsOnly(target string) int {
	var b strings.Builder
	for _, r := range target {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0
	}
	return n
}

// paramPatterns caches one compiled pattern per query parameter name
var paramPatterns sync.Map

func paramPattern(param string) *regexp.Regexp {
	if cached, ok := paramPatterns.Load(param); ok {
		return cached.(*regexp.Regexp)
	}
	pattern := regexp.MustCompile(`(?:^|[?&;])` + regexp.QuoteMeta(param) + `=(\d+)`)
	actual, _ := paramPatterns.LoadOrStore(param, pattern)
	return actual.(*regexp.Regexp)
}

// QueryParamInt extracts the integer value of param from a link target such as
// "?module=vending&p=3". Links are matched leniently since hrefs on the origin are hand built.
func QueryParamInt(href, param string) (int, bool) {
	match := paramPattern(param).FindStringSubmatch(strings.ReplaceAll(href, "&amp;", "&"))
	if len(match) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
