package core

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var textPolicy = bluemonday.StrictPolicy()

// CleanString trims `s`, collapses inner runs of whitespace to one space and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// CleanText strips any markup from user provided free text (notes, bios, descriptions) and trims it.
// The result is plain text: the entities escaped by the sanitizer are decoded back.
func CleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// ContainsString reports whether s is in list.
func ContainsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// UniqueStrings returns list without duplicates and empty strings, keeping the first occurrences order.
func UniqueStrings(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	res := make([]string, 0, len(list))
	for _, s := range list {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		res = append(res, s)
	}
	return res
}
