package app

import (
	"math"
	"strconv"
	"strings"
	"time"
)

/********** alias registries (single source of truth) **********/

// search-API shape
var remoteAliases = map[string][]string{
	"id":           {"review_id", "reviewId", "id"},
	"author":       {"author", "user.name"},
	"rating":       {"rating", "stars"},
	"text":         {"text", "snippet", "extracted_snippet.original", "content"},
	"photo":        {"photoUrl", "user.thumbnail", "thumbnail", "avatar"},
	"date":         {"iso_date", "iso_date_of_last_edit"},
	"relativeDate": {"date", "relative_date"},
	"localGuide":   {"localGuide", "user.local_guide"},
	"reviewCount":  {"reviewCount", "user.reviews"},
	"photoCount":   {"photoCount", "user.photos"},
}

// hand-authored import shape
var importAliases = map[string][]string{
	"id":           {"id", "review_id", "reviewId"},
	"author":       {"author", "authorName", "author_name", "name", "author.name", "user.name"},
	"rating":       {"rating", "stars"},
	"text":         {"text", "review", "snippet", "content", "comment"},
	"photo":        {"photoUrl", "photo", "profile_photo_url", "thumbnail", "avatar", "user.thumbnail"},
	"date":         {"date", "isoDate", "iso_date", "time", "publishedAt"},
	"relativeDate": {"relativeDate", "relative_date", "relative_time_description"},
	"localGuide":   {"localGuide", "local_guide", "user.local_guide"},
	"reviewCount":  {"reviewCount", "reviews", "user.reviews"},
	"photoCount":   {"photoCount", "photos", "user.photos"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns the trimmed string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

func ptrStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// getFloatFlexible: number from several paths (float64/int/string like "4,5").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case int64:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// firstIntFlexible: non-negative int from several paths.
func firstIntFlexible(m map[string]any, paths ...string) *int {
	f := getFloatFlexible(m, paths...)
	if f == nil || *f < 0 || math.IsNaN(*f) {
		return nil
	}
	n := int(*f)
	return &n
}

// firstBoolFlexible accepts JSON/YAML booleans and "true"/"false" strings.
func firstBoolFlexible(m map[string]any, paths ...string) *bool {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case bool:
			b := v
			return &b
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return &b
			}
		}
	}
	return nil
}

// clampRating applies the rating policy: round to the nearest star,
// treat <= 0 as unrated, cap at 5.
func clampRating(f *float64) *int {
	if f == nil || math.IsNaN(*f) || math.IsInf(*f, 0) {
		return nil
	}
	n := int(math.Round(*f))
	if n <= 0 {
		return nil
	}
	if n > 5 {
		n = 5
	}
	return &n
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// absoluteDate resolves an absolute date from the first alias that parses.
// A string that does not parse is returned as the relative fallback.
func absoluteDate(m map[string]any, paths ...string) (iso string, unparsed string) {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case time.Time:
			return v.UTC().Format(time.RFC3339), ""
		case float64:
			if v > 0 {
				return time.Unix(int64(v), 0).UTC().Format(time.RFC3339), ""
			}
		case int:
			if v > 0 {
				return time.Unix(int64(v), 0).UTC().Format(time.RFC3339), ""
			}
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			for _, layout := range dateLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return t.UTC().Format(time.RFC3339), ""
				}
			}
			if unparsed == "" {
				unparsed = s
			}
		}
	}
	return "", unparsed
}
