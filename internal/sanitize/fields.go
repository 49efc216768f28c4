// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sanitize turns untyped model output into bounded, typed values.
//
// Every parser accepts the result of json.Unmarshal into an `any` and never
// fails: absent, wrong-typed or out-of-range fields are replaced by a
// documented default and each replacement is recorded in a Report. Running a
// parser over the JSON encoding of its own output yields the same value.
package sanitize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Substitution records one default, clamp, truncation, or drop.
type Substitution struct {
	Path   string `json:"path" yaml:"path"`
	Reason string `json:"reason" yaml:"reason"`
}

// Report lists the substitutions made while sanitizing one response.
type Report struct {
	Substitutions []Substitution `json:"substitutions" yaml:"substitutions"`
}

// Len returns the number of substitutions.
func (r *Report) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Substitutions)
}

// String summarises the report for logging.
func (r *Report) String() string {
	parts := make([]string, 0, len(r.Substitutions))
	for _, s := range r.Substitutions {
		parts = append(parts, s.Path+": "+s.Reason)
	}
	return strings.Join(parts, "; ")
}

func (r *Report) note(path, format string, args ...any) {
	if path == "" {
		path = "$"
	}
	r.Substitutions = append(r.Substitutions, Substitution{Path: path, Reason: fmt.Sprintf(format, args...)})
}

// fields is a typed view over one JSON object.
type fields struct {
	m    map[string]any
	path string
	rep  *Report
}

func newFields(v any, path string, rep *Report) fields {
	m, ok := v.(map[string]any)
	if !ok {
		if v != nil {
			rep.note(path, "expected object, got %s", kindOf(v))
		}
		m = map[string]any{}
	}
	return fields{m: m, path: path, rep: rep}
}

func (f fields) at(key string) string {
	if f.path == "" {
		return key
	}
	return f.path + "." + key
}

// value returns the value under key; JSON null counts as absent.
func (f fields) value(key string) (any, bool) {
	v, ok := f.m[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (f fields) present(key string) bool {
	_, ok := f.value(key)
	return ok
}

func (f fields) object(key string) fields {
	v, _ := f.value(key)
	return newFields(v, f.at(key), f.rep)
}

// str reads a trimmed string of at most max runes. Scalars are stringified.
func (f fields) str(key string, max int) string {
	v, ok := f.value(key)
	if !ok {
		return ""
	}
	s, isString := v.(string)
	if !isString {
		var ok bool
		if s, ok = scalarString(v); !ok {
			f.rep.note(f.at(key), "expected string, got %s", kindOf(v))
			return ""
		}
		f.rep.note(f.at(key), "converted %s to string", kindOf(v))
	}
	return clip(f.rep, f.at(key), s, max)
}

// strOr is str with a default for empty results.
func (f fields) strOr(key string, max int, def string) string {
	if s := f.str(key, max); s != "" {
		return s
	}
	f.rep.note(f.at(key), "missing, using %q", def)
	return def
}

// number reads a finite float. Numeric strings are accepted.
func (f fields) number(key string) (float64, bool) {
	v, ok := f.value(key)
	if !ok {
		return 0, false
	}
	n, ok := toFloat(v)
	if !ok {
		f.rep.note(f.at(key), "expected number, got %s", kindOf(v))
	}
	return n, ok
}

// confidence reads a value clamped into [0,1].
func (f fields) confidence(key string, def float64) float64 {
	n, ok := f.number(key)
	if !ok {
		f.rep.note(f.at(key), "missing confidence, using %v", def)
		return def
	}
	if n < 0 || n > 1 {
		f.rep.note(f.at(key), "confidence %v clamped to [0,1]", n)
		return math.Min(1, math.Max(0, n))
	}
	return n
}

// intIn reads an integer rounded and clamped into [lo,hi].
func (f fields) intIn(key string, lo, hi, def int) int {
	n, ok := f.number(key)
	if !ok {
		f.rep.note(f.at(key), "missing, using %d", def)
		return def
	}
	r := int(math.Round(n))
	if float64(r) != n {
		f.rep.note(f.at(key), "rounded %v to %d", n, r)
	}
	if r < lo || r > hi {
		clamped := min(hi, max(lo, r))
		f.rep.note(f.at(key), "%d clamped to [%d,%d]", r, lo, hi)
		return clamped
	}
	return r
}

// positive reads an optional positive integer; anything else yields 0.
func (f fields) positive(key string) int {
	n, ok := f.number(key)
	if !ok {
		return 0
	}
	if n < 1 || n != math.Trunc(n) || n > math.MaxInt32 {
		f.rep.note(f.at(key), "dropped non-positive or fractional value %v", n)
		return 0
	}
	return int(n)
}

// index reads a non-negative integer reference into another collection.
func (f fields) index(key string) (int, bool) {
	n, ok := f.number(key)
	if !ok {
		return 0, false
	}
	if n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
		f.rep.note(f.at(key), "invalid index %v", n)
		return 0, false
	}
	return int(n), true
}

// boolean reads a bool; "true"/"false" strings are accepted.
func (f fields) boolean(key string, def bool) bool {
	v, ok := f.value(key)
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
			f.rep.note(f.at(key), "converted string to bool")
			return parsed
		}
	}
	f.rep.note(f.at(key), "expected bool, got %s; using %v", kindOf(v), def)
	return def
}

// items returns the entries of a list. A non-list value yields nil.
func (f fields) items(key string) []any {
	v, ok := f.value(key)
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		f.rep.note(f.at(key), "expected list, got %s", kindOf(v))
		return nil
	}
	return list
}

// indexed is one object entry of a list with its original position.
type indexed struct {
	pos int
	f   fields
}

// objects returns the object entries of a list, dropping anything else.
func (f fields) objects(key string) []indexed {
	var out []indexed
	for i, item := range f.items(key) {
		path := fmt.Sprintf("%s[%d]", f.at(key), i)
		if _, ok := item.(map[string]any); !ok {
			f.rep.note(path, "dropped non-object entry")
			continue
		}
		out = append(out, indexed{pos: i, f: newFields(item, path, f.rep)})
	}
	return out
}

// strList reads up to maxItems non-empty strings of at most maxLen runes.
func (f fields) strList(key string, maxItems, maxLen int) []string {
	var out []string
	for i, item := range f.items(key) {
		path := fmt.Sprintf("%s[%d]", f.at(key), i)
		s, ok := scalarString(item)
		if !ok {
			f.rep.note(path, "dropped %s entry", kindOf(item))
			continue
		}
		s = clip(f.rep, path, s, maxLen)
		if s == "" {
			continue
		}
		if len(out) == maxItems {
			f.rep.note(f.at(key), "truncated to %d entries", maxItems)
			break
		}
		out = append(out, s)
	}
	return out
}

// indices reads a list of non-negative integer references.
func (f fields) indices(key string, maxItems int) []int {
	var out []int
	for i, item := range f.items(key) {
		n, ok := toFloat(item)
		if !ok || n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
			f.rep.note(fmt.Sprintf("%s[%d]", f.at(key), i), "dropped invalid index")
			continue
		}
		if len(out) == maxItems {
			f.rep.note(f.at(key), "truncated to %d entries", maxItems)
			break
		}
		out = append(out, int(n))
	}
	return out
}

// enum coerces the value under key into allowed, substituting def.
func enum[T ~string](f fields, key string, allowed []T, def T) T {
	v, ok := f.value(key)
	if !ok {
		f.rep.note(f.at(key), "missing, using %q", def)
		return def
	}
	if got, ok := matchEnum(v, allowed); ok {
		return got
	}
	f.rep.note(f.at(key), "unknown value %v, using %q", v, def)
	return def
}

// optionalEnum is enum without a default: unknown values become empty.
func optionalEnum[T ~string](f fields, key string, allowed []T) T {
	v, ok := f.value(key)
	if !ok {
		return ""
	}
	if got, ok := matchEnum(v, allowed); ok {
		return got
	}
	f.rep.note(f.at(key), "unknown value %v dropped", v)
	return ""
}

func matchEnum[T ~string](v any, allowed []T) (T, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	norm := normalizeToken(s)
	for _, a := range allowed {
		if string(a) == norm {
			return a, true
		}
	}
	return "", false
}

// normalizeToken lower-cases s and maps '_' and spaces to '-'.
func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == ' ' || r == '-'
	}), "-")
}

// clip trims s and truncates it to max runes.
func clip(rep *Report, path, s string, max int) string {
	s = strings.TrimSpace(s)
	if max > 0 && utf8.RuneCountInString(s) > max {
		rep.note(path, "truncated to %d characters", max)
		s = strings.TrimSpace(string([]rune(s)[:max]))
	}
	return s
}

func toFloat(v any) (float64, bool) {
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case json.Number:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	}
	return "", false
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case float64, float32, int, int64, json.Number:
		return "number"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
