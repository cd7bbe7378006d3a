// Package wpconfig rewrites the database settings of a WordPress-style
// wp-config.php file.
//
// Only declarations of the exact form
//
//	define( 'DB_NAME', 'value' );
//
// with a single-quoted literal value are recognised. Whitespace inside the
// parentheses may vary. Keys that are not found are left alone and every
// byte outside the replaced declarations is preserved.
package wpconfig

import (
	"bytes"
	"regexp"
)

// FileName is the configuration file expected at the root of an extracted site.
const FileName = "wp-config.php"

// Settings are the database values written into the configuration file.
type Settings struct {
	DBName     string
	DBUser     string
	DBPassword string
}

type declaration struct {
	key     string
	pattern *regexp.Regexp
}

var declarations = []declaration{
	{key: "DB_NAME", pattern: keyPattern("DB_NAME")},
	{key: "DB_USER", pattern: keyPattern("DB_USER")},
	{key: "DB_PASSWORD", pattern: keyPattern("DB_PASSWORD")},
}

func keyPattern(key string) *regexp.Regexp {
	return regexp.MustCompile(`define\(\s*'` + regexp.QuoteMeta(key) + `',\s*'[^']*'\s*\);`)
}

// Rewriter replaces the three database declarations using the
// single-quoted pattern contract.
type Rewriter struct{}

// NewRewriter returns the default Rewriter.
func NewRewriter() *Rewriter {
	return &Rewriter{}
}

// Rewrite returns src with the first matching declaration of each key
// replaced. The input slice is not modified.
func (r *Rewriter) Rewrite(src []byte, s Settings) []byte {
	out := bytes.Clone(src)
	values := map[string]string{
		"DB_NAME":     s.DBName,
		"DB_USER":     s.DBUser,
		"DB_PASSWORD": s.DBPassword,
	}
	for _, d := range declarations {
		out = replaceFirst(out, d.pattern, declare(d.key, values[d.key]))
	}
	return out
}

// Matched reports which of the three keys have a declaration in src that
// Rewrite would replace.
func (r *Rewriter) Matched(src []byte) []string {
	var keys []string
	for _, d := range declarations {
		if d.pattern.Match(src) {
			keys = append(keys, d.key)
		}
	}
	return keys
}

func declare(key, value string) []byte {
	return []byte("define( '" + key + "', '" + value + "' );")
}

func replaceFirst(src []byte, re *regexp.Regexp, repl []byte) []byte {
	loc := re.FindIndex(src)
	if loc == nil {
		return src
	}
	out := make([]byte, 0, len(src)-(loc[1]-loc[0])+len(repl))
	out = append(out, src[:loc[0]]...)
	out = append(out, repl...)
	out = append(out, src[loc[1]:]...)
	return out
}
