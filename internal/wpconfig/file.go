package wpconfig

import (
	"fmt"
	"os"
)

// RewriteFile rewrites the configuration file at path in place, keeping its
// permissions, and returns the keys that were replaced.
func (r *Rewriter) RewriteFile(path string, s Settings) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	matched := r.Matched(src)
	if err := os.WriteFile(path, r.Rewrite(src, s), info.Mode().Perm()); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return matched, nil
}
