package warmup

import (
	"path"
	"strings"
)

// SplitProfilePath turns an operator-supplied profile path into the
// user-data-dir plus --profile-directory pair the browser expects.
// "C:\...\User Data\Profile 3" must not be passed as user-data-dir
// wholesale: the browser would create a fresh profile inside it and the
// saved login would be gone.
func SplitProfilePath(p string) (userDataDir, profileDir string) {
	norm := strings.TrimRight(strings.ReplaceAll(p, "\\", "/"), "/")
	base := path.Base(norm)
	if strings.HasPrefix(base, "Profile ") || base == "Default" {
		return path.Dir(norm), base
	}
	return norm, "Default"
}
