// Package version reports the build version, set at link time:
//
//	go build -ldflags "-X github.com/effective-security/jwtbearer/internal/version.version=v1.2.3 -X github.com/effective-security/jwtbearer/internal/version.commit=abc1234"
package version

import (
	"fmt"
	"runtime"
)

var (
	version = "v0.0.0"
	commit  = ""
)

// Info describes the build
type Info struct {
	Version string
	Commit  string
	Runtime string
}

// Current returns the version of the running binary
func Current() Info {
	return Info{
		Version: version,
		Commit:  commit,
		Runtime: runtime.Version(),
	}
}

// String returns `<version>[+<commit>] (<go version>)`
func (v Info) String() string {
	s := v.Version
	if v.Commit != "" {
		s += "+" + v.Commit
	}
	return fmt.Sprintf("%s (%s)", s, v.Runtime)
}
