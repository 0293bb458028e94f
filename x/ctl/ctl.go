// Package ctl provides kong helpers shared by the command line tools
package ctl

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/alecthomas/kong"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
)

// VersionFlag is a flag to print version
type VersionFlag string

// Decode the flag
func (v VersionFlag) Decode(ctx *kong.DecodeContext) error { return nil }

// IsBool returns true for the flag
func (v VersionFlag) IsBool() bool { return true }

// BeforeApply prints the `version` var, or the flag value, and exits
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	ver := vars["version"]
	fmt.Fprintln(app.Stdout, values.Select(ver != "", ver, string(v)))
	app.Exit(0)
	return nil
}

// WriteJSON prints value to out as indented JSON
func WriteJSON(out io.Writer, value any) error {
	b, err := json.MarshalIndent(value, "", "\t")
	if err != nil {
		return errors.WithMessage(err, "failed to encode")
	}
	_, _ = out.Write(b)
	_, _ = out.Write([]byte("\n"))
	return nil
}
