// Package config loads the YAML configuration shared by the rootfind server
// and CLI.
//
// Every field of FileConfig is a pointer so an absent key can be told apart
// from an explicit zero. Resolve layers a file over Default and yields the
// flat Config the binaries use; command-line flags are applied on top of that.
package config
