package cmd

// Version is the tool version, overridable at build time with
// -ldflags "-X github.com/lancet-sec/lancet-cli/cmd.Version=...".
var Version = "0.1.0"
