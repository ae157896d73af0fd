// Package version reports build information for the chatstream binary.
//
// Release builds set the variables with -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/chatstream/version.Version=v1.2.0"
package version
