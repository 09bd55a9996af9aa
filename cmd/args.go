package cmd

import "strings"

// serveArgs makes a bare start, or a serve without --http, listen on port.
// Any other command line is passed through untouched.
func serveArgs(args []string, port string) []string {
	addr := "--http=0.0.0.0:" + port
	if len(args) == 0 {
		return []string{"serve", addr}
	}
	if args[0] != "serve" {
		return args
	}
	for _, arg := range args[1:] {
		if arg == "--http" || strings.HasPrefix(arg, "--http=") {
			return args
		}
	}
	out := make([]string, 0, len(args)+1)
	out = append(out, args...)
	return append(out, addr)
}
