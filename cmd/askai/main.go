// Command askai sends conversations to language models behind content
// moderation and a sensitive-information check.
package main

import "github.com/askai/askai/internal/cli"

// version, commit, date are injected by the linker via -ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cli.Execute(version, commit, date)
}
