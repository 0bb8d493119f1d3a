package main

import "github.com/jakebgo/library-mvp/client/library-cli/cmd"

func main() {
	cmd.Execute()
}
