package main

import "github.com/vietddude/tracker/internal/cli"

func main() {
	cli.Execute()
}
