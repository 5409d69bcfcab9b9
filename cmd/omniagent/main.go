package main

import "github.com/fortyoneai/omni-core/cmd"

func main() {
	cmd.Execute()
}
