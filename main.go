package main

import "github.com/frahmantamala/performance-management/cmd"

func main() {
	cmd.Execute()
}
