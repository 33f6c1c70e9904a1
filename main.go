package main

import "github.com/HARINII2415/femina360/cmd"

func main() {
	cmd.Execute()
}
