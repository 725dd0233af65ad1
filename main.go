package main

import "scene-archiver/cmd"

func main() {
	cmd.Execute()
}
