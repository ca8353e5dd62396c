package main

import "github.com/Digital-Shane/moviedb/internal/cmd"

func main() {
	cmd.Execute()
}
