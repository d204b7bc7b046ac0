package main

import "github.com/UndeffinedDev/Indexa/cmd"

func main() {
	cmd.Execute()
}
