package main

import "github.com/nextlevelbuilder/feedbackrelay/cmd"

func main() {
	cmd.Execute()
}
