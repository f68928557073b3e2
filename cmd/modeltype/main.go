// Package main is the entry point for the modeltype command.
package main

func main() {
	Execute()
}
