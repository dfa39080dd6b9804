// Package main is the entry point for quotawatch.
package main

func main() {
	Execute()
}
