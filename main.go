/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/varunSalat/Blog-backed/cmd"

func main() {
	cmd.Execute()
}
