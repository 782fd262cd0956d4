/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/progress2win/apiserver/cmd"

func main() {
	cmd.Execute()
}
