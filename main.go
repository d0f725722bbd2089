/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package main

import "dosnap/cmd"

func main() {
	cmd.Execute()
}
