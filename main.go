/*
	Copyright 2023 Markus Papenbrock
*/

package main

import "github.com/mpapenbr/iracelog-league-stats/cmd"

func main() {
	cmd.Execute()
}
