// logdump decodes the turn log of a persisted game snapshot and prints the
// event sequence of every turn, which is handy when debugging a corrupted
// save or checking what cue a client would derive.
//
// Usage:
//
//	logdump <snapshot.json>
package main

import (
	"fmt"
	"os"
	"strings"

	"ludi-lite/ludo"
	"ludi-lite/tokenlog"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: logdump <snapshot.json>")
		os.Exit(2)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "logdump: %v\n", err)
		os.Exit(1)
	}

	state, err := ludo.DecodeState(ludo.DefaultConfig(), data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logdump: %v\n", err)
		os.Exit(1)
	}

	log := state.LogStrings()
	for i, entry := range log {
		events, err := tokenlog.DecodeEntry(entry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logdump: entry %d: %v\n", i, err)
			os.Exit(1)
		}
		names := make([]string, len(events))
		for j, e := range events {
			names[j] = e.String()
		}
		gameOver := ""
		if tokenlog.HasGameOver(entry) {
			gameOver = " [game over]"
		}
		fmt.Printf("turn %3d  %-30q %s%s\n", i, entry, strings.Join(names, " "), gameOver)
	}

	cue, err := tokenlog.Cue(log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logdump: cue: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("hash %d, cue %s", ludo.StateHash(state), cue)
	if state.Winner != nil {
		fmt.Printf(", winner %d", *state.Winner)
	}
	fmt.Println()
}
