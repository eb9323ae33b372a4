// Command perft counts legal move sequences from the starting position.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/benbeisheim/chess-engine-backend/internal/model"
)

func main() {
	depth := flag.Int("depth", 3, "plies to count")
	divide := flag.Bool("divide", false, "print the count below each root move")
	blackAtZero := flag.Bool("black-at-row-0", false, "lay the board out with Black on row 0")
	flag.Parse()

	if *depth < 0 {
		fmt.Fprintln(os.Stderr, "depth must not be negative")
		os.Exit(2)
	}
	o := model.WhiteAtRowZero
	if *blackAtZero {
		o = model.BlackAtRowZero
	}
	pos := model.NewPosition(o)

	start := time.Now()
	if *divide && *depth > 0 {
		counts := model.Divide(pos, *depth)
		names := make([]string, 0, len(counts))
		byName := make(map[string]int, len(counts))
		for m, n := range counts {
			name := m.Name(o)
			names = append(names, name)
			byName[name] = n
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%s: %d\n", name, byName[name])
		}
	}
	nodes := model.Perft(pos, *depth)
	elapsed := time.Since(start)
	fmt.Printf("perft(%d) = %d in %s\n", *depth, nodes, elapsed.Round(time.Millisecond))
}
