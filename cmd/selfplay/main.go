// Command selfplay lets the engine play both sides of a game.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2/log"

	"github.com/benbeisheim/chess-engine-backend/internal/engine"
	"github.com/benbeisheim/chess-engine-backend/internal/model"
)

func main() {
	white := flag.String("white", "medium", "difficulty playing White")
	black := flag.String("black", "easy", "difficulty playing Black")
	maxPlies := flag.Int("max-plies", 200, "stop after this many plies")
	seed := flag.Uint64("seed", 1, "seed for the random mover")
	quiet := flag.Bool("quiet", false, "print only the final position")
	flag.Parse()

	levels := map[model.Side]engine.Difficulty{}
	for side, name := range map[model.Side]string{model.White: *white, model.Black: *black} {
		d, err := engine.ParseDifficulty(name)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		levels[side] = d
	}

	game := model.NewGame("selfplay", model.HumanVsEngine, model.WhiteAtRowZero, "")
	for _, side := range []model.Side{model.White, model.Black} {
		if err := game.AddPlayerAs(model.EnginePlayerID, side); err != nil {
			log.Fatalf("seat engine: %v", err)
		}
	}

	eng := engine.New(engine.WithSeed(*seed))
	for ply := 0; ply < *maxPlies && !game.IsOver(); ply++ {
		pos, version := game.Position()
		res := eng.Choose(pos, levels[pos.ToMove])
		if err := game.ApplyEngineMove(version, res.Move); err != nil {
			log.Fatalf("ply %d: %v", ply+1, err)
		}
		if !*quiet {
			state := game.GetState()
			fmt.Printf("%3d. %-8s %-7s score %6d  %s\n", ply+1, state.MoveHistory[len(state.MoveHistory)-1].Notation,
				levels[pos.ToMove], res.Score, res.Elapsed)
		}
	}

	state := game.GetState()
	pos, _ := game.Position()
	fmt.Print(pos.String())
	switch {
	case state.Resolve == nil:
		fmt.Printf("stopped after %d plies, %s to move\n", len(state.MoveHistory), state.ToMove)
	case state.Resolve.Winner == nil:
		fmt.Printf("%s after %d plies\n", state.Resolve.Reason, len(state.MoveHistory))
	default:
		fmt.Printf("%s wins by %s after %d plies\n", state.Resolve.Winner, state.Resolve.Reason, len(state.MoveHistory))
	}
}
