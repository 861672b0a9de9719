package main

import (
	"strings"

	"github.com/gosuda/portal-werewolf/werewolf/game"
)

// houseBots seat a match created without players. Their ids are stable so
// standings accumulate across matches.
var houseBots = []string{
	"Ash", "Briar", "Cole", "Dara", "Ellis",
	"Fenn", "Gale", "Hollis", "Isla", "Juno",
}

func defaultRoster() []game.Participant {
	roster := make([]game.Participant, len(houseBots))
	for i, name := range houseBots {
		roster[i] = game.Participant{
			ID:        "bot-" + strings.ToLower(name),
			Name:      name,
			Automated: true,
		}
	}
	return roster
}
