package main

import (
	"fmt"
	"os"

	// Import to register the scenario
	_ "github.com/sectorwars/combat-engine/cmd/sector-combat/simulation"
)

func main() {
	fmt.Println("Sector Combat scenario registered. Use 'combat-engine run' to execute.")
	os.Exit(0)
}
