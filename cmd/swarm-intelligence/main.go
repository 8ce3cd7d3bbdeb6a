package main

import (
	"fmt"
	"os"

	// Import to register the simulation
	_ "github.com/picogrid/swarm-simulations/cmd/swarm-intelligence/simulation"
)

func main() {
	fmt.Println("Swarm Intelligence simulation registered. Use 'swarm-sim run' to execute.")
	os.Exit(0)
}
