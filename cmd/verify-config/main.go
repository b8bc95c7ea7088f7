package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/EasterCompany/dex-leveling-service/config"
)

func main() {
	path := flag.String("config", "", "path to leveling.json (default ~/Dexter/config/leveling.json)")
	flag.Parse()

	fmt.Printf("%s--- Dexter Leveling Config Verifier ---%s\n", config.ColorBlue, config.ColorReset)
	ok := config.Verify(os.Stdout, *path)

	fmt.Println("\n--------------------------")
	if !ok {
		fmt.Printf("%s❌ Some issues were found in the configuration.%s\n", config.ColorRed, config.ColorReset)
		os.Exit(1)
	}
	fmt.Printf("%s✅ The configuration seems correct.%s\n", config.ColorGreen, config.ColorReset)
}
