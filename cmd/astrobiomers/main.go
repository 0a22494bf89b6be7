package main

import (
	"os"

	"github.com/NimaFathima/astrobiomers/cmd/handlers"
)

func main() {
	os.Exit(handlers.Execute())
}
