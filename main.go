package main

import (
	"os"

	"github.com/ctr49/matrix-authentication-service/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
