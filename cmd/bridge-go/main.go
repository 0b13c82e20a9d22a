package main

import (
	"log"

	"github.com/opentravelmate/bridge-go/internal/application/container"
	"github.com/opentravelmate/bridge-go/internal/application/startup"
	"github.com/opentravelmate/bridge-go/internal/platform/native"
)

func main() {
	// The standalone binary runs with the headless platform; real hosts
	// embed startup.Assemble with their own map engine and location
	// provider.
	platform := container.Platform{
		MapEngine:        native.HeadlessMapEngine{},
		LocationProvider: native.HeadlessLocationProvider{},
		MainSurface:      native.NewHeadlessView(),
	}

	if err := startup.Initialize(platform); err != nil {
		log.Fatalf("Application startup failed: %v", err)
	}

	log.Println("Application has shut down gracefully.")
}
