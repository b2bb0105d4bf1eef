package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/IsaacDSC/cachefn/cmd/setup"
)

func main() {
	lt := setup.LoadTest{Years: []int{2022, 2023, 2024}}

	flag.StringVar(&lt.BaseURL, "url", "http://localhost:8080", "api base url")
	flag.IntVar(&lt.Rate, "rate", 50, "requests per second")
	flag.DurationVar(&lt.Duration, "duration", 30*time.Second, "attack duration")
	flag.Parse()

	lt.Run(os.Stdout)

	if err := lt.PrintInsights(context.Background(), os.Stdout); err != nil {
		log.Printf("insights unavailable: %v", err)
	}
}
