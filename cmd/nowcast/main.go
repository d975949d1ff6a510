// Command nowcast is the batch side of the geomagnetic nowcast service:
// dataset building, baseline training, registry inspection and offline
// forecasts from a feed file.
//
// Usage:
//
//	nowcast build-dataset --input feed.json --output ml/data/train_dataset.jsonl
//	nowcast train --dataset ml/data/train_dataset.jsonl --model-version unet-baseline-v1
//	nowcast models
//	nowcast forecast --feed feed.json --horizon 30
//
// Logs go to stderr; command results go to stdout.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
