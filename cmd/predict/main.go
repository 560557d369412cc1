package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"income-predictor/internal/client"
	"income-predictor/internal/features"
)

func main() {
	var (
		url      = flag.String("url", "http://localhost:5000", "Base URL of the prediction service")
		file     = flag.String("file", "", "JSON file holding one request body (default: built-in example)")
		timeout  = flag.Duration("timeout", 5*time.Second, "Request timeout")
		health   = flag.Bool("health", false, "Query /health instead of predicting")
		logLevel = flag.String("log-level", "warn", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := client.New(*url, *timeout)

	if *health {
		h, err := c.Health(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("health check failed")
		}
		out, _ := json.Marshal(h)
		fmt.Println(string(out))
		return
	}

	var pred client.Prediction
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			log.Fatal().Err(err).Str("file", *file).Msg("failed to read request file")
		}
		var body map[string]any
		if err := json.Unmarshal(data, &body); err != nil {
			log.Fatal().Err(err).Msg("request file is not a JSON object")
		}
		pred, err = c.PredictRaw(ctx, body)
		if err != nil {
			log.Fatal().Err(err).Msg("prediction failed")
		}
	} else {
		pred, err = c.Predict(ctx, exampleInput())
		if err != nil {
			log.Fatal().Err(err).Msg("prediction failed")
		}
	}

	out, _ := json.Marshal(pred)
	fmt.Println(string(out))
}

func exampleInput() features.Input {
	return features.Input{
		Age:           39,
		Workclass:     "State-gov",
		Education:     "Bachelors",
		MaritalStatus: "Never-married",
		Occupation:    "Adm-clerical",
		Relationship:  "Not-in-family",
		Race:          "White",
		Gender:        "Male",
		CapitalGain:   2174,
		CapitalLoss:   0,
		HoursPerWeek:  40,
	}
}
