package main

// Run one image through the pipeline without persistence:
//   go run ./cmd/triagecheck -image ./sample.jpg -note "soft since monday"

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"pet-triage-backend/internal/bootstrap"
	"pet-triage-backend/internal/feature"
	"pet-triage-backend/internal/shared/config"
	"pet-triage-backend/internal/shared/telemetry"
	"pet-triage-backend/internal/triage"
)

type output struct {
	Features       feature.Record `json:"features"`
	RiskLevel      string         `json:"risk_level"`
	Report         string         `json:"report"`
	ReportSource   string         `json:"report_source"`
	FallbackReason string         `json:"fallback_reason,omitempty"`
	Placeholder    bool           `json:"placeholder"`
	Width          int            `json:"width"`
	Height         int            `json:"height"`
}

func main() {
	cfg := config.Load()

	imagePath := flag.String("image", "", "Path to the stool photo (jpeg, png, gif or webp)")
	note := flag.String("note", "", "Owner note passed to the report")
	petJSON := flag.String("pet", "", `Pet metadata as JSON, e.g. {"name":"Mochi","species":"dog"}`)
	lang := flag.String("lang", cfg.Report.Language, "Report language (zh or en)")
	strategy := flag.String("strategy", cfg.ParserStrategy, "Parser strategy (keyword or structured)")
	flag.Parse()

	if strings.TrimSpace(*imagePath) == "" {
		exitErr("image path is required")
	}
	telemetry.SetLevel("warn")

	data, err := os.ReadFile(*imagePath)
	if err != nil {
		exitErr(fmt.Sprintf("read image: %v", err))
	}

	var pet *feature.Pet
	if strings.TrimSpace(*petJSON) != "" {
		pet = &feature.Pet{}
		if err := json.Unmarshal([]byte(*petJSON), pet); err != nil {
			exitErr(fmt.Sprintf("parse -pet: %v", err))
		}
	}

	cfg.Report.Language = *lang
	cfg.ParserStrategy = *strategy
	pipe, err := bootstrap.BuildPipeline(cfg)
	if err != nil {
		exitErr(err.Error())
	}

	out, err := pipe.Service(nil, nil).Evaluate(context.Background(), triage.Submission{
		OwnerID:     "triagecheck",
		Image:       data,
		ContentType: mimetype.Detect(data).String(),
		Note:        *note,
		Pet:         pet,
	})
	if err != nil {
		exitErr(fmt.Sprintf("%s (%s)", err, triage.Transition(err)))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	_ = enc.Encode(output{
		Features:       out.Features,
		RiskLevel:      string(out.Risk),
		Report:         out.Report.Text,
		ReportSource:   out.Report.Source,
		FallbackReason: out.Report.FallbackReason,
		Placeholder:    out.Features.IsPlaceholder(),
		Width:          out.Image.Width,
		Height:         out.Image.Height,
	})
}

func exitErr(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
