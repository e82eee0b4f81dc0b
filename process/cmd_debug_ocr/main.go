package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"receiptscan/pkg/ocr"

	"github.com/otiai10/gosseract/v2"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
)

// Runs OCR on one image and prints the raw text followed by the analysis.
func main() {
	fs := ff.NewFlagSet("cmd_debug_ocr")
	var (
		file       = fs.StringLong("file", "", "image file to OCR")
		lang       = fs.StringLong("ocr-lang", "eng", "tesseract languages, e.g. eng+sin")
		preprocess = fs.StringLong("ocr-preprocess", "gray", "image preprocessing: none, gray, binary or adaptive")
		psm        = fs.IntLong("ocr-psm", 3, "tesseract page segmentation mode")
		dumpImage  = fs.StringLong("dump-preprocessed", "", "also write the preprocessed image to this path")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVars()); err != nil || *file == "" {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		if err == nil || errors.Is(err, ff.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("flags: %v", err)
	}

	mode, err := ocr.ParsePreprocessMode(*preprocess)
	if err != nil {
		log.Fatal(err)
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal(err)
	}
	if *dumpImage != "" {
		if err := ocr.WritePreprocessed(data, mode, *dumpImage); err != nil {
			log.Fatalf("dump preprocessed: %v", err)
		}
	}

	engine := ocr.NewTesseract(*lang)
	engine.Preprocess = mode
	engine.PageSegMode = gosseract.PageSegMode(*psm)
	text, err := engine.ExtractText(context.Background(), data)
	if err != nil {
		log.Fatalf("ocr error: %v", err)
	}
	fmt.Println("----- text -----")
	fmt.Println(text)
	fmt.Println("----- analysis -----")
	out, _ := json.MarshalIndent(ocr.Analyze(text), "", "  ")
	fmt.Println(string(out))
}
