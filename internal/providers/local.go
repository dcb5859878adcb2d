package providers

import (
	"fmt"
	"log/slog"
)

// TesseractOCRName is the provider type of the local Tesseract engine,
// available in binaries built with -tags tesseract.
const TesseractOCRName = "tesseract"

// localOCRFactories holds OCR engines compiled in behind build tags.
var localOCRFactories = map[string]func(cfg OCRProviderConfig, logger *slog.Logger) OCRProvider{}

func unknownOCRType(typ string) error {
	if typ == TesseractOCRName {
		return fmt.Errorf("OCR provider type %q requires a build with -tags tesseract", typ)
	}
	return fmt.Errorf("unknown OCR provider type %q", typ)
}
