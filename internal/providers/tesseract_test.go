//go:build tesseract

package providers

import "testing"

func TestTesseractFactoryRegistered(t *testing.T) {
	p, err := createOCRProvider(OCRProviderConfig{Type: TesseractOCRName, Model: "eng+deu"}, nil)
	if err != nil {
		t.Fatalf("createOCRProvider() error = %v", err)
	}
	if p.Name() != TesseractOCRName {
		t.Errorf("Name() = %q", p.Name())
	}
}
