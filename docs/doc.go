// Package docs provides generated OpenAPI documentation.
//
// pdfextract API
//
//	@title			pdfextract API
//	@version		1.0
//	@description	Upload a PDF, OCR its pages and extract a structured record with a named prompt.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/pdfextract
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/pdfextract/serve.go -o ./swagger --outputTypes go --parseInternal
