package ocr

import "time"

// gRPC client defaults
const (
	// RecognizeMethod is the full method name of the remote OCR call. Payloads
	// are google.protobuf.Struct so no generated stubs are needed.
	RecognizeMethod = "/ocr.v1.OCRService/Recognize"
	// HealthService is checked by Ready.
	HealthService = "ocr.v1.OCRService"

	DefaultKeepaliveTime    = 10 * time.Second
	DefaultKeepaliveTimeout = 3 * time.Second
	DefaultTimeout          = 5 * time.Second
	HealthCheckTimeout      = 2 * time.Second
)
