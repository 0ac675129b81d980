package vobj

type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "pending"    // Accepted, waiting for processing
	BatchStatusProcessing BatchStatus = "processing" // Images are being converted
	BatchStatusCompleted  BatchStatus = "completed"  // Archive and ledger written
	BatchStatusFailed     BatchStatus = "failed"     // Aborted on the first failing image or input
)

type ContentType string

func (c ContentType) String() string {
	return string(c)
}

const (
	ContentTypeImageJPEG ContentType = "image/jpeg"
	ContentTypeImagePNG  ContentType = "image/png"
	ContentTypeImageTIFF ContentType = "image/tiff"
	ContentTypeImageBMP  ContentType = "image/bmp"
	ContentTypeImageWEBP ContentType = "image/webp"
	ContentTypeImageGIF  ContentType = "image/gif"

	ContentTypeApplicationZip  ContentType = "application/zip"
	ContentTypeApplicationJSON ContentType = "application/json"
	ContentTypeApplicationXLSX ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeTextPlain       ContentType = "text/plain; charset=utf-8"

	ContentTypeApplicationOctetStream ContentType = "application/octet-stream"
)

type StorageProvider string

const (
	StorageProviderLocal StorageProvider = "local"
	StorageProviderGCS   StorageProvider = "gcs"
)
