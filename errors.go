package bucket

import "errors"

// Build and lifecycle errors.
var (
	// ErrPrimitiveTooLarge is returned when one primitive needs more
	// vertices than a chunk can index. It aborts the build.
	ErrPrimitiveTooLarge = errors.New("bucket: primitive exceeds 65535 vertices")

	// ErrUnknownKind is returned for a buffer kind the bucket's variant
	// does not declare.
	ErrUnknownKind = errors.New("bucket: unknown buffer kind")

	// ErrUnknownType is returned when no geometry variant is registered
	// for a bucket type.
	ErrUnknownType = errors.New("bucket: unknown bucket type")

	// ErrInvalidGeometry rejects a single feature. Build skips the feature
	// and continues.
	ErrInvalidGeometry = errors.New("bucket: invalid feature geometry")

	// ErrNotUploaded is returned by Destroy when no GPU buffers exist.
	ErrNotUploaded = errors.New("bucket: no GPU buffers to destroy")

	// ErrUploaded is returned by Upload when buffers already exist.
	ErrUploaded = errors.New("bucket: already uploaded")

	// ErrLayerMismatch is returned by Deserialize when the child layers do
	// not match the serialized layer IDs, and by New when two child layers
	// share an ID.
	ErrLayerMismatch = errors.New("bucket: child layers do not match serialized bucket")

	// ErrInvalidPayload is returned by Deserialize for arrays whose schema
	// or length does not fit the bucket.
	ErrInvalidPayload = errors.New("bucket: invalid serialized payload")
)
